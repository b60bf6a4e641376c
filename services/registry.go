package services

import "gorm.io/gorm"

// Registry wires every service over one database handle.
type Registry struct {
	Tags     *TagCatalog
	Identity *IdentityBinder
	Accounts *AccountService
	Posts    *PostService
	Supports *SupportLedger
	Comments *CommentService
}

// Options tunes the registry. Zero values select production defaults.
type Options struct {
	TagTypes         []TagType
	Random           IntSource
	CommentMaxLength int
}

// NewRegistry builds all services.
func NewRegistry(db *gorm.DB, opts Options) *Registry {
	types := opts.TagTypes
	if len(types) == 0 {
		types = DefaultTagTypes
	}
	tags := NewTagCatalog(types...)
	identity := NewIdentityBinder(db, opts.Random)
	return &Registry{
		Tags:     tags,
		Identity: identity,
		Accounts: NewAccountService(db, identity),
		Posts:    NewPostService(db, identity, tags),
		Supports: NewSupportLedger(db, identity),
		Comments: NewCommentService(db, identity, opts.CommentMaxLength),
	}
}
