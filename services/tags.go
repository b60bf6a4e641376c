package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quietcircle/community/models"
)

// TagType is one value of the closed tag enumeration.
type TagType string

const (
	TagVictory       TagType = "VICTORY"
	TagVent          TagType = "VENT"
	TagTriggers      TagType = "TRIGGERS"
	TagAnxiety       TagType = "ANXIETY"
	TagGratitude     TagType = "GRATITUDE"
	TagRelationships TagType = "RELATIONSHIPS"
	TagWork          TagType = "WORK"
)

// DefaultTagTypes is the production catalog.
var DefaultTagTypes = []TagType{
	TagVictory, TagVent, TagTriggers, TagAnxiety, TagGratitude, TagRelationships, TagWork,
}

// MaxTagsPerPost bounds the number of tags a post may carry.
const MaxTagsPerPost = 5

// TagCatalog resolves user supplied tag names against a fixed set of types.
type TagCatalog struct {
	types []TagType
	index map[string]TagType
}

// NewTagCatalog builds a catalog over the given types. Duplicates are ignored.
func NewTagCatalog(types ...TagType) *TagCatalog {
	c := &TagCatalog{index: make(map[string]TagType, len(types))}
	for _, t := range types {
		key := strings.ToUpper(string(t))
		if _, ok := c.index[key]; ok {
			continue
		}
		c.index[key] = TagType(key)
		c.types = append(c.types, TagType(key))
	}
	return c
}

// Resolve matches name case-insensitively.
func (c *TagCatalog) Resolve(name string) (TagType, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if t, ok := c.index[key]; ok {
		return t, nil
	}
	return "", BusinessRule("invalid tag: %s", name)
}

// Names lists the catalog in declaration order.
func (c *TagCatalog) Names() []string {
	out := make([]string, len(c.types))
	for i, t := range c.types {
		out[i] = string(t)
	}
	return out
}

// Lookup loads the persisted row for t. A missing row is a business rule failure.
func (c *TagCatalog) Lookup(tx *gorm.DB, t TagType) (*models.Tag, error) {
	var tag models.Tag
	err := tx.Where("type = ?", string(t)).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, BusinessRule("tag not found: %s", t)
	}
	if err != nil {
		return nil, Internal(err)
	}
	return &tag, nil
}

// ResolveAll turns raw names into catalog rows. The request is a set: identical
// names count once, and names resolving to the same type yield one row.
func (c *TagCatalog) ResolveAll(tx *gorm.DB, names []string) ([]models.Tag, error) {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	if len(unique) > MaxTagsPerPost {
		return nil, BusinessRule("a post cannot have more than %d tags", MaxTagsPerPost)
	}

	tags := make([]models.Tag, 0, len(unique))
	resolved := make(map[TagType]struct{}, len(unique))
	for _, n := range unique {
		t, err := c.Resolve(n)
		if err != nil {
			return nil, err
		}
		if _, ok := resolved[t]; ok {
			continue
		}
		resolved[t] = struct{}{}
		row, err := c.Lookup(tx, t)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *row)
	}
	return tags, nil
}

// Seed inserts a row for every catalog type that is not yet persisted.
func (c *TagCatalog) Seed(ctx context.Context, db *gorm.DB) (int64, error) {
	if len(c.types) == 0 {
		return 0, nil
	}
	rows := make([]models.Tag, len(c.types))
	for i, t := range c.types {
		rows[i] = models.Tag{Type: string(t)}
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
