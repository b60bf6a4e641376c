package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/quietcircle/community/models"
)

// postContentMinLength is the minimum trimmed length of a post.
const postContentMinLength = 3

// PostService creates, lists and deletes posts.
type PostService struct {
	db       *gorm.DB
	identity *IdentityBinder
	tags     *TagCatalog
}

// NewPostService creates a PostService instance.
func NewPostService(db *gorm.DB, identity *IdentityBinder, tags *TagCatalog) *PostService {
	return &PostService{db: db, identity: identity, tags: tags}
}

// ValidatePostContent applies the post length rules and returns the trimmed content.
func ValidatePostContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", Validation("content must not be blank")
	}
	if utf8.RuneCountInString(content) > models.PostContentMaxLength {
		return "", BusinessRule("content must be at most %d characters", models.PostContentMaxLength)
	}
	if utf8.RuneCountInString(trimmed) < postContentMinLength {
		return "", BusinessRule("content must be at least %d characters", postContentMinLength)
	}
	return trimmed, nil
}

// Create validates and stores a post authored by the caller's persona.
func (s *PostService) Create(ctx context.Context, accountID uint, content string, tagNames []string) (*PostDetail, error) {
	body, err := ValidatePostContent(content)
	if err != nil {
		return nil, err
	}

	var detail *PostDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		persona, err := s.identity.GetOrCreate(tx, accountID)
		if err != nil {
			return err
		}

		var tags []models.Tag
		if len(tagNames) > 0 {
			if tags, err = s.tags.ResolveAll(tx, tagNames); err != nil {
				return err
			}
		}

		post := models.Post{PersonaID: persona.ID, Content: body}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if err := linkTags(tx, post.ID, tags); err != nil {
			return err
		}

		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Type
		}
		sort.Strings(names)

		if err := recordEvent(tx, EventPostCreated, post.ID, map[string]any{
			"post_id":    post.ID,
			"persona_id": persona.ID,
			"tags":       names,
		}); err != nil {
			return err
		}

		detail = &PostDetail{
			ID:           post.ID,
			Content:      post.Content,
			CreatedAt:    post.CreatedAt,
			AuthorName:   persona.DisplayName,
			Tags:         names,
			SupportCount: post.SupportCount,
		}
		return nil
	})
	if err != nil {
		return nil, Internal(err)
	}
	return detail, nil
}

// linkTags writes the post's tag set. It is the only writer of post_tags for a new post.
func linkTags(tx *gorm.DB, postID uint, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.PostTag, len(tags))
	for i, t := range tags {
		rows[i] = models.PostTag{PostID: postID, TagID: t.ID}
	}
	return tx.Create(&rows).Error
}

// Get returns a single post.
func (s *PostService) Get(ctx context.Context, postID uint) (*PostDetail, error) {
	db := s.db.WithContext(ctx)
	var post models.Post
	if err := db.Preload("Persona").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("post %d not found", postID)
		}
		return nil, Internal(err)
	}
	tags, err := tagsByPost(db, []uint{post.ID})
	if err != nil {
		return nil, Internal(err)
	}
	d := postDetail(post, tags[post.ID])
	return &d, nil
}

// Feed returns posts newest first.
func (s *PostService) Feed(ctx context.Context, page, size int) (*Page[PostSummary], error) {
	page, size = NormalizePage(page, size)
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, Internal(err)
	}

	var posts []models.Post
	err := db.Preload("Persona").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&posts).Error
	if err != nil {
		return nil, Internal(err)
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	tags, err := tagsByPost(db, ids)
	if err != nil {
		return nil, Internal(err)
	}

	items := make([]PostSummary, len(posts))
	for i, p := range posts {
		items[i] = postDetail(p, tags[p.ID])
	}
	return newPage(items, page, size, total), nil
}

// Delete removes a post with its comments, supports and tag links.
// Only the author or an admin may delete.
func (s *PostService) Delete(ctx context.Context, accountID, postID uint, admin bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("post %d not found", postID)
			}
			return err
		}
		if !admin {
			persona, err := findPersona(tx, accountID, false)
			if err != nil {
				return err
			}
			if persona == nil || persona.ID != post.PersonaID {
				return Forbidden("only the author can delete this post")
			}
		}

		for _, m := range []interface{}{&models.Comment{}, &models.Support{}, &models.PostTag{}} {
			if err := tx.Where("post_id = ?", post.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventPostDeleted, post.ID, map[string]any{"post_id": post.ID})
	})
	return Internal(err)
}

func postDetail(p models.Post, tags []string) PostDetail {
	if tags == nil {
		tags = []string{}
	}
	return PostDetail{
		ID:           p.ID,
		Content:      p.Content,
		CreatedAt:    p.CreatedAt,
		AuthorName:   p.Persona.DisplayName,
		Tags:         tags,
		SupportCount: p.SupportCount,
	}
}

// tagsByPost loads sorted tag names for each post id.
func tagsByPost(db *gorm.DB, postIDs []uint) (map[uint][]string, error) {
	out := make(map[uint][]string, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PostID uint
		Type   string
	}
	err := db.Table("post_tags").
		Select("post_tags.post_id, tags.type").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("post_tags.post_id IN ?", postIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PostID] = append(out[r.PostID], r.Type)
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out, nil
}
