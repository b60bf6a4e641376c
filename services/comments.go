package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/quietcircle/community/models"
)

// DefaultCommentMaxLength is used when no limit is configured.
const DefaultCommentMaxLength = 500

// CommentService attaches comments to existing posts.
type CommentService struct {
	db        *gorm.DB
	identity  *IdentityBinder
	maxLength int
}

// NewCommentService creates a CommentService. maxLength <= 0 selects DefaultCommentMaxLength;
// limits above the column size are capped to it.
func NewCommentService(db *gorm.DB, identity *IdentityBinder, maxLength int) *CommentService {
	if maxLength <= 0 {
		maxLength = DefaultCommentMaxLength
	}
	maxLength = min(maxLength, models.CommentContentMaxLength)
	return &CommentService{db: db, identity: identity, maxLength: maxLength}
}

// MaxLength returns the configured comment length limit.
func (s *CommentService) MaxLength() int { return s.maxLength }

// Comment stores content on postID as the caller's persona.
func (s *CommentService) Comment(ctx context.Context, accountID, postID uint, content string) (*CommentView, error) {
	var view *CommentView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		persona, err := s.identity.GetOrCreate(tx, accountID)
		if err != nil {
			return err
		}
		if err := postExists(tx, postID); err != nil {
			return err
		}

		body := strings.TrimSpace(content)
		if body == "" {
			return Validation("comment must not be blank")
		}
		if utf8.RuneCountInString(body) > s.maxLength {
			return Validation("comment must be at most %d characters", s.maxLength)
		}

		c := models.Comment{PostID: postID, PersonaID: persona.ID, Content: body}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		if err := recordEvent(tx, EventCommentCreated, postID, map[string]any{
			"comment_id": c.ID,
			"post_id":    postID,
			"persona_id": persona.ID,
		}); err != nil {
			return err
		}

		c.Persona = *persona
		v := commentView(c)
		view = &v
		return nil
	})
	if err != nil {
		return nil, Internal(err)
	}
	return view, nil
}

// ListForPost returns a post's comments newest first.
func (s *CommentService) ListForPost(ctx context.Context, postID uint, page, size int) (*Page[CommentView], error) {
	page, size = NormalizePage(page, size)
	db := s.db.WithContext(ctx)
	if err := postExists(db, postID); err != nil {
		return nil, Internal(err)
	}

	q := db.Model(&models.Comment{}).Where("post_id = ?", postID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Internal(err)
	}

	var rows []models.Comment
	err := db.Preload("Persona").
		Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, Internal(err)
	}

	items := make([]CommentView, len(rows))
	for i, c := range rows {
		items[i] = commentView(c)
	}
	return newPage(items, page, size, total), nil
}

func postExists(db *gorm.DB, postID uint) error {
	var post models.Post
	err := db.Select("id").First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("post %d not found", postID)
	}
	return err
}
