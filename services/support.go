package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quietcircle/community/models"
)

// SupportLedger records endorsements and keeps Post.SupportCount consistent with them.
type SupportLedger struct {
	db       *gorm.DB
	identity *IdentityBinder
}

// NewSupportLedger creates a SupportLedger instance.
func NewSupportLedger(db *gorm.DB, identity *IdentityBinder) *SupportLedger {
	return &SupportLedger{db: db, identity: identity}
}

// Support endorses postID as the caller's persona. A repeated support fails without writing.
func (l *SupportLedger) Support(ctx context.Context, accountID, postID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		persona, err := l.identity.GetOrCreate(tx, accountID)
		if err != nil {
			return err
		}
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&models.Support{}).
			Where("post_id = ? AND persona_id = ?", post.ID, persona.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return BusinessRule("post already supported")
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Support{PostID: post.ID, PersonaID: persona.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return BusinessRule("post already supported")
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("support_count", gorm.Expr("support_count + ?", 1)).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventPostSupported, post.ID, map[string]any{
			"post_id":    post.ID,
			"persona_id": persona.ID,
		})
	})
	return Internal(err)
}

// Unsupport removes the caller's endorsement, if any, and then overwrites the
// cached count with the true ledger count when the two differ.
func (l *SupportLedger) Unsupport(ctx context.Context, accountID, postID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		persona, err := l.identity.GetOrCreate(tx, accountID)
		if err != nil {
			return err
		}
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND persona_id = ?", post.ID, persona.ID).Delete(&models.Support{})
		if res.Error != nil {
			return res.Error
		}
		if _, err := reconcile(tx, post); err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return recordEvent(tx, EventPostUnsupported, post.ID, map[string]any{
			"post_id":    post.ID,
			"persona_id": persona.ID,
		})
	})
	return Internal(err)
}

// Count returns the number of Support rows for postID.
func (l *SupportLedger) Count(ctx context.Context, postID uint) (int64, error) {
	db := l.db.WithContext(ctx)
	var post models.Post
	if err := db.Select("id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NotFound("post %d not found", postID)
		}
		return 0, Internal(err)
	}
	n, err := countSupports(db, postID)
	return n, Internal(err)
}

// Reconcile repairs the cached count of one post. It reports whether the cache had drifted.
func (l *SupportLedger) Reconcile(ctx context.Context, postID uint) (bool, error) {
	var changed bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		changed, err = reconcile(tx, post)
		return err
	})
	return changed, Internal(err)
}

func reconcile(tx *gorm.DB, post *models.Post) (bool, error) {
	actual, err := countSupports(tx, post.ID)
	if err != nil {
		return false, err
	}
	if actual == post.SupportCount {
		return false, nil
	}
	err = tx.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("support_count", actual).Error
	if err != nil {
		return false, err
	}
	post.SupportCount = actual
	return true, nil
}

func countSupports(db *gorm.DB, postID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Support{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// lockPost loads a post with a row lock so support changes on one post serialize.
func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("post %d not found", postID)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
