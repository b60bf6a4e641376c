package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quietcircle/community/models"
)

// personaInsertAttempts bounds retries when a freshly generated display name is claimed concurrently.
const personaInsertAttempts = 3

// IdentityBinder maps an account to its single anonymous persona.
type IdentityBinder struct {
	db  *gorm.DB
	rnd IntSource
	now func() time.Time
}

// NewIdentityBinder creates a binder. A nil rnd uses CryptoSource.
func NewIdentityBinder(db *gorm.DB, rnd IntSource) *IdentityBinder {
	if rnd == nil {
		rnd = CryptoSource{}
	}
	return &IdentityBinder{db: db, rnd: rnd, now: time.Now}
}

// GetOrCreate returns the persona bound to accountID, creating it on first use.
// It must run inside tx. The unique index on personas.account_id decides
// concurrent first calls: the loser reads back and returns the winner's row.
func (b *IdentityBinder) GetOrCreate(tx *gorm.DB, accountID uint) (*models.Persona, error) {
	if accountID == 0 {
		return nil, AuthRequired("authentication required")
	}
	var account models.Account
	if err := tx.Select("id").First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, AuthRequired("account not found")
		}
		return nil, Internal(err)
	}

	if p, err := findPersona(tx, accountID, false); err != nil || p != nil {
		return p, err
	}

	exists := func(name string) (bool, error) {
		var n int64
		err := tx.Model(&models.Persona{}).Where("display_name = ?", name).Count(&n).Error
		return n > 0, err
	}
	for attempt := 0; attempt < personaInsertAttempts; attempt++ {
		name, err := GenerateDisplayName(b.rnd, exists, b.now)
		if err != nil {
			return nil, Internal(err)
		}
		persona := models.Persona{AccountID: accountID, DisplayName: name}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&persona)
		if res.Error != nil {
			return nil, Internal(res.Error)
		}
		if res.RowsAffected == 1 {
			return &persona, nil
		}
		// Either another writer bound this account first or the name was taken in between.
		if p, err := findPersona(tx, accountID, true); err != nil || p != nil {
			return p, err
		}
	}
	return nil, Internal(fmt.Errorf("bind persona for account %d: display names exhausted", accountID))
}

// Resolve runs GetOrCreate in its own transaction.
func (b *IdentityBinder) Resolve(ctx context.Context, accountID uint) (*models.Persona, error) {
	var persona *models.Persona
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := b.GetOrCreate(tx, accountID)
		if err != nil {
			return err
		}
		persona = p
		return nil
	})
	if err != nil {
		return nil, Internal(err)
	}
	return persona, nil
}

// Find returns the persona bound to accountID without creating one. It returns nil when none exists.
func (b *IdentityBinder) Find(ctx context.Context, accountID uint) (*models.Persona, error) {
	return findPersona(b.db.WithContext(ctx), accountID, false)
}

// findPersona reads the account's persona. locked forces a current read so rows
// committed by a concurrent writer are visible under snapshot isolation.
func findPersona(tx *gorm.DB, accountID uint, locked bool) (*models.Persona, error) {
	q := tx
	if locked {
		q = q.Clauses(clause.Locking{Strength: "SHARE"})
	}
	var p models.Persona
	err := q.Where("account_id = ?", accountID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Internal(err)
	}
	return &p, nil
}
