package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/quietcircle/community/models"
	"github.com/quietcircle/community/utils"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 32
	passwordMinLength = 6
	passwordMaxLength = 72 // bcrypt ignores anything longer
)

// AccountService registers and authenticates accounts.
type AccountService struct {
	db       *gorm.DB
	identity *IdentityBinder
}

// NewAccountService creates an AccountService instance.
func NewAccountService(db *gorm.DB, identity *IdentityBinder) *AccountService {
	return &AccountService{db: db, identity: identity}
}

// Register creates an account with a bcrypt hashed password.
func (s *AccountService) Register(ctx context.Context, username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < passwordMinLength || len(password) > passwordMaxLength {
		return nil, Validation("password must be %d-%d characters", passwordMinLength, passwordMaxLength)
	}

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Account{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return nil, Internal(err)
	}
	if n > 0 {
		return nil, BusinessRule("username already taken")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, Internal(err)
	}
	account := models.Account{Username: username, PasswordHash: hash, Role: models.RoleUser}
	if err := db.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, BusinessRule("username already taken")
		}
		return nil, Internal(err)
	}
	return &account, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords fail the same way.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, AuthRequired("invalid username or password")
	}
	if err != nil {
		return nil, Internal(err)
	}
	if !utils.CheckPassword(account.PasswordHash, password) {
		return nil, AuthRequired("invalid username or password")
	}
	return &account, nil
}

// Require resolves the principal to its account.
func (s *AccountService) Require(ctx context.Context, accountID uint) (*models.Account, error) {
	if accountID == 0 {
		return nil, AuthRequired("authentication required")
	}
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, AuthRequired("account not found")
	}
	if err != nil {
		return nil, Internal(err)
	}
	return &account, nil
}

// Me describes the caller. It never creates a persona.
func (s *AccountService) Me(ctx context.Context, accountID uint) (*MeInfo, error) {
	account, err := s.Require(ctx, accountID)
	if err != nil {
		return nil, err
	}
	info := &MeInfo{Username: account.Username, Role: account.Role}
	persona, err := s.identity.Find(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if persona != nil {
		info.PersonaID = &persona.ID
		info.PersonaName = &persona.DisplayName
	}
	return info, nil
}

func validateUsername(s string) error {
	if l := len(s); l < usernameMinLength || l > usernameMaxLength {
		return Validation("username must be %d-%d characters", usernameMinLength, usernameMaxLength)
	}
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' {
			continue
		}
		return Validation("username may only contain letters, digits and '_'")
	}
	return nil
}
