package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence the account flows need.
type Store interface {
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	EmailExists(ctx context.Context, email string) (bool, error)
	CreateAccount(ctx context.Context, a *Account) error
	AccountByID(ctx context.Context, id uint) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error

	CreateCode(ctx context.Context, c *ConfirmationCode) error
	CodeForAccount(ctx context.Context, accountID uint) (*ConfirmationCode, error)
	// DeleteCode reports whether a code row was removed.
	DeleteCode(ctx context.Context, accountID uint) (bool, error)

	// EnsureSessionToken returns the account's token, creating it on first use.
	EnsureSessionToken(ctx context.Context, accountID uint) (*SessionToken, error)
	AccountIDBySessionKey(ctx context.Context, key string) (uint, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) Store {
	return &gormStore{db: d}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count accounts by email: %w", err)
	}
	return n > 0, nil
}

func (s *gormStore) CreateAccount(ctx context.Context, a *Account) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *gormStore) AccountByID(ctx context.Context, id uint) (*Account, error) {
	return s.firstAccount(ctx, "id = ?", id)
}

func (s *gormStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return s.firstAccount(ctx, "email = ?", email)
}

func (s *gormStore) firstAccount(ctx context.Context, query string, arg any) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).First(&a, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (s *gormStore) SaveAccount(ctx context.Context, a *Account) error {
	if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
		return fmt.Errorf("save account %d: %w", a.ID, err)
	}
	return nil
}

func (s *gormStore) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Update("last_login", at).Error
	if err != nil {
		return fmt.Errorf("update last_login for %d: %w", id, err)
	}
	return nil
}

func (s *gormStore) CreateCode(ctx context.Context, c *ConfirmationCode) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create confirmation code: %w", err)
	}
	return nil
}

func (s *gormStore) CodeForAccount(ctx context.Context, accountID uint) (*ConfirmationCode, error) {
	var c ConfirmationCode
	err := s.db.WithContext(ctx).First(&c, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find confirmation code: %w", err)
	}
	return &c, nil
}

func (s *gormStore) DeleteCode(ctx context.Context, accountID uint) (bool, error) {
	res := s.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&ConfirmationCode{})
	if res.Error != nil {
		return false, fmt.Errorf("delete confirmation code: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// EnsureSessionToken relies on the unique index on account_id: concurrent
// callers race on the insert, the loser's row is dropped, and both read back
// the winner's key.
func (s *gormStore) EnsureSessionToken(ctx context.Context, accountID uint) (*SessionToken, error) {
	key, err := newSessionKey()
	if err != nil {
		return nil, err
	}

	d := s.db.WithContext(ctx)
	candidate := SessionToken{Key: key, AccountID: accountID}
	if err := d.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("insert session token: %w", err)
	}

	var tok SessionToken
	if err := d.First(&tok, "account_id = ?", accountID).Error; err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}
	return &tok, nil
}

func (s *gormStore) AccountIDBySessionKey(ctx context.Context, key string) (uint, error) {
	var tok SessionToken
	err := s.db.WithContext(ctx).First(&tok, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find session token: %w", err)
	}
	return tok.AccountID, nil
}

// newSessionKey returns 40 hex characters of crypto randomness.
func newSessionKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
