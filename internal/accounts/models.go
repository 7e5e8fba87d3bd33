package accounts

import "time"

// Source records which flow created or last touched an account.
type Source string

const (
	SourceLocal  Source = "local"
	SourceGoogle Source = "google"
)

type Account struct {
	ID                 uint              `gorm:"primaryKey" json:"user_id"`
	Email              string            `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Password           string            `gorm:"size:128;not null" json:"-"`
	FirstName          string            `gorm:"size:150;not null" json:"first_name"`
	LastName           string            `gorm:"size:150;not null" json:"last_name"`
	Birthdate          *time.Time        `gorm:"type:date" json:"birthdate"`
	IsActive           bool              `gorm:"not null" json:"is_active"`
	RegistrationSource Source            `gorm:"size:16;not null" json:"registration_source"`
	LastLogin          *time.Time        `json:"last_login"`
	DateJoined         time.Time         `gorm:"autoCreateTime" json:"date_joined"`
	Code               *ConfirmationCode `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	Token              *SessionToken     `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}

// ConfirmationCode exists between registration and activation.
type ConfirmationCode struct {
	ID        uint      `gorm:"primaryKey"`
	AccountID uint      `gorm:"not null;uniqueIndex"`
	Code      string    `gorm:"size:6;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// SessionToken is the opaque bearer key handed out by authorization,
// confirmation and Google login. One per account, never rotated.
type SessionToken struct {
	Key       string    `gorm:"primaryKey;size:40"`
	AccountID uint      `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Account) TableName() string          { return "app_auth.accounts" }
func (ConfirmationCode) TableName() string { return "app_auth.confirmation_codes" }
func (SessionToken) TableName() string     { return "app_auth.session_tokens" }
