package users

import (
	"strings"
	"time"
)

// Account is a credential-backed user record. The account id is the user
// identifier every other collection keys on.
type Account struct {
	AccountID    string    `gorm:"column:account_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_accounts_email"`
	PasswordHash string    `gorm:"column:password_hash;size:128;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user accounts.
func (Account) TableName() string {
	return "accounts"
}

// normalizeEmail lowercases and trims an email address so lookups are
// case-insensitive.
func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
