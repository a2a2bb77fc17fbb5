package domain

import (
	"strings"
	"time"
)

const (
	RolePatron    = "patron"
	RoleLibrarian = "librarian"
)

// User is identified by email. Login is email-only: the system inherits a
// password-less authentication scheme, so there is no credential field.
type User struct {
	Email     string    `gorm:"primaryKey;size:191" json:"email"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Role      string    `gorm:"size:16;not null;default:patron" json:"role"`
	CreatedAt time.Time `json:"registeredAt"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// NormalizeEmail trims and lowercases; emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
