package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleSubadmin Role = "subadmin"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSubadmin, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// CanModerate reports whether the role may confirm or decline reservations
// and see every reservation in the system.
func (r Role) CanModerate() bool {
	return r == RoleSubadmin || r == RoleAdmin
}

type User struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:120;not null"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Role      Role      `json:"role" gorm:"size:16;not null;default:user"`
	Password  string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail is applied before every lookup and write so logins are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
