// Package users stores profiles of signed-in accounts. Guests have no row.
package users

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid user")
)

// User is a signed-in account. IDs are "<provider>:<subject>".
type User struct {
	ID          string     `json:"id"`
	Provider    string     `json:"provider"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	GivenName   string     `json:"givenName"`
	FamilyName  string     `json:"familyName"`
	PictureURL  string     `json:"pictureUrl"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProviderFromID returns the identity provider prefix of a user id.
func ProviderFromID(id string) string {
	provider, _, ok := strings.Cut(id, ":")
	if !ok {
		return ""
	}
	return provider
}
