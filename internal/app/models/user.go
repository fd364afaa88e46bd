package models

import (
	"strings"
	"time"
)

// User is the public view of an account
type User struct {
	ID        string    `json:"id" example:"user_1700000000000_k3j9x2a1b"`
	Email     string    `json:"email" example:"ada@example.com"`
	Name      string    `json:"name" example:"Ada Lovelace"`
	Role      RoleType  `json:"role" example:"student"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credential is the stored account record. Password holds a bcrypt hash.
type Credential struct {
	User
	Password string `json:"password"`
}

// PublicUser strips the password hash
func (c *Credential) PublicUser() *User {
	u := c.User
	return &u
}

// NormalizeEmail case-folds an email for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is a stored login. Tokens reference it by ID.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      RoleType  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// User returns the public user fields recorded with the session
func (s *Session) User() *User {
	return &User{
		ID:    s.UserID,
		Email: s.Email,
		Name:  s.Name,
		Role:  s.Role,
	}
}
