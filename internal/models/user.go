package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is a local account. Users are created at registration and never deleted.
type User struct {
	id           string
	sequence     int
	username     string
	email        string
	passwordHash string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates a [User] with creation timestamps set to now.
func NewUser(sequence int, username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		sequence:     sequence,
		username:     strings.TrimSpace(username),
		email:        strings.TrimSpace(email),
		passwordHash: passwordHash,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (u *User) ID() string           { return u.id }
func (u *User) Sequence() int        { return u.sequence }
func (u *User) Username() string     { return u.username }
func (u *User) Email() string        { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetID(id string)             { u.id = id }
func (u *User) SetSequence(seq int)         { u.sequence = seq }
func (u *User) SetCreatedAt(t time.Time)    { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)    { u.updatedAt = t }
func (u *User) SetPasswordHash(hash string) { u.passwordHash = hash }

// Validate checks required fields and the email address shape.
func (u *User) Validate() error {
	if u.username == "" {
		return fmt.Errorf("username is required")
	}
	if len(u.username) > 80 {
		return fmt.Errorf("username must be at most 80 characters")
	}
	if u.email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(u.email); err != nil {
		return fmt.Errorf("invalid email address: %s", u.email)
	}
	if u.passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}
