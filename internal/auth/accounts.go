// Package auth implements local accounts: bcrypt password digests and signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/shared"
)

// UserStore persists accounts.
//
// [repositories.UserRepository] implements it.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Accounts registers and authenticates users.
type Accounts struct {
	users  UserStore
	logger *log.Logger
}

// NewAccounts creates an [Accounts] service.
func NewAccounts(users UserStore, logger *log.Logger) *Accounts {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Accounts{users: users, logger: logger}
}

// Register creates a new account. Usernames and emails must be unique.
func (a *Accounts) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", shared.ErrInvalidInput)
	}

	if _, err := a.users.GetByUsername(ctx, username); err == nil {
		return nil, shared.ErrDuplicateUsername
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		return nil, shared.ErrDuplicateEmail
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(0, username, email, hash)
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	a.logger.Info("registered user", "user_id", user.ID(), "username", username)
	return user, nil
}

// Login checks a username/password pair. Unknown users and wrong passwords are both
// [shared.ErrInvalidCredentials].
func (a *Accounts) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(user.PasswordHash(), password) {
		a.logger.Warn("failed login", "username", username)
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// User loads the account for a session's user ID.
func (a *Accounts) User(ctx context.Context, id string) (*models.User, error) {
	return a.users.Get(ctx, id)
}
