package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytfetch/internal/auth"
)

// SessionCookie is the name of the signed session cookie.
const SessionCookie = "ytfetch_session"

type contextKey int

const userIDKey contextKey = iota

// Sessions issues and verifies signed session cookies.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	logger *log.Logger
}

// NewSessions creates a [Sessions] manager.
func NewSessions(secret string, ttl time.Duration, secure bool, logger *log.Logger) *Sessions {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, logger: logger}
}

// Login sets a session cookie for userID.
func (s *Sessions) Login(w http.ResponseWriter, userID string) error {
	token, err := auth.IssueToken(userID, s.secret, s.ttl)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout clears the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load puts the user ID from a valid session cookie into the request context.
// Invalid cookies are cleared; the request proceeds anonymously.
func (s *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := auth.ParseToken(c.Value, s.secret)
		if err != nil {
			if s.logger != nil {
				s.logger.Debug("discarding session cookie", "error", err)
			}
			s.Logout(w)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user ID from ctx, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequireUser redirects anonymous requests to /login.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
