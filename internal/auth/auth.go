// Package auth handles staff accounts and the web board session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/tablebook/internal/internaltypes"
)

const (
	cookieName = "tablebook_session"
	sessionTTL = 14 * 24 * time.Hour
)

// Users is the account storage used by Store.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	UserCredentials(ctx context.Context, username string) (int64, string, error)
}

type Store struct {
	sc    *securecookie.SecureCookie
	users Users
}

type ctxKey string

const userIDKey ctxKey = "userID"

func NewStore(users Users, hashKey, blockKey []byte) *Store {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, users: users}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return internaltypes.Invalid("username", "must not be empty")
	}
	if len(password) < 8 {
		return internaltypes.Invalid("password", "must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.CreateUser(ctx, username, hash); err != nil {
		return internaltypes.Persist("create user", err)
	}
	return nil
}

// Authenticate returns the user id, or ErrUnauthorized for an unknown user
// or a wrong password.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	id, hash, err := s.users.UserCredentials(ctx, username)
	if errors.Is(err, internaltypes.ErrNotFound) {
		return 0, internaltypes.ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(hash, password) {
		return 0, internaltypes.ErrUnauthorized
	}
	return id, nil
}

type Session struct {
	UserID int64
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	encoded, err := s.sc.Encode(cookieName, Session{UserID: userID})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil || sess.UserID <= 0 {
		return Session{}, false
	}
	return sess, true
}

func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}
