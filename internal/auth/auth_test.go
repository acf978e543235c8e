package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebook/internal/internaltypes"
)

type memUsers struct {
	hashes map[string]string
	err    error
}

func (m *memUsers) CreateUser(_ context.Context, username, hash string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.hashes[username]; ok {
		return errors.New("duplicate username")
	}
	m.hashes[username] = hash
	return nil
}

func (m *memUsers) UserCredentials(_ context.Context, username string) (int64, string, error) {
	if m.err != nil {
		return 0, "", m.err
	}
	h, ok := m.hashes[username]
	if !ok {
		return 0, "", internaltypes.ErrNotFound
	}
	return 42, h, nil
}

func newStore() (*Store, *memUsers) {
	users := &memUsers{hashes: map[string]string{}}
	return NewStore(users, securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)), users
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "correct horse"))
	assert.False(t, CheckPassword(h, "wrong horse"))
}

func TestAuthenticate(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, " manager ", "s3cret-pass"))

	id, err := s.Authenticate(ctx, "manager", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = s.Authenticate(ctx, "manager", "nope")
	assert.ErrorIs(t, err, internaltypes.ErrUnauthorized)

	_, err = s.Authenticate(ctx, "ghost", "s3cret-pass")
	assert.ErrorIs(t, err, internaltypes.ErrUnauthorized)
}

func TestAuthenticate_StoreError(t *testing.T) {
	s, users := newStore()
	users.err = errors.New("db down")

	_, err := s.Authenticate(context.Background(), "manager", "s3cret-pass")
	assert.ErrorContains(t, err, "db down")
	assert.NotErrorIs(t, err, internaltypes.ErrUnauthorized)
}

func TestCreateUser_Validation(t *testing.T) {
	s, users := newStore()
	ctx := context.Background()

	var v *internaltypes.ValidationError
	assert.ErrorAs(t, s.CreateUser(ctx, "", "s3cret-pass"), &v)
	assert.ErrorAs(t, s.CreateUser(ctx, "manager", "short"), &v)

	users.err = errors.New("duplicate username")
	var pe *internaltypes.PersistenceError
	assert.ErrorAs(t, s.CreateUser(ctx, "manager", "s3cret-pass"), &pe)
}

func TestSessionRoundTrip(t *testing.T) {
	s, _ := newStore()

	rec := httptest.NewRecorder()
	require.NoError(t, s.SetSession(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 7))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	sess, ok := s.GetSession(req)
	require.True(t, ok)
	assert.Equal(t, int64(7), sess.UserID)

	// a cookie signed with other keys is rejected
	other, _ := newStore()
	_, ok = other.GetSession(req)
	assert.False(t, ok)
}

func TestClearSession(t *testing.T) {
	s, _ := newStore()
	rec := httptest.NewRecorder()
	s.ClearSession(rec)
	assert.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0"))
}

func TestRequireAuth(t *testing.T) {
	s, _ := newStore()
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, int64(7), uid)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	login := httptest.NewRecorder()
	require.NoError(t, s.SetSession(login, httptest.NewRequest(http.MethodPost, "/login", nil), 7))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(login.Result().Cookies()[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
