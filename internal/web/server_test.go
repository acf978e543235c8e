package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebook/internal/auth"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/internaltypes"
)

type users struct{ hash string }

func (u *users) CreateUser(_ context.Context, _, hash string) error {
	u.hash = hash
	return nil
}

func (u *users) UserCredentials(_ context.Context, username string) (int64, string, error) {
	if username != "manager" || u.hash == "" {
		return 0, "", internaltypes.ErrNotFound
	}
	return 1, u.hash, nil
}

type board struct {
	byDate map[string][]reservation.Reservation
	err    error
	asked  []string
}

func (b *board) ListByDate(_ context.Context, date string) ([]reservation.Reservation, error) {
	b.asked = append(b.asked, date)
	return append([]reservation.Reservation(nil), b.byDate[date]...), b.err
}

func newTestServer(t *testing.T, b *board) *httptest.Server {
	t.Helper()
	a := auth.NewStore(&users{}, securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	require.NoError(t, a.CreateUser(context.Background(), "manager", "s3cret-pass"))

	s := &Server{
		Auth:         a,
		Reservations: b,
		Location:     time.UTC,
		Log:          zerolog.Nop(),
		Now:          func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) },
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func client(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return sb.String()
}

func login(t *testing.T, c *http.Client, base, password string) *http.Response {
	t.Helper()
	resp, err := c.PostForm(base+"/login", url.Values{"username": {"manager"}, "password": {password}})
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &board{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body(t, resp))
}

func TestBoardRequiresLogin(t *testing.T) {
	ts := newTestServer(t, &board{})
	resp, err := client(t).Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginPage(t *testing.T) {
	ts := newTestServer(t, &board{})
	resp, err := http.Get(ts.URL + "/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `<form method="post" action="/login">`)
}

func TestLoginRejected(t *testing.T) {
	ts := newTestServer(t, &board{})
	resp := login(t, client(t), ts.URL, "wrong-pass")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Invalid username/password")
}

func TestBoardShowsTodaySortedByTime(t *testing.T) {
	b := &board{byDate: map[string][]reservation.Reservation{
		"2025-03-15": {
			{ID: 2, Date: "2025-03-15", Time: "20:00", TableNumber: "5", GuestName: "Мария", Guests: 2},
			{ID: 1, Date: "2025-03-15", Time: "18:30", TableNumber: "12", TableStrict: true, GuestName: "Иван", Guests: 4, Deposit: 5000},
		},
	}}
	ts := newTestServer(t, b)
	c := client(t)

	resp := login(t, c, ts.URL, "s3cret-pass")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)

	assert.Equal(t, []string{"2025-03-15"}, b.asked)
	assert.Contains(t, page, "15.03.2025")
	assert.Contains(t, page, "2 reservations, 6 guests")
	assert.Contains(t, page, "12!")
	assert.Contains(t, page, `href="/?date=2025-03-14"`)
	assert.Contains(t, page, `href="/?date=2025-03-16"`)
	assert.Less(t, strings.Index(page, "Иван"), strings.Index(page, "Мария"))
}

func TestBoardDateParam(t *testing.T) {
	b := &board{}
	ts := newTestServer(t, b)
	c := client(t)
	login(t, c, ts.URL, "s3cret-pass").Body.Close()

	resp, err := c.Get(ts.URL + "/?date=2025-04-01")
	require.NoError(t, err)
	page := body(t, resp)
	assert.Contains(t, page, "No reservations.")

	resp, err = c.Get(ts.URL + "/?date=tomorrow")
	require.NoError(t, err)
	assert.Contains(t, body(t, resp), "Invalid date, showing today")

	assert.Equal(t, []string{"2025-04-01", "2025-03-15"}, b.asked)
}

func TestBoardStoreError(t *testing.T) {
	ts := newTestServer(t, &board{err: errors.New("connection refused")})
	c := client(t)
	login(t, c, ts.URL, "s3cret-pass").Body.Close()

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, &board{})
	c := client(t)
	login(t, c, ts.URL, "s3cret-pass").Body.Close()

	resp, err := c.Get(ts.URL + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, err = c.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestStaticAndNotFound(t *testing.T) {
	ts := newTestServer(t, &board{})
	resp, err := http.Get(ts.URL + "/static/style.css")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body(t, resp)

	c := client(t)
	login(t, c, ts.URL, "s3cret-pass").Body.Close()
	resp, err = c.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
