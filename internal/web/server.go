// Package web serves the read-only reservations board for staff.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/auth"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/render"
)

//go:embed templates/*.html static/*
var fs embed.FS

var funcs = template.FuncMap{"humanDate": render.HumanDate}

type Reservations interface {
	ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error)
}

type Server struct {
	Auth         *auth.Store
	Reservations Reservations
	Location     *time.Location
	Log          zerolog.Logger
	Now          func() time.Time
}

type tmplData struct {
	Title string
	User  int64
	Flash string

	Date         string
	Prev, Next   string
	Reservations []reservation.Reservation
	Guests       int
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.FileServer(http.FS(fs)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.Handle("/", s.Auth.RequireAuth(http.HandlerFunc(s.handleBoard)))

	return mux
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	date := reservation.Today(s.now(), s.loc())
	flash := ""
	if q := strings.TrimSpace(r.URL.Query().Get("date")); q != "" {
		if _, err := time.Parse(reservation.DateLayout, q); err != nil {
			flash = "Invalid date, showing today"
		} else {
			date = q
		}
	}

	rs, err := s.Reservations.ListByDate(r.Context(), date)
	if err != nil {
		s.Log.Error().Err(err).Str("date", date).Msg("list reservations")
		http.Error(w, "could not load reservations", http.StatusInternalServerError)
		return
	}
	reservation.SortByTime(rs)

	guests := 0
	for _, res := range rs {
		guests += res.Guests
	}
	day, _ := time.Parse(reservation.DateLayout, date)
	s.render(w, "templates/board.html", tmplData{
		Title:        "Reservations " + render.HumanDate(date),
		User:         uid,
		Flash:        flash,
		Date:         date,
		Prev:         day.AddDate(0, 0, -1).Format(reservation.DateLayout),
		Next:         day.AddDate(0, 0, 1).Format(reservation.DateLayout),
		Reservations: rs,
		Guests:       guests,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "templates/login.html", tmplData{Title: "Login"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		id, err := s.Auth.Authenticate(r.Context(), username, r.FormValue("password"))
		if errors.Is(err, internaltypes.ErrUnauthorized) {
			s.Log.Info().Str("username", username).Msg("login rejected")
			w.WriteHeader(http.StatusUnauthorized)
			s.render(w, "templates/login.html", tmplData{Title: "Login", Flash: "Invalid username/password"})
			return
		}
		if err != nil {
			s.Log.Error().Err(err).Msg("login")
			http.Error(w, "login unavailable", http.StatusInternalServerError)
			return
		}
		if err := s.Auth.SetSession(w, r, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.New("").Funcs(funcs).ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Start serves h on addr until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
