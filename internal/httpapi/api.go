// Package httpapi is the HTTP layer: routing, middleware and the
// translation of domain errors into status codes.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/auth"
	"wordsofdeath.app/internal/discord"
	"wordsofdeath.app/internal/entries"
	"wordsofdeath.app/internal/obs"
)

// IdentityExchanger is the part of the Discord client the HTTP layer
// needs; tests substitute a stub.
type IdentityExchanger interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (discord.Profile, error)
}

// ReadyProbe reports whether the backing database answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the API dependencies and the handful of settings the
// handlers need.
type Options struct {
	Accounts *accounts.Service
	Entries  *entries.Service
	Sessions *auth.Sessions
	Identity IdentityExchanger
	Ready    ReadyProbe

	ClientURL       string
	AccessDeniedURL string
	AllowedOrigins  []string
	SecureCookies   bool
	Version         string
}

// API is the HTTP layer.
type API struct {
	router          chi.Router
	accounts        *accounts.Service
	entries         *entries.Service
	sessions        *auth.Sessions
	identity        IdentityExchanger
	readyProbe      ReadyProbe
	clientURL       string
	accessDeniedURL string
	secureCookies   bool
	version         string
	started         time.Time
}

func New(opts Options) (*API, error) {
	switch {
	case opts.Accounts == nil:
		return nil, errors.New("accounts service is required")
	case opts.Entries == nil:
		return nil, errors.New("entries service is required")
	case opts.Sessions == nil:
		return nil, errors.New("sessions are required")
	case opts.Identity == nil:
		return nil, errors.New("identity exchanger is required")
	}

	a := &API{
		accounts:        opts.Accounts,
		entries:         opts.Entries,
		sessions:        opts.Sessions,
		identity:        opts.Identity,
		readyProbe:      opts.Ready,
		clientURL:       opts.ClientURL,
		accessDeniedURL: opts.AccessDeniedURL,
		secureCookies:   opts.SecureCookies,
		version:         opts.Version,
		started:         time.Now(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(func(next http.Handler) http.Handler { return RateLimit(next, 20, 10) })
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, 1<<20) })

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Get("/auth/discord", a.handleDiscordLogin)
	r.Get("/auth/discord/callback", a.handleDiscordCallback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", a.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)

			r.Get("/entries", a.handleEntriesList)
			r.Post("/entries", a.handleEntryCreate)
			r.Get("/entries/{id}", a.handleEntryGet)
			r.Get("/entries/author/{username}", a.handleEntriesByAuthor)
			r.Get("/categories/{name}", a.handleCategory)
			r.Get("/search", a.handleSearch)

			r.Get("/user/i/{id}", a.handleUserByID)
			r.Get("/user/u/{username}", a.handleUserByUsername)
			r.Get("/whitelist", a.handleWhitelistList)

			r.Group(func(r chi.Router) {
				r.Use(a.requireElevated)

				r.Get("/check-admin", a.handleCheckAdmin)
				r.Get("/badges/{username}", a.handleBadgesList)
				r.Post("/whitelist", a.handleWhitelistAdd)
				r.Delete("/whitelist/{username}", a.handleWhitelistRemove)
				r.Post("/badges/{username}", a.handleBadgeAdd)
				r.Delete("/badges/{username}", a.handleBadgeRemove)
				r.Delete("/entries/{id}", a.handleEntryDelete)
			})
		})
	})

	a.router = r
	return a, nil
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "wordsofdeath-api",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "words of death is still breathing",
		"uptime":  int64(time.Since(a.started).Seconds()),
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
