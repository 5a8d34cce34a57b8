package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/store"
	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
)

// DefaultPerPage is the page size of list endpoints.
const DefaultPerPage = 50

// Version is reported by GET /api/v1/about.
const Version = "6.1.0-emulator"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	PerPage int           // Default: DefaultPerPage
	Timeout time.Duration // Default: 60 seconds
	Quiet   bool          // disable request logging
}

// NewRouter builds the HTTP handler of the emulator.
func NewRouter(st *store.Store, opts RouterOptions) http.Handler {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !opts.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	accounts := NewAccountsHandler(st, opts.PerPage)
	transactions := NewTransactionsHandler(st, opts.PerPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(st))

		r.Get("/about", About)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Post("/", accounts.Create)
			r.Get("/{id}", accounts.Get)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactions.List)
			r.Post("/", transactions.Create)
			r.Get("/{id}", transactions.Get)
			r.Put("/{id}", transactions.Update)
			r.Delete("/{id}", transactions.Delete)
		})
	})

	return r
}

// About handles GET /api/v1/about.
func About(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, firefly.About{Data: firefly.AboutData{
		Version:    Version,
		APIVersion: Version,
		Driver:     "bbolt",
	}})
}
