// Package httpapi assembles the chi router.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

// Options configures the router.
type Options struct {
	JWTSecret       string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	AllowedOrigins  []string
	RateLimitPerMin int
	// StaticDir, when set, is served under /static for locally stored
	// artifacts.
	StaticDir string
	Logger    zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(opts.JWTSecret))

		r.Route("/credits", func(r chi.Router) {
			r.Get("/balance", app.CreditBalance)
			r.Get("/transactions", app.CreditTransactions)
			r.With(middleware.RequireRole(middleware.RoleAdmin)).Post("/topup", app.CreditTopUp)
		})

		r.Route("/projects/{project_id}", func(r chi.Router) {
			r.Get("/scenes", app.ListScenes)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
				r.Post("/script", app.StartScript)
				r.Post("/images", app.StartImages)
				r.Post("/audio", app.StartAudio)
			})
		})

		r.Get("/jobs/{job_id}", app.JobStatus)
		r.Get("/usage/summary", app.UsageSummary)
	})

	return r
}
