package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"mediastudio/internal/domain"
	"mediastudio/internal/http/handlers"
	"mediastudio/internal/infra"
	"mediastudio/internal/middleware"
	"mediastudio/internal/progress"
)

// Options configures the middleware around the handlers.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	Logger          infra.Logger
	Hub             *progress.Hub
	Upgrader        *websocket.Upgrader
	// StaticDir serves locally stored objects under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.EchoRequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	var createLimit []func(http.Handler) http.Handler
	if opts.RateLimitPerMin > 0 {
		createLimit = append(createLimit, middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Use(middleware.I18N(opts.DefaultLocale, opts.CountryLookup))

		r.Route("/v1/podcasts", app.JobRoutes(domain.JobKindPodcast, createLimit...))
		r.Route("/v1/videos", app.JobRoutes(domain.JobKindVideo, createLimit...))

		if opts.Hub != nil {
			upgrader := opts.Upgrader
			if upgrader == nil {
				upgrader = progress.NewUpgrader(opts.CORSOrigins)
			}
			r.Get("/v1/progress", progress.ServeWS(opts.Hub, opts.Logger, upgrader, middleware.OwnerFromContext))
		}
	})

	return r
}
