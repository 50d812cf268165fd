// Package api assembles the HTTP router: middleware chain, item routes and
// the ambient endpoints (health, metrics, swagger, uploaded files).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/barangku/service/internal/auth"
	"github.com/barangku/service/internal/item"
	appMiddleware "github.com/barangku/service/internal/middleware"
	"github.com/barangku/service/internal/response"

	_ "github.com/barangku/service/docs/swagger"
)

// StaticFiles is implemented by storage backends that serve their own files.
type StaticFiles interface {
	Prefix() string
	Handler() http.Handler
}

// Deps are the collaborators the router is built from.
type Deps struct {
	Items         *item.Handler
	Authenticator auth.Authenticator
	// Static, when non-nil, is mounted under "/<Prefix>/".
	Static             StaticFiles
	CORSAllowedOrigins []string
	// RateLimitPerMinute limits requests per client IP; zero disables it.
	RateLimitPerMinute int
}

// NewRouter builds the chi router for the service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(appMiddleware.Metrics)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if d.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(d.RateLimitPerMinute, time.Minute))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, response.MsgRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.MsgMethodNotAllowed)
	})

	r.Get("/", Home)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI at /swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if d.Static != nil {
		prefix := "/" + d.Static.Prefix() + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, d.Static.Handler()))
	}

	r.Route("/barangku", func(r chi.Router) {
		r.Use(appMiddleware.Identify(d.Authenticator))

		// Listing is the one endpoint that tolerates an anonymous caller.
		r.Get("/", d.Items.List)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireIdentity)
			r.Post("/", d.Items.Create)
			r.Get("/{id:[0-9]+}", d.Items.Get)
			r.Put("/{id:[0-9]+}", d.Items.Update)
			r.Delete("/{id:[0-9]+}", d.Items.Delete)
		})
	})

	return r
}

// Home godoc
//
//	@Summary	Welcome message
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/ [get]
func Home(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"message": "Selamat datang di API Barangku"})
}
