package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nawabsahab16/ancestral-ai/internal/http/handlers"
	"github.com/nawabsahab16/ancestral-ai/internal/middleware"
)

// Options configure routes that depend on deployment.
type Options struct {
	// StorageDir, when set, is served under /storage/ for the file store.
	StorageDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)

	rateLimit := 30
	var origins []string
	var functionKey string
	if app.Config != nil {
		functionKey = app.Config.PredictFunctionAPIKey
		if app.Config.RateLimitPerMin > 0 {
			rateLimit = app.Config.RateLimitPerMin
		}
		origins = app.Config.CORSAllowedOrigins
	}

	// Inference function: its own permissive CORS and OPTIONS handling.
	// Callers are verified first so the limiter counts per user.
	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(middleware.FunctionAuth(app.JWTSecret, functionKey))
		r.Use(middleware.RateLimit(rateLimit, time.Minute))
		r.Options("/predict-ancestor", app.PredictAncestor)
		r.Post("/predict-ancestor", app.PredictAncestor)
	})

	if opts.StorageDir != "" {
		fs := http.StripPrefix("/storage/", http.FileServer(http.Dir(opts.StorageDir)))
		r.Get("/storage/*", fs.ServeHTTP)
	}

	r.Mount("/v1", apiRouter(app, origins, rateLimit))

	return r
}

// apiRouter carries its own CORS layer so pre-flight requests are answered
// even for methods no route registers.
func apiRouter(app *handlers.App, origins []string, rateLimit int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(origins))

	r.Get("/healthz", app.Health)
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)
	r.Get("/previews/{token}", app.PreviewOpen)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.JWTSecret))

		r.Get("/predictions", app.PredictionsList)

		r.Route("/sessions", func(r chi.Router) {
			r.With(middleware.RateLimit(rateLimit, time.Minute)).Post("/", app.SessionsCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.SessionGet)
				r.Delete("/", app.SessionDelete)
				r.Put("/photos/{generation}", app.SessionPutPhoto)
				r.Delete("/photos/{generation}", app.SessionDeletePhoto)
				r.Post("/reset", app.SessionReset)
				r.Get("/result", app.SessionResult)
				r.Get("/download", app.SessionDownload)
				r.Get("/share", app.SessionShare)
			})
		})
	})

	return r
}
