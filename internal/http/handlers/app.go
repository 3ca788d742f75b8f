package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imagegen"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/middleware"
	"github.com/nawabsahab16/ancestral-ai/internal/pipeline"
	"github.com/nawabsahab16/ancestral-ai/internal/present"
)

// PreviewOpener resolves preview tokens to the photos behind them.
type PreviewOpener interface {
	Open(token string) (domain.Photo, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

type App struct {
	Config      *infra.Config
	Logger      infra.Logger
	Predictions domain.PredictionRepository
	Generator   imagegen.Generator
	Sessions    *pipeline.Manager
	Previews    PreviewOpener
	Fetcher     present.Fetcher
	JWTSecret   string
	Checks      map[string]HealthChecker

	validateOnce    sync.Once
	validate        *validator.Validate
	generateLimiter chan struct{}
}

// NewApp wires the handler container. maxConcurrentGenerations bounds how
// many inference requests run against the provider at once.
func NewApp(cfg *infra.Config, logger infra.Logger, maxConcurrentGenerations int) *App {
	app := &App{Config: cfg, Logger: logger}
	if cfg != nil {
		app.JWTSecret = cfg.JWTSecret
	}
	if maxConcurrentGenerations > 0 {
		app.generateLimiter = make(chan struct{}, maxConcurrentGenerations)
	}
	return app
}

func (a *App) requestValidator() *validator.Validate {
	a.validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		a.validate = v
	})
	return a.validate
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// currentOwner carries the caller's bearer token so downstream calls can act
// on the user's behalf.
func (a *App) currentOwner(r *http.Request) domain.Owner {
	owner := domain.Owner{UserID: a.currentUserID(r)}
	if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		owner.Token = parts[1]
	}
	return owner
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrUpstreamRejected), errors.Is(err, domain.ErrTransient):
		return http.StatusBadGateway, "upstream"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
