// Package server is the development backend: the HTTP API the client talks
// to, backed by the workspace SQLite database and the reference catalog.
package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bobemploi/internal/config"
	"bobemploi/internal/engine/auth"
	"bobemploi/internal/events"
	"bobemploi/internal/generator"
	"bobemploi/internal/metrics"
	"bobemploi/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	DB       *sql.DB
	Settings *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

const notFoundPage = `<!doctype html>
<html lang="fr">
<head><title>Bob</title></head>
<body><p>Not Found</p></body>
</html>`

// apiError is the JSON error envelope the client reads its banner from.
type apiError struct {
	status  int
	Message string `json:"message"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, message string) huma.StatusError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &apiError{status: status, Message: message}
}

type backend struct {
	repo     repo.Repo
	events   events.Writer
	gen      generator.Generator
	settings *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func newBackend(cfg Config) *backend {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	gen := generator.New(settings)
	gen.Now = now
	gen.Logger = logger
	return &backend{
		repo:     repo.Repo{DB: cfg.DB},
		events:   events.Writer{DB: cfg.DB, Now: now},
		gen:      gen,
		settings: settings,
		logger:   logger,
		metrics:  cfg.Metrics,
		now:      now,
	}
}

// New returns an HTTP handler exposing the Bob API.
func New(cfg Config) (http.Handler, error) {
	if cfg.DB == nil {
		return nil, errors.New("server: database required")
	}
	b := newBackend(cfg)
	basePath := b.settings.Server.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		return newAPIError(status, msg)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cfg.Metrics.Middleware)
	router.Use(requestLogger(b.logger))
	router.Use(newAuthMiddleware(basePath, b.settings.Server.JWTSecret, b.now))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, notFoundPage)
	})
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	hcfg := huma.DefaultConfig("Bob Emploi API", "1.0.0")
	hcfg.OpenAPIPath = path.Join(basePath, "openapi")
	hcfg.DocsPath = path.Join(basePath, "docs")
	hcfg.SchemasPath = path.Join(basePath, "schemas")
	applyAuthSecurity(hcfg.OpenAPI)
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	b.registerUsers(group)
	b.registerResources(group)
	return router, nil
}

func handleError(logger *slog.Logger, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var fe auth.ForbiddenError
	switch {
	case errors.As(err, &fe):
		return newAPIError(http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		return newAPIError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidSalt), errors.Is(err, errWrongPassword):
		return newAPIError(http.StatusForbidden, err.Error())
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, generator.ErrUnknownJobGroup):
		return newAPIError(http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrEmailTaken):
		return newAPIError(http.StatusConflict, err.Error())
	}
	logger.Error("request failed", "err", err)
	return newAPIError(http.StatusInternalServerError, "internal error")
}

func (b *backend) fail(err error) huma.StatusError {
	return handleError(b.logger, err)
}

func (b *backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
			)
		})
	}
}

func applyAuthSecurity(oas *huma.OpenAPI) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
}

var bearerSecurity = []map[string][]string{{"bearerAuth": {}}}

type healthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})
}
