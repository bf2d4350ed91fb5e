// Package routes assembles the public HTTP handler: middleware stack, error
// handlers, the health check and the huma API hosting the greeting.
package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/cloudrun-psitron/internal/http/greeting"
	"github.com/janisto/cloudrun-psitron/internal/http/health"
	applog "github.com/janisto/cloudrun-psitron/internal/platform/logging"
	"github.com/janisto/cloudrun-psitron/internal/platform/metrics"
	appmiddleware "github.com/janisto/cloudrun-psitron/internal/platform/middleware"
	"github.com/janisto/cloudrun-psitron/internal/platform/respond"
)

const (
	// DocsPath serves the interactive API reference.
	DocsPath = "/api-docs"
	// HealthPath is probed by Cloud Run and load balancers.
	HealthPath = "/health"

	maxRequestBytes = 1 << 20
)

// Options configures New.
type Options struct {
	// Environment is reported by the greeting.
	Environment string
	// Version labels the OpenAPI document.
	Version string
	// Metrics, when set, observes every request.
	Metrics *metrics.Collector
}

// New builds the router serving GET / and GET /health.
func New(opts Options) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	middlewares := []func(http.Handler) http.Handler{
		appmiddleware.Security(DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// Cloud Run terminates TLS and sets X-Forwarded-For; only trust it behind such a proxy.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxRequestBytes),
		chimiddleware.GetHead,
		applog.RequestLogger(),
		applog.AccessLogger(),
	}
	if opts.Metrics != nil {
		middlewares = append(middlewares, opts.Metrics.Middleware())
	}
	middlewares = append(middlewares, respond.Recoverer())
	router.Use(middlewares...)

	router.Get(HealthPath, health.Handler)

	api := humachi.New(router, apiConfig(opts.Version))
	greeting.Register(api, opts.Environment)

	return router
}

func apiConfig(version string) huma.Config {
	cfg := huma.DefaultConfig("Psitron Greeting API", version)
	cfg.DocsPath = DocsPath
	// No schema link transformer: response bodies carry only their documented fields.
	cfg.CreateHooks = nil
	cfg.OnAddOperation = append(cfg.OnAddOperation, addCBORContent)
	return cfg
}

// addCBORContent advertises application/cbor next to every JSON request and response body.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if c, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = c
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if c, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = c
		}
	}
}
