// router/router.go
package router

import (
	"github.com/dalemusser/mild/config"
	"github.com/dalemusser/mild/logging"
	"github.com/dalemusser/mild/metrics"
	"github.com/dalemusser/mild/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New returns a chi router with the standard stack installed, outermost
// first: request ID, real IP, panic recovery, security headers, CORS,
// compression, body limit, metrics, access log. Unknown routes and methods
// get JSON errors. Routes themselves are mounted by the caller.
func New(cfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(middleware.CORSFromConfig(cfg))
	r.Use(middleware.CompressFromConfig(cfg))
	r.Use(middleware.LimitBodySize(cfg.MaxRequestBodyBytes))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
