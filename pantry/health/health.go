// pantry/health/health.go
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/mild/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds each probe when Handler is given no timeout.
const DefaultCheckTimeout = 5 * time.Second

// Check is a single probe. It returns nil when the dependency is healthy.
type Check func(ctx context.Context) error

// Response is the JSON body written by Handler.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs every check concurrently on each request. With no checks it
// is a plain liveness probe. Any failing check turns the reply into a 503
// with status "error".
func Handler(checks map[string]Check, timeout time.Duration, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			httputil.WriteJSON(w, logger, http.StatusOK, Response{Status: "ok"})
			return
		}

		results := Run(r.Context(), checks, timeout)
		resp := Response{Status: "ok", Checks: make(map[string]string, len(results))}
		status := http.StatusOK
		for name, err := range results {
			if err == nil {
				resp.Checks[name] = "ok"
				continue
			}
			resp.Status = "error"
			resp.Checks[name] = "error: " + err.Error()
			status = http.StatusServiceUnavailable
			logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
		}
		httputil.WriteJSON(w, logger, status, resp)
	})
}

// Run executes checks in parallel, each under its own timeout, and returns
// every result keyed by check name. Nil checks count as healthy.
func Run(ctx context.Context, checks map[string]Check, timeout time.Duration) map[string]error {
	var (
		mu      sync.Mutex
		results = make(map[string]error, len(checks))
		g       errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			var err error
			if check != nil {
				cctx, cancel := context.WithTimeout(ctx, timeout)
				err = check(cctx)
				cancel()
			}
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// MountAt attaches Handler at path as a GET route.
func MountAt(r chi.Router, path string, checks map[string]Check, timeout time.Duration, logger *zap.Logger) {
	r.Method(http.MethodGet, path, Handler(checks, timeout, logger))
}
