// middleware/errors.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mild/httputil"
	"go.uber.org/zap"
)

// NotFoundHandler replies with a JSON 404. Pass it to chi's Router.NotFound.
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return jsonStatus(logger, http.StatusNotFound, "not_found", "resource not found")
}

// MethodNotAllowedHandler replies with a JSON 405. Pass it to chi's
// Router.MethodNotAllowed.
func MethodNotAllowedHandler(logger *zap.Logger) http.HandlerFunc {
	return jsonStatus(logger, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

func jsonStatus(logger *zap.Logger, status int, code, msg string) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(code,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		httputil.JSONError(w, logger, status, code, msg)
	}
}
