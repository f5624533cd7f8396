// middleware/security.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mild/config"
)

// SecurityHeaders sets the response headers every JSON endpoint should carry.
// Strict-Transport-Security is only sent on TLS requests in prod.
func SecurityHeaders(cfg *config.CoreConfig) func(http.Handler) http.Handler {
	hsts := cfg != nil && cfg.Env == "prod"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			if hsts && r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
