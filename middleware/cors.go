// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mild/config"
	"github.com/go-chi/cors"
)

func passthrough(next http.Handler) http.Handler { return next }

// CORSFromConfig applies the CORS section of cfg, or nothing when
// enable_cors is off.
func CORSFromConfig(cfg *config.CoreConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.CORS.EnableCORS {
		return passthrough
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORS.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORS.CORSAllowedHeaders,
		ExposedHeaders:   cfg.CORS.CORSExposedHeaders,
		AllowCredentials: cfg.CORS.CORSAllowCredentials,
		MaxAge:           cfg.CORS.CORSMaxAge,
	})
}
