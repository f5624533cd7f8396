// middleware/compress.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mild/config"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// compressionLevel is the gzip/deflate level used when compression is on.
const compressionLevel = 5

// CompressFromConfig compresses JSON and text responses when
// enable_compression is on.
func CompressFromConfig(cfg *config.CoreConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.EnableCompression {
		return passthrough
	}
	return chimw.Compress(compressionLevel, "application/json", "text/plain")
}
