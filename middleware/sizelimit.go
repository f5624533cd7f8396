// middleware/sizelimit.go
package middleware

import "net/http"

// LimitBodySize caps request bodies at maxBytes. maxBytes <= 0 means no cap.
func LimitBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return passthrough
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
