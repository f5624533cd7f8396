// pantry/pprof/pprof.go
package pprof

import (
	"net/http"
	stdpprof "net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// Mount serves the runtime profiles under /debug/pprof. Profiles expose
// internals, so callers only mount it outside production.
func Mount(r chi.Router) {
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", stdpprof.Index)
		r.Get("/cmdline", stdpprof.Cmdline)
		r.Get("/profile", stdpprof.Profile)
		r.Get("/trace", stdpprof.Trace)
		r.Method(http.MethodGet, "/symbol", http.HandlerFunc(stdpprof.Symbol))
		r.Method(http.MethodPost, "/symbol", http.HandlerFunc(stdpprof.Symbol))
		r.Get("/{profile}", func(w http.ResponseWriter, req *http.Request) {
			stdpprof.Handler(chi.URLParam(req, "profile")).ServeHTTP(w, req)
		})
	})
}
