// internal/app/features/params/handler.go
package params

import (
	"net/http"
	"strings"

	"github.com/dalemusser/mild/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ParamTest echoes the path parameter back to the caller.
type ParamTest struct {
	ID string `json:"id"`
}

// Handler serves the params resource.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs a params Handler.
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Log: logger}
}

// Routes returns the resource's router; mount it at /mild/params.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeGet)
	r.Get("/{id}", h.ServeGet)
	return r
}

// ServeGet handles GET /mild/params/{id}. The id is echoed exactly as it
// arrived; only a blank one is rejected.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		httputil.JSONError(w, h.Log, http.StatusBadRequest, "bad_request", "id is required")
		return
	}
	httputil.WriteJSON(w, h.Log, http.StatusOK, ParamTest{ID: id})
}
