// internal/app/features/databases/handler.go
package databases

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/mild/httputil"
	"github.com/dalemusser/mild/internal/app/catalog"
	"github.com/dalemusser/mild/internal/app/registry"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Store is the read side of *registry.Registry.
type Store interface {
	Registered() []catalog.DatabaseID
	Get(id catalog.DatabaseID) (*registry.Entry, error)
}

// View is the JSON form of a registry entry. The connection string has its
// password masked.
type View struct {
	ID               string    `json:"id"`
	DatabaseName     string    `json:"database_name"`
	ClusterName      string    `json:"cluster_name"`
	ConnectionString string    `json:"connection_string"`
	RegisteredAt     time.Time `json:"registered_at"`
}

// Handler serves the registered database listing.
type Handler struct {
	Store Store
	Log   *zap.Logger
}

// NewHandler constructs a databases Handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Log: logger}
}

// Routes returns the read-only databases router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	return r
}

func toView(e *registry.Entry) View {
	return View{
		ID:               string(e.ID),
		DatabaseName:     e.DatabaseName,
		ClusterName:      e.ClusterName,
		ConnectionString: e.ConnectionString(),
		RegisteredAt:     e.RegisteredAt,
	}
}

// ServeList handles GET /databases.
func (h *Handler) ServeList(w http.ResponseWriter, _ *http.Request) {
	out := []View{}
	for _, id := range h.Store.Registered() {
		e, err := h.Store.Get(id)
		if err != nil {
			continue
		}
		out = append(out, toView(e))
	}
	httputil.WriteJSON(w, h.Log, http.StatusOK, out)
}

// ServeGet handles GET /databases/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	e, err := h.Store.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, h.Log, http.StatusOK, toView(e))
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (catalog.DatabaseID, bool) {
	raw := chi.URLParam(r, "id")
	id, ok := catalog.ParseDatabaseID(raw)
	if !ok {
		httputil.JSONError(w, h.Log, http.StatusNotFound, "unknown_database",
			"unknown database "+strings.TrimSpace(raw))
	}
	return id, ok
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnregisteredIdentifier):
		httputil.JSONError(w, h.Log, http.StatusNotFound, "not_registered", err.Error())
	case errors.Is(err, registry.ErrInvalidIdentifier):
		httputil.JSONError(w, h.Log, http.StatusBadRequest, "bad_request", err.Error())
	default:
		h.Log.Error("database lookup failed", zap.Error(err))
		httputil.JSONError(w, h.Log, http.StatusInternalServerError, "internal", "internal error")
	}
}
