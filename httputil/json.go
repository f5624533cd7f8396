// httputil/json.go
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as JSON with the given status. Status codes outside
// 100..599 become 500. Encoding failures can only be logged, since the
// status line has already gone out.
func WriteJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("json encode failed", zap.String("type", typeName(v)), zap.Error(err))
	}
}

// JSONError writes an ErrorResponse with a machine-readable code.
func JSONError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string) {
	WriteJSON(w, logger, status, ErrorResponse{Error: code, Message: message})
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
