package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/store"
)

type errorBody struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Status    int       `json:"status_code"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg, detail string) {
	writeJSON(w, status, errorBody{
		Error:     msg,
		Detail:    detail,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// writeStoreError maps store failures to HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if store.IsNotFound(err) {
		writeError(w, r, http.StatusNotFound, "Not found", err.Error())
		return
	}
	zap.L().Error("store failure", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "Internal server error", "")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
