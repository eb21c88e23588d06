package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/wifiradar/internal/monitoring"
)

var logf = monitoring.Component("http")

// ErrorBody is the JSON shape of every error the API returns and the shape
// GetJSON looks for in non-2xx responses.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status. Device tables change every tick,
// so responses are never cacheable.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("failed to encode %d response: %v", status, err)
	}
}

// WriteJSONOK is WriteJSON with 200 OK.
func WriteJSONOK(w http.ResponseWriter, v interface{}) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteError writes msg as an ErrorBody.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}

func MethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func BadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusNotFound, msg)
}

// InternalServerError also logs msg, since the caller usually has nowhere
// else to report it.
func InternalServerError(w http.ResponseWriter, msg string) {
	logf("internal error: %s", msg)
	WriteError(w, http.StatusInternalServerError, msg)
}
