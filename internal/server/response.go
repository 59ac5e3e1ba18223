package server

import (
	"encoding/json"
	"net/http"

	"github.com/arbor-chat/arbor/internal/chaterr"
)

// ErrorResponse is the JSON error body: the taxonomy code plus a
// human-readable message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeChatError renders a structured error with its mapped status.
func writeChatError(w http.ResponseWriter, ce *chaterr.Error) {
	writeJSON(w, ce.Status(), ErrorResponse{Code: ce.Code(), Message: ce.Message})
}

// writeError classifies an arbitrary error and renders it.
func writeError(w http.ResponseWriter, err error) {
	writeChatError(w, chaterr.Classify(err))
}
