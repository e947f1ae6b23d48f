package httpapi

import (
	"encoding/json"
	"net/http"

	"campussim/internal/registry"
)

// errorEnvelope is the wire shape of every HTTP error response
// (spec.md §6): {"error": "<message>"}.
type errorEnvelope struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps a registry.ErrorKind to the HTTP status the spec's
// error table assigns it.
func statusForKind(kind registry.ErrorKind) int {
	switch kind {
	case registry.ErrUnknownPoint:
		return http.StatusNotFound
	case registry.ErrNotWritable, registry.ErrBadPriority, registry.ErrBadType:
		return http.StatusBadRequest
	case registry.ErrNotOwner:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeRegistryError translates a registry error into the documented
// JSON envelope and status code. Non-registry errors map to 500.
func writeRegistryError(w http.ResponseWriter, err error) {
	if rerr, ok := err.(*registry.Error); ok {
		writeError(w, statusForKind(rerr.Kind), rerr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
