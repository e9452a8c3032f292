// Package api provides the REST and WebSocket server for the dashboard.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/volumod/tracker/internal/trackerr"
)

// APIError is the standard error response format.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSONResponse writes a successful JSON response.
func JSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// JSONResponseStatus writes a JSON response with a specific status code.
func JSONResponseStatus(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// JSONError writes a simple error response.
func JSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{Error: message})
}

// HandleError inspects the error type and writes the matching response.
// Typed tracker errors map onto HTTP status by category; anything else
// is a 500.
func HandleError(w http.ResponseWriter, err error) {
	var terr *trackerr.TrackError
	if errors.As(err, &terr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(terr.HTTPStatus())
		_ = json.NewEncoder(w).Encode(APIError{
			Error:   terr.What,
			Code:    string(terr.Code),
			Details: terr.Fix,
		})
		return
	}
	JSONError(w, err.Error(), http.StatusInternalServerError)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
