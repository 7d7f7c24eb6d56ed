// Package web holds the small JSON response helpers shared by the request
// handlers.
package web

import (
	"encoding/json"
	"net/http"

	"shelfdesk/internal/apperr"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes the conventional {"message": ...} body.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Error classifies err through the apperr taxonomy and writes it.
func Error(w http.ResponseWriter, err error) {
	Message(w, apperr.HTTPStatus(err), err.Error())
}
