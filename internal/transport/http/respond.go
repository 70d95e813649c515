package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"mindvault/internal/domain"
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// writeError maps domain errors to status codes. Anything unrecognised is a
// storage failure and its details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeMessage(w, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrNoQuizAvailable):
		return http.StatusNotFound, "No concepts with quiz questions found in this folder"
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, "Quiz attempt not found"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, userMessage(err, domain.ErrValidation)
	case errors.Is(err, domain.ErrUnsupportedImage):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// userMessage drops the sentinel prefix so "validation failed: name is required"
// reads as "name is required".
func userMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
