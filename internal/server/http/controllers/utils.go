package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rzbill/battlelog/internal/battle"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
)

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, battle.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, battlesvc.ErrEmptySubmission), errors.Is(err, battlesvc.ErrInvalidFilter),
		errors.Is(err, battlesvc.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseLimit parses a limit string and returns a valid limit value.
//
// Returns 0 for empty strings and an error for anything but a non-negative integer.
func parseLimit(limitStr string) (int, error) {
	if limitStr == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}
