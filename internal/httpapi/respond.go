package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carbonlog/carbonlog/internal/sentinel"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Status: "error", Message: message})
}

// writeError translates domain errors into the JSON error envelope.
// Internal failures are reported without their cause.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := "Internal server error"
	switch status {
	case http.StatusNotFound:
		message = "User not found"
	case http.StatusConflict:
		message = "User already exists"
	case http.StatusBadRequest:
		message = err.Error()
	}
	writeMessage(w, status, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
