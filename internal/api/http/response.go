package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/ratelimit"
)

type envelope struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Data        any      `json:"data,omitempty"`
}

// submitData is the data block of a successful submission response.
type submitData struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	VerificationRequired bool   `json:"verification_required"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("can't encode response", slog.String("err", err.Error()))
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, errMsg string) {
	writeJSON(w, status, envelope{Success: false, Error: errMsg})
}

func writeValidationError(w http.ResponseWriter, errMsg string, suggestions []string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: errMsg, Suggestions: suggestions})
}

// setRateHeaders attaches the limiter state to the response. Required on
// every response of a call that consulted the limiter, success or failure.
func setRateHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}
