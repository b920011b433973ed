package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
)

// Error is the canonical JSON error envelope every endpoint returns.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	Details   map[string]any
}

// NewError builds an error envelope. A zero status falls back to 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    flatten(code, maxCodeLen),
		Message: flatten(message, maxMessageLen),
		Status:  status,
	}
}

// WithRequestID stamps the correlation identifier on the envelope.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = flatten(id, maxCodeLen)
	return e
}

// WithDetails attaches extra JSON-serialisable fields to the envelope.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(details))
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

// WriteError renders the envelope as JSON. When the error carries no request
// identifier the one planted by the RequestID middleware is used instead.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	if id := requestID(ctx, err); id != "" {
		body["request_id"] = id
	}
	for k, v := range err.Details {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestID(ctx context.Context, err Error) string {
	if err.RequestID != "" {
		return err.RequestID
	}
	return flatten(middleware.GetReqID(ctx), maxCodeLen)
}

// flatten folds newlines into spaces and caps length so envelope fields stay
// single-line.
func flatten(value string, limit int) string {
	value = strings.NewReplacer("\n", " ", "\r", " ").Replace(value)
	value = strings.TrimSpace(value)
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
