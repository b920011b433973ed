package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/httpx"
	"github.com/chocolog/api/internal/platform/pagination"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"
)

const maxRequestBodySize = 1 << 20

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body exceeds the allowed size")
)

// notesPolicy strips markup from free-text fields before they reach the services.
var notesPolicy = bluemonday.StrictPolicy()

func sanitizeText(value string) string {
	return strings.TrimSpace(notesPolicy.Sanitize(value))
}

func sanitizeTextPtr(value *string) *string {
	if value == nil {
		return nil
	}
	clean := sanitizeText(*value)
	return &clean
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

func decodeJSONBody(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("request body is not valid JSON")
	}
	return nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTimeParam(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func pagerFromRequest(r *http.Request) (domain.Pagination, error) {
	return pagination.FromRequest(r, pagination.Options{})
}

func writePaginationError(ctx context.Context, w http.ResponseWriter, err error) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
}

func requestIDFrom(ctx context.Context) string {
	if id := requestctx.RequestID(ctx); id != "" {
		return id
	}
	return middleware.GetReqID(ctx)
}

// consumeEvents hands the events produced by a mutation to the consumer.
// Consumption is best-effort and never fails the request.
func consumeEvents(ctx context.Context, consumer *services.EventConsumer, events []domain.Event) {
	if consumer == nil || len(events) == 0 {
		return
	}
	consumer.Consume(ctx, requestIDFrom(ctx), events)
}
