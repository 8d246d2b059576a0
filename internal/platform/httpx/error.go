package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/darzi-studio/api/internal/platform/requestctx"
)

// Error is the JSON error envelope every endpoint returns. Bodies always
// carry "success": false so clients can branch on one field before
// looking at the error code.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError builds an Error. A zero status becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    scrub(code, 80),
		Message: scrub(message, 512),
		Status:  status,
	}
}

// WithRequestID returns a copy carrying the request identifier.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = scrub(id, 80)
	return e
}

// WithTraceID returns a copy carrying the trace identifier.
func (e Error) WithTraceID(id string) Error {
	e.TraceID = scrub(id, 64)
	return e
}

// WithDetails returns a copy with extra top-level fields for the body.
// The map is copied so later caller mutations do not leak in.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	dup := make(map[string]any, len(details))
	for k, v := range details {
		dup[k] = v
	}
	e.Details = dup
	return e
}

// body assembles the wire payload, filling request and trace identifiers
// from the context when the error does not carry its own.
func (e Error) body(ctx context.Context, status int) map[string]any {
	payload := map[string]any{
		"success": false,
		"error":   e.Code,
		"message": e.Message,
		"status":  status,
	}

	requestID := e.RequestID
	if requestID == "" {
		requestID = scrub(middleware.GetReqID(ctx), 80)
	}
	if requestID != "" {
		payload["request_id"] = requestID
	}

	traceID := e.TraceID
	if traceID == "" {
		traceID = scrub(requestctx.TraceID(ctx), 64)
	}
	if traceID != "" {
		payload["trace_id"] = traceID
	}

	for k, v := range e.Details {
		payload[k] = v
	}
	return payload
}

// WriteError renders err as the JSON error envelope.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, err.body(ctx, status))
}

// WriteJSON writes payload as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// scrub flattens newlines and caps length so identifiers and messages
// stay single-line in the body.
func scrub(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.NewReplacer("\n", " ", "\r", " ").Replace(value)
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
