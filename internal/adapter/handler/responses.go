package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Code:    code,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrAlreadyActive, http.StatusConflict, "already_active"},
	{domain.ErrNoActiveReservation, http.StatusPreconditionFailed, "no_active_reservation"},
	{domain.ErrInvalidInterval, http.StatusUnprocessableEntity, "invalid_interval"},
	{domain.ErrCapacityConflict, http.StatusLocked, "capacity_conflict"},
	{domain.ErrNoCapacity, http.StatusServiceUnavailable, "no_capacity"},
}

// StatusFor maps a core error to its HTTP status and stable error code.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError renders err; unexpected errors are logged and hidden.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log *zap.Logger, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		meta := extractMeta(ctx)
		log.Error("request failed",
			zap.Error(err),
			zap.String("request_id", meta.RequestID),
			zap.String("trace_id", meta.TraceID),
		)
		WriteError(ctx, w, status, code, "internal server error")
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		WriteError(ctx, w, status, code, verr.Error())
		return
	}

	WriteError(ctx, w, status, code, rootMessage(err))
}

// rootMessage is the message of the domain sentinel, without wrapping context.
func rootMessage(err error) string {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.target.Error()
		}
	}
	return err.Error()
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when
// optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError("body", "invalid json body")
	}

	return nil
}
