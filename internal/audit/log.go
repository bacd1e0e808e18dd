package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"taskmanager.org/internal/auth"
	"taskmanager.org/internal/obs"
)

// Account audit events.
const (
	EventLoginSucceeded    = "auth.login.succeeded"
	EventLoginFailed       = "auth.login.failed"
	EventAccountRegistered = "auth.account.registered"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and principal context.
// Callers must not pass secrets in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []any{
		slog.String("type", "audit"),
		slog.String("event", event),
		slog.Time("at", time.Now().UTC()),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		attrs = append(attrs, slog.String("subject", p.Subject))
	}
	fieldAttrs := make([]any, 0, len(fields))
	for k, v := range fields {
		fieldAttrs = append(fieldAttrs, slog.Any(k, v))
	}
	attrs = append(attrs, slog.Group("fields", fieldAttrs...))

	if ctx == nil {
		ctx = context.Background()
	}
	obs.Logger().InfoContext(ctx, "audit", attrs...)
	return nil
}
