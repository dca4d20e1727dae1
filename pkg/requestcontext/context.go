// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; the sync engine and handlers read them without
// importing net/http.
//
//	operatorID := requestcontext.OperatorID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"

	id "roster/pkg/domain"
)

type (
	operatorIDKey  struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	runIDKey       struct{}
)

// OperatorID retrieves the authenticated operator from the context.
// Returns the zero value (nil UUID) if not set.
func OperatorID(ctx context.Context) id.OperatorID {
	if operatorID, ok := ctx.Value(operatorIDKey{}).(id.OperatorID); ok {
		return operatorID
	}
	return id.OperatorID{}
}

// WithOperator injects the authenticated operator and their role.
func WithOperator(ctx context.Context, operatorID id.OperatorID, role string) context.Context {
	ctx = context.WithValue(ctx, operatorIDKey{}, operatorID)
	return context.WithValue(ctx, roleKey{}, role)
}

// Role retrieves the authenticated operator's role, or "".
func Role(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey{}).(string); ok {
		return role
	}
	return ""
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the time seen by everything downstream of ctx. A sync run pins
// its start time so every account written in the run shares one timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// RunID retrieves the sync run ID from the context, or "".
func RunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey{}).(id.RunID); ok {
		return runID.String()
	}
	return ""
}

// WithRunID tags everything downstream with the sync run it belongs to.
func WithRunID(ctx context.Context, runID id.RunID) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}
