package middleware

import "context"

type contextKey string

const (
	ctxCartSession contextKey = "cart_session"
	ctxRequestID   contextKey = "request_id"
)

// CartSessionFromContext returns the cart session resolved for the request.
func CartSessionFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxCartSession).(string)
	return v
}

func WithCartSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, ctxCartSession, session)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}
