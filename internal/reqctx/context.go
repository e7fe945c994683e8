package reqctx

import "context"

type ctxKey string

const (
	keyRID    ctxKey = "rid"
	keyUserID ctxKey = "user_id"
)

// WithRequestID stores the correlation id used in request logs.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RequestID returns the correlation id if present.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithUserID stores the authenticated user's id.
func WithUserID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, keyUserID, id)
}

// UserID returns the authenticated user's id, or 0.
func UserID(ctx context.Context) uint64 {
	v, _ := ctx.Value(keyUserID).(uint64)
	return v
}
