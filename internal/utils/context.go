package utils

import "context"

type contextKey string

const userIDKey contextKey = "user_id"

// WithUserID stores the authenticated subject on ctx
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext returns the subject set by the auth middleware
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
