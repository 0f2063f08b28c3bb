package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type ContextKey string

const (
	UserIDKey    ContextKey = "user_id"
	EmailKey     ContextKey = "email"
	SessionIDKey ContextKey = "session_id"
	TokenHashKey ContextKey = "token_hash"
	RequestIDKey ContextKey = "request_id"
)

// UserIDFromContext returns the authenticated user's ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// TokenHashFromContext returns the hash of the bearer token that authenticated the request.
func TokenHashFromContext(ctx context.Context) (string, bool) {
	h, ok := ctx.Value(TokenHashKey).(string)
	return h, ok && h != ""
}

// RequestIDFromContext returns the request's correlation ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
