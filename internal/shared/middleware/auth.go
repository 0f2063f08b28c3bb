package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/user"
	"truebalance/internal/shared/auth"
)

// Auth requires a valid bearer JWT whose session row still exists and has
// not expired. Logging out deletes the row, so a logged-out token is
// rejected even before its exp claim.
func Auth(jwt *auth.JWT, sessions user.SessionRepository, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Access token required")
				return
			}

			claims, err := jwt.Validate(token)
			if err != nil {
				writeError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			tokenHash := auth.HashToken(token)
			session, err := sessions.GetByTokenHash(r.Context(), tokenHash)
			if err != nil {
				if !errors.Is(err, user.ErrSessionNotFound) {
					logger.WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Error("Session lookup failed")
					writeError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				writeError(w, http.StatusForbidden, "Session expired")
				return
			}
			if session.Expired(time.Now()) || session.UserID != claims.UserID() {
				writeError(w, http.StatusForbidden, "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID())
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, SessionIDKey, session.ID)
			ctx = context.WithValue(ctx, TokenHashKey, tokenHash)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token cookie.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}
