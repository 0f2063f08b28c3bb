package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"truebalance/internal/shared/middleware"
)

const maxRequestBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// decodeJSON reads one JSON object from the body. An empty body yields
// errEmptyBody so callers with optional bodies can accept it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// requireUser returns the authenticated user id or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return "", false
	}
	return userID, true
}

func requestLogger(logger logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	entry := logger.WithField("request_id", middleware.RequestIDFromContext(r.Context()))
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}
