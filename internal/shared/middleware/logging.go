package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

// Status returns the written status code, 200 when only the body was written.
func (rw *responseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}

	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Logging writes one structured line per request. Server errors log at
// error level, client errors at warn.
func Logging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			entry := logger.WithFields(logrus.Fields{
				"request_id":  RequestIDFromContext(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if userID, ok := UserIDFromContext(r.Context()); ok {
				entry = entry.WithField("user_id", userID)
			}

			switch {
			case status >= 500:
				entry.Error("http.request")
			case status >= 400:
				entry.Warn("http.request")
			default:
				entry.Info("http.request")
			}
		})
	}
}
