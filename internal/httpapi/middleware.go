package httpapi

import (
	"net/http"
	"time"

	"saginctl/pkg/logger"
)

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs method, path, status, and duration for every request,
// adapted from the reference gateway's gRPC logging interceptor (method,
// duration, status/error, Info vs Error) to a plain http.Handler shape.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(started)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Log.Error("http request", fields...)
		} else {
			logger.Log.Info("http request", fields...)
		}
	})
}
