package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gregfu05/api-aggregator/internal/db"
)

type RequestLogStore interface {
	InsertRequestLog(ctx context.Context, entry db.RequestLog) error
}

type logStatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *logStatusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogMiddleware tags each request with an ID and persists a log row
// after it completes. A failed insert is logged and swallowed; request
// logging must never fail the request itself.
func RequestLogMiddleware(store RequestLogStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			w.Header().Set("X-Request-ID", requestID)

			recorder := &logStatusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			entry := db.RequestLog{
				RequestID:  requestID,
				Method:     r.Method,
				Path:       r.URL.Path,
				Query:      r.URL.RawQuery,
				Status:     recorder.status,
				DurationMs: time.Since(start).Milliseconds(),
				CreatedAt:  start.UTC(),
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
			defer cancel()
			if err := store.InsertRequestLog(ctx, entry); err != nil {
				slog.Warn("failed to persist request log", "error", err, "request_id", requestID)
			}
		})
	}
}
