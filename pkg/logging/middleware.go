package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const CorrelationHeader = "X-Request-ID"

// Middleware tags each request with a correlation id (taken from
// X-Request-ID when the caller sends one) and logs one line per request.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(CorrelationHeader); id != "" {
			ctx = ContextWithCorrelationID(ctx, id)
		} else {
			ctx = WithCorrelationID(ctx)
		}
		w.Header().Set(CorrelationHeader, GetCorrelationID(ctx))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		l.Info(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
