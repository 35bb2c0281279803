package httpapi

import (
	"net/http"
	"time"

	"github.com/bool64/ctxd"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger adds request id to logging context and logs completed requests.
func requestLogger(logger ctxd.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			if id := middleware.GetReqID(ctx); id != "" {
				ctx = ctxd.AddFields(ctx, "requestId", id)
				r = r.WithContext(ctx)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start).String(),
			)
		})
	}
}
