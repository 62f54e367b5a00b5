package web

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/metrics"
)

// HTTPLogger logs every request with its status and duration and counts it
// in the request metrics.
func HTTPLogger(log *zap.Logger, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		wr := NewStatusCodeRecorderResponseWriter(w)
		handler.ServeHTTP(wr, r)
		metrics.RecordHTTPRequest(r.Method, wr.Status)
		log.Info("http",
			zap.Int("status", wr.Status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.String()),
			zap.Duration("took", time.Since(initialTime)),
		)
	})
}

type StatusCodeRecorderResponseWriter struct {
	http.ResponseWriter
	Status int
}

func (r *StatusCodeRecorderResponseWriter) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func NewStatusCodeRecorderResponseWriter(w http.ResponseWriter) *StatusCodeRecorderResponseWriter {
	return &StatusCodeRecorderResponseWriter{ResponseWriter: w, Status: http.StatusOK}
}
