package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Netcracker/qubership-data-exporter/metrics"
	"github.com/gorilla/mux"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{w, http.StatusOK}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := "unknown"
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		now := time.Now()

		lrw := newLoggingResponseWriter(w)
		next.ServeHTTP(lrw, r)

		elapsedSeconds := time.Since(now).Seconds()
		code := strconv.Itoa(lrw.statusCode)
		metrics.TotalRequests.WithLabelValues(path, code, r.Method).Inc()
		metrics.HttpDuration.WithLabelValues(path, code, r.Method).Observe(elapsedSeconds)
	})
}
