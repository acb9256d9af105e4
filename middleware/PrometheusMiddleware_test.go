package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Netcracker/qubership-data-exporter/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware_CountsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/exports/{jobId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Use(PrometheusMiddleware)

	before := testutil.ToFloat64(metrics.TotalRequests.WithLabelValues("/api/v1/exports/{jobId}", "404", http.MethodGet))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	after := testutil.ToFloat64(metrics.TotalRequests.WithLabelValues("/api/v1/exports/{jobId}", "404", http.MethodGet))
	assert.Equal(t, before+1, after)
}
