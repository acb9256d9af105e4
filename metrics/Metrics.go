package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TotalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "exporter_http_requests_total",
		Help: "Number of http requests.",
	},
	[]string{"path", "code", "method"},
)

var HttpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "exporter_http_request_duration_seconds_histogram",
		Buckets: []float64{
			0.1, // 100 ms
			0.25,
			0.5,
			1,
			3,
			5,
			10,
			30,
		},
	},
	[]string{"path", "code", "method"},
)

var BatchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "exporter_batch_duration_seconds",
		Help:    "Duration of a single export batch invocation",
		Buckets: []float64{1, 5, 10, 20, 25, 30, 60},
	},
	[]string{"status"},
)

var ExportedRows = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "exporter_rows_total",
		Help: "Number of rows written to export files.",
	},
	[]string{"entity"},
)

var ExportJobsFinished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "exporter_jobs_finished_total",
		Help: "Number of export jobs which reached a terminal status.",
	},
	[]string{"status"},
)

var ExportJobQueueSize = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "exporter_job_queue_size",
		Help: "Export job count by non terminal status",
	},
	[]string{"status"},
)

var FileDownloads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "exporter_file_downloads_total",
		Help: "Number of export file downloads.",
	},
	[]string{"result"},
)

func RegisterAllPrometheusApplicationMetrics() {
	prometheus.Register(TotalRequests)
	prometheus.Register(ExportedRows)
	prometheus.Register(ExportJobsFinished)
	prometheus.Register(ExportJobQueueSize)
	prometheus.Register(FileDownloads)
}
