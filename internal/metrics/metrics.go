// Package metrics exposes prometheus counters/gauges for the transfer
// engine (packets sent/received, bytes transferred, pacing delay observed,
// handshake retries, completed transfers) and starts the HTTP servers that
// publish them.
package metrics

import (
	"net/http"
	_ "net/http/pprof"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	PacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mesxfer_packets_sent_total",
		Help: "The total number of wire envelopes sent.",
	})

	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mesxfer_packets_received_total",
		Help: "The total number of wire envelopes received.",
	})

	BytesTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mesxfer_bytes_transferred_total",
		Help: "The total number of .mes file bytes (file header and records) transferred.",
	})

	PacingDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mesxfer_pacing_delay_seconds",
		Help:    "Observed inter-record pacing delay before each send.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	HandshakeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mesxfer_handshake_retries_total",
		Help: "The total number of UDP handshake iterations that made no progress.",
	})

	TransfersCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mesxfer_transfers_completed_total",
		Help: "The total number of file transfers that reached Finish.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mesxfer_sink_queue_depth",
		Help: "The current depth of the durable logging sink queue.",
	})
)

// StartMetrics starts the /metrics endpoint on port in a background
// goroutine; a zero port disables it.
func StartMetrics(port int, logger logrus.FieldLogger) {
	if port == 0 {
		return
	}
	if logger == nil {
		logger = logrus.New()
	}
	go func() {
		addr := ":" + strconv.Itoa(port)
		logger.Debugln("metrics: starting at " + addr + "/metrics")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorln("metrics: failed to listen and serve:", err)
		}
	}()
}

// StartProfile starts the pprof profiling HTTP server on port; a zero port
// disables it. Endpoints are served under /debug/pprof/.
func StartProfile(port int, logger logrus.FieldLogger) {
	if port == 0 {
		return
	}
	if logger == nil {
		logger = logrus.New()
	}
	go func() {
		addr := ":" + strconv.Itoa(port)
		logger.Infoln("metrics: starting pprof at http://localhost" + addr + "/debug/pprof/")
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Errorln("metrics: failed to start pprof server:", err)
		}
	}()
}
