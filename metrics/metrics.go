// Package metrics records counters describing protocol and test activity.
// All metrics are registered with the default prometheus registry; Serve
// exposes them over HTTP when a metrics address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsNamespace = "suite_worker"

var (
	framesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "frames_sent_total",
		Help:      "Count of frames written to the physical transport",
	})

	framesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "frames_received_total",
		Help:      "Count of frames read from the physical transport",
	})

	framesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "frames_dropped_total",
		Help:      "Count of frames addressed to an unknown virtual channel",
	})

	testsRunTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_run_total",
		Help:      "Count of live test runs, by terminal result",
	}, []string{
		"result",
	})

	errorsRelayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_relayed_total",
		Help:      "Count of serialized errors sent to the host",
	})

	linesForwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "lines_forwarded_total",
		Help:      "Count of captured output lines forwarded to the host",
	})
)

func RecordFrameSent()     { framesSentTotal.Inc() }
func RecordFrameReceived() { framesReceivedTotal.Inc() }
func RecordFrameDropped()  { framesDroppedTotal.Inc() }

func RecordTestRun(result string) {
	testsRunTotal.WithLabelValues(result).Inc()
}

func RecordErrorRelayed()  { errorsRelayedTotal.Inc() }
func RecordLineForwarded() { linesForwardedTotal.Inc() }

// Serve exposes the default registry at /metrics on the given address. It
// blocks, so callers normally run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
