// Package metrics holds the process-wide Prometheus collectors shared by
// the producer and consumer sides: frame encode/decode counts, live
// session and subscription gauges, and control-channel request latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesEncoded counts frames written by a stream.Writer, labeled by
	// frame kind ("meta" or "data").
	FramesEncoded *prometheus.CounterVec

	// FramesDecoded counts frames read by a consumer.Handler, labeled the
	// same way.
	FramesDecoded *prometheus.CounterVec

	// ActiveSessions is the number of producer sessions currently
	// registered on a server.
	ActiveSessions prometheus.Gauge

	// ActiveSubscriptions is the number of signal subscriptions currently
	// active across all producer sessions.
	ActiveSubscriptions prometheus.Gauge

	// ControlRequestDuration observes how long a JSON-RPC control request
	// takes to serve, labeled by command ("subscribe"/"unsubscribe").
	ControlRequestDuration *prometheus.HistogramVec
)

func init() {
	FramesEncoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streaming_protocol",
		Name:      "frames_encoded_total",
		Help:      "Number of frames written to a transport, by frame kind",
	}, []string{"kind"})

	FramesDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streaming_protocol",
		Name:      "frames_decoded_total",
		Help:      "Number of frames read from a transport, by frame kind",
	}, []string{"kind"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streaming_protocol",
		Name:      "active_sessions",
		Help:      "Number of producer sessions currently registered",
	})

	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streaming_protocol",
		Name:      "active_subscriptions",
		Help:      "Number of signal subscriptions currently active",
	})

	ControlRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streaming_protocol",
		Name:      "control_request_duration_seconds",
		Help:      "Latency of JSON-RPC control requests, by command",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command"})

	prometheus.MustRegister(
		FramesEncoded,
		FramesDecoded,
		ActiveSessions,
		ActiveSubscriptions,
		ControlRequestDuration,
	)
}
