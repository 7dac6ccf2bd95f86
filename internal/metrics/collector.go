// Package codecmetrics exposes Prometheus metrics for the RMCP/IPMI
// codec: frame volumes per class and decode failures per error kind.
package codecmetrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/olle/eipmi/internal/ipmi"
	"github.com/olle/eipmi/internal/rmcp"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "eipmi"
	subsystem = "codec"
)

// Label names for codec metrics.
const (
	labelClass   = "class"
	labelPayload = "payload"
	labelKind    = "kind"
)

// Error kind label values, one per decode failure class.
const (
	KindShortFrame      = "short_frame"
	KindMalformedFrame  = "malformed_frame"
	KindUnsupported     = "unsupported_frame"
	KindUnsupportedAuth = "unsupported_auth_type"
	KindCorruptMessage  = "corrupt_message"
	KindAuthFailed      = "authentication_failed"
	KindMissingPassword = "missing_password"
	KindOther           = "other"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Codec Metrics
// -------------------------------------------------------------------------

// Collector holds all codec Prometheus metrics.
//
// The decode error counters are the interesting ones operationally:
// a rising corrupt_message rate flags a lossy path or a misbehaving
// BMC, a rising authentication_failed rate flags a key mismatch or
// tampering.
type Collector struct {
	// FramesDecoded counts successfully decoded frames by RMCP class
	// and payload variant.
	FramesDecoded *prometheus.CounterVec

	// FramesEncoded counts encoded frames by RMCP class.
	FramesEncoded *prometheus.CounterVec

	// DecodeErrors counts decode failures by error kind.
	DecodeErrors *prometheus.CounterVec
}

// NewCollector creates a Collector with all codec metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics are created with the "eipmi_codec_" prefix
// (namespace_subsystem) to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_decoded_total",
			Help:      "Total RMCP frames decoded successfully.",
		}, []string{labelClass, labelPayload}),

		FramesEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_encoded_total",
			Help:      "Total RMCP frames encoded.",
		}, []string{labelClass}),

		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decode_errors_total",
			Help:      "Total RMCP frame decode failures by error kind.",
		}, []string{labelKind}),
	}

	reg.MustRegister(
		c.FramesDecoded,
		c.FramesEncoded,
		c.DecodeErrors,
	)

	return c
}

// -------------------------------------------------------------------------
// Observations
// -------------------------------------------------------------------------

// ObserveDecode records the outcome of one DecodeFrame call. Exactly one
// counter is incremented per call.
func (c *Collector) ObserveDecode(frame *rmcp.Frame, err error) {
	if err != nil {
		c.DecodeErrors.WithLabelValues(ErrorKind(err)).Inc()
		return
	}

	c.FramesDecoded.WithLabelValues(
		frame.Header.Class.String(),
		payloadName(frame.Payload),
	).Inc()
}

// ObserveEncode records one encoded frame of the given class.
func (c *Collector) ObserveEncode(class rmcp.Class) {
	c.FramesEncoded.WithLabelValues(class.String()).Inc()
}

// ErrorKind maps a codec error to its counter label value.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ipmi.ErrAuthenticationFailed):
		return KindAuthFailed
	case errors.Is(err, ipmi.ErrMissingPassword):
		return KindMissingPassword
	case errors.Is(err, ipmi.ErrCorruptMessage):
		return KindCorruptMessage
	case errors.Is(err, ipmi.ErrUnsupportedAuthType):
		return KindUnsupportedAuth
	case errors.Is(err, rmcp.ErrUnsupportedFrame):
		return KindUnsupported
	case errors.Is(err, rmcp.ErrShortFrame), errors.Is(err, ipmi.ErrShortMessage):
		return KindShortFrame
	case errors.Is(err, rmcp.ErrMalformedFrame):
		return KindMalformedFrame
	default:
		return KindOther
	}
}

// payloadName names a decoded payload variant for the payload label.
func payloadName(p rmcp.Payload) string {
	switch p.(type) {
	case *rmcp.Ping:
		return "ping"
	case *rmcp.Pong:
		return "pong"
	case rmcp.ACK:
		return "ack"
	case *rmcp.IPMIPacket:
		return "ipmi"
	default:
		return "unknown"
	}
}
