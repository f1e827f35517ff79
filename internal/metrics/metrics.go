// Package metrics records scan outcomes as Prometheus series.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gzhole/lastlayer/internal/backend"
	"github.com/gzhole/lastlayer/internal/threat"
	"github.com/gzhole/lastlayer/internal/wire"
)

// Error reasons used as the value of the reason label.
const (
	ReasonUnavailable = "backend_unavailable"
	ReasonMalformed   = "malformed_response"
	ReasonInvalidKind = "invalid_threat_kind"
	ReasonOther       = "other"
)

// riskNone labels scans whose band is empty.
const riskNone = "none"

// Recorder holds the scan series. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	scans    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	markers  *prometheus.CounterVec
	duration prometheus.Histogram
}

// New creates the series and registers them with reg. A nil reg leaves them
// unregistered, which tests use to read values without a global registry.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lastlayer_scans_total",
			Help: "Total completed scans by risk band.",
		}, []string{"risk"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lastlayer_scan_errors_total",
			Help: "Total failed scans by reason.",
		}, []string{"reason"}),
		markers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lastlayer_markers_total",
			Help: "Total threat markers reported after suppression, by threat kind.",
		}, []string{"threat"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lastlayer_scan_duration_seconds",
			Help:    "Scan duration in seconds, backend call included.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(r.scans, r.errors, r.markers, r.duration)
	}
	return r
}

// ObserveScan records a completed scan.
func (r *Recorder) ObserveScan(risk string, markers threat.Markers, elapsed time.Duration) {
	if r == nil {
		return
	}
	if risk == "" {
		risk = riskNone
	}
	r.scans.WithLabelValues(risk).Inc()
	for _, k := range markers.Kinds() {
		r.markers.WithLabelValues(k.String()).Inc()
	}
	r.duration.Observe(elapsed.Seconds())
}

// ObserveError records a failed scan.
func (r *Recorder) ObserveError(err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(Reason(err)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// Reason maps a scan error to its reason label.
func Reason(err error) string {
	switch {
	case errors.Is(err, backend.ErrUnavailable):
		return ReasonUnavailable
	case errors.Is(err, wire.ErrMalformedResponse):
		return ReasonMalformed
	case errors.Is(err, threat.ErrInvalidThreatKind):
		return ReasonInvalidKind
	default:
		return ReasonOther
	}
}

// Handler serves the series registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
