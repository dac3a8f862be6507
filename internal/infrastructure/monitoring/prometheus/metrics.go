package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reason labels used by candidates_rejected_total.
const (
	ReasonEmbedding     = "embedding"
	ReasonNonConvergent = "non_convergent"
	ReasonRingIntegrity = "ring_integrity"
	ReasonDuplicate     = "duplicate"
)

// Round duration buckets in seconds; rounds span a fraction of a second for
// small rings up to minutes for dense sampling of large ones.
var defaultRoundBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// SearchMetrics holds the per-run search instrumentation.  A nil
// *SearchMetrics is valid and records nothing, so callers do not guard every
// observation site.
type SearchMetrics struct {
	RoundsTotal         prometheus.Counter
	CandidatesAttempted prometheus.Counter
	CandidatesAccepted  prometheus.Counter
	CandidatesRejected  *prometheus.CounterVec
	PoolSize            prometheus.Gauge
	RoundDuration       prometheus.Histogram
}

// NewSearchMetrics registers the search metrics on the collector.
func NewSearchMetrics(c *Collector) *SearchMetrics {
	return &SearchMetrics{
		RoundsTotal:         c.counter("search_rounds_total", "Search rounds executed"),
		CandidatesAttempted: c.counter("candidates_attempted_total", "Constraint sets drawn and embedded"),
		CandidatesAccepted:  c.counter("candidates_accepted_total", "Candidates inserted into the pool as new conformers"),
		CandidatesRejected:  c.counterVec("candidates_rejected_total", "Candidates discarded, by reason", "reason"),
		PoolSize:            c.gauge("pool_size", "Unique conformers currently held in the pool"),
		RoundDuration:       c.histogram("round_duration_seconds", "Wall time per search round", defaultRoundBuckets),
	}
}

// ObserveRound records one completed round.
func (m *SearchMetrics) ObserveRound(d time.Duration, poolSize int) {
	if m == nil {
		return
	}
	m.RoundsTotal.Inc()
	m.RoundDuration.Observe(d.Seconds())
	m.PoolSize.Set(float64(poolSize))
}

// AddAttempted records constraint draws handed to the embedder.
func (m *SearchMetrics) AddAttempted(n int) {
	if m == nil {
		return
	}
	m.CandidatesAttempted.Add(float64(n))
}

// AddAccepted records new pool insertions.
func (m *SearchMetrics) AddAccepted(n int) {
	if m == nil {
		return
	}
	m.CandidatesAccepted.Add(float64(n))
}

// AddRejected records discarded candidates under a reason label.
func (m *SearchMetrics) AddRejected(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CandidatesRejected.WithLabelValues(reason).Add(float64(n))
}
