// Package metrics instruments the data layer's operations for scraping.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics wraps an isolated VictoriaMetrics set so a process can run more
// than one instance (e.g. in tests) without their counters colliding on the
// global default set.
type Metrics struct {
	set *metrics.Set
}

// New creates a Metrics instance backed by a fresh, unregistered set.
func New() *Metrics {
	return &Metrics{set: metrics.NewSet()}
}

// Handler returns an http.Handler exposing the set in Prometheus exposition
// format, suitable for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.WritePrometheus(w)
	})
}

// WritePrometheus writes every registered metric to w.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// Outcome distinguishes a successful call from one that returned an error,
// so op_total{op="get",outcome="error"} and its "success" counterpart can be
// compared directly on a dashboard.
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "error"
)

// OutcomeOf converts a trailing error return into an Outcome.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return Failure
	}
	return Success
}

// ObserveOp records one call to a write-engine operation (get, put, del,
// overput, uncertain_put, uncertain_del) along with its wall-clock duration
// and outcome.
func (m *Metrics) ObserveOp(op string, d time.Duration, outcome Outcome) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`hxkv_op_total{op=%q,outcome=%q}`, op, outcome)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`hxkv_op_duration_seconds{op=%q}`, op)).Update(d.Seconds())
}

// ObserveSearchPlan records which access strategy the planner picked for a
// search call: "sorted_intersection", "full_scan", "unsorted", or "empty"
// (the checks contradict each other, so no access path is built).
func (m *Metrics) ObserveSearchPlan(strategy string) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`hxkv_search_plan_total{strategy=%q}`, strategy)).Inc()
}

// ObserveCleaningPass records the duration of a completed cleaner pass and
// how many capture streams it reclaimed (wiped).
func (m *Metrics) ObserveCleaningPass(d time.Duration, reclaimed int, outcome Outcome) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`hxkv_cleaner_pass_total{outcome=%q}`, outcome)).Inc()
	m.set.GetOrCreateHistogram(`hxkv_cleaner_pass_duration_seconds`).Update(d.Seconds())
	m.set.GetOrCreateCounter(`hxkv_cleaner_reclaimed_total`).Add(reclaimed)
}

// SetApproximateSize publishes the store's on-disk size, sampled
// periodically by the daemon shell.
func (m *Metrics) SetApproximateSize(bytes uint64) {
	m.set.GetOrCreateFloatCounter(`hxkv_store_approximate_size_bytes`).Set(float64(bytes))
}
