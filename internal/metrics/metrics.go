// Package metrics counts batch outcomes and exports them in the Prometheus
// text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hintgen/internal/driver"
)

// Recorder holds the counters of one batch run on a private registry.
type Recorder struct {
	reg     *prometheus.Registry
	problem string

	hints    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New returns a Recorder labelling every sample with problem.
func New(problem string) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg:     reg,
		problem: problem,
		// Labels: problem, outcome (hint, no_goal, no_next, already_correct, rejected)
		hints: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hintgen",
			Subsystem: "batch",
			Name:      "hints_total",
			Help:      "Hint requests by outcome",
		}, []string{"problem", "outcome"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hintgen",
			Subsystem: "batch",
			Name:      "errors_total",
			Help:      "Hint requests that failed",
		}, []string{"problem"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hintgen",
			Subsystem: "batch",
			Name:      "hint_duration_seconds",
			Help:      "Time to answer one hint request",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"problem"}),
	}
}

// OnEvent implements driver.Sink. Only finished files are counted.
func (r *Recorder) OnEvent(e driver.Event) {
	switch e.Status {
	case driver.StatusDone:
		r.hints.WithLabelValues(r.problem, e.Outcome.String()).Inc()
	case driver.StatusError:
		r.errors.WithLabelValues(r.problem).Inc()
	default:
		return
	}
	r.duration.WithLabelValues(r.problem).Observe(e.Elapsed.Seconds())
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteFile writes the samples to path in the text exposition format,
// replacing the file atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

// Tee sends every event to each sink in turn.
type Tee []driver.Sink

func (t Tee) OnEvent(e driver.Event) {
	for _, s := range t {
		if s != nil {
			s.OnEvent(e)
		}
	}
}
