// Package metrics exposes Prometheus counters for answered questions and
// session reloads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mimir-aip/finqa/pkg/models"
)

// Recorder counts answers by intent and outcome
type Recorder struct {
	answers  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finqa_answers_total",
			Help: "Total answered questions by intent and outcome",
		}, []string{"intent", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finqa_answer_duration_seconds",
			Help:    "Time spent answering a question",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"intent"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finqa_session_reloads_total",
			Help: "Session reloads by result",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{r.answers, r.duration, r.reloads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one answer and how long it took
func (r *Recorder) Observe(ans *models.Answer, elapsed time.Duration) {
	if r == nil || ans == nil {
		return
	}
	r.answers.WithLabelValues(string(ans.Intent), ans.Outcome()).Inc()
	r.duration.WithLabelValues(string(ans.Intent)).Observe(elapsed.Seconds())
}

// Reload records a session reload attempt
func (r *Recorder) Reload(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.reloads.WithLabelValues(result).Inc()
}
