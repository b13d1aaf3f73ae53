package play

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts gameplay activity.
type Metrics struct {
	submissions    *prometheus.CounterVec
	completions    *prometheus.CounterVec
	sessions       prometheus.Gauge
	unavailable    prometheus.Counter
	recordFailures prometheus.Counter
}

// NewMetrics registers the gameplay collectors on reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chitas_game_submissions_total",
			Help: "Answers submitted by game kind and outcome.",
		}, []string{"kind", "outcome"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chitas_games_completed_total",
			Help: "Games that reported a final result, by kind and correctness.",
		}, []string{"kind", "correct"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chitas_play_sessions",
			Help: "Game sessions currently held in memory.",
		}),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitas_games_unavailable_total",
			Help: "Game definitions served as unavailable because they failed validation.",
		}),
		recordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitas_progress_record_failures_total",
			Help: "Game results that could not be saved to progress.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.submissions, m.completions, m.sessions, m.unavailable, m.recordFailures)
	}
	return m
}
