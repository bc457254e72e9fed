package services

import "github.com/prometheus/client_golang/prometheus"

// Tick outcomes reported by ticksTotal.
const (
	outcomeEmitted = "emitted"
	outcomeNoop    = "noop"
	outcomeFailed  = "failed"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kkitchen_scheduler_ticks_total",
			Help: "Generation ticks by outcome (emitted, noop, failed).",
		},
		[]string{"outcome"},
	)

	// stageFailures counts collaborator failures by stage and the policy
	// applied to them.
	stageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kkitchen_scheduler_stage_failures_total",
			Help: "Pipeline stage failures by stage and failure policy.",
		},
		[]string{"stage", "policy"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kkitchen_scheduler_stage_duration_seconds",
			Help:    "Duration of pipeline stages that call external collaborators.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, stageFailures, stageDuration)
}
