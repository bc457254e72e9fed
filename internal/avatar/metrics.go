package avatar

import "github.com/prometheus/client_golang/prometheus"

// Lookup tiers reported by lookups.
const (
	tierMemory    = "memory"
	tierDurable   = "durable"
	tierGenerated = "generated"
	tierFallback  = "fallback"
)

var (
	// lookups counts Cache.Get calls by the tier that answered them.
	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kkitchen_avatar_lookups_total",
			Help: "Avatar lookups by answering tier (memory, durable, generated, fallback).",
		},
		[]string{"tier"},
	)

	evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kkitchen_avatar_evictions_total",
			Help: "Durable avatar entries evicted by the LRU policy.",
		},
	)
)

func init() {
	prometheus.MustRegister(lookups, evictions)
}
