package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fern_parse_seconds",
		Help:    "Time spent producing one syntax tree.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	TokensLexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fern_tokens_lexed_total",
		Help: "Total number of terminal tokens consumed by the parser.",
	})

	NodesReused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fern_nodes_reused_total",
		Help: "Total number of subtrees reused by reference from a previous tree.",
	})

	RecoveryEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fern_recovery_events_total",
		Help: "Total number of error-recovery episodes entered during parsing.",
	})

	MissingInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fern_missing_tokens_total",
		Help: "Total number of zero-width missing tokens synthesized by recovery.",
	})

	StackForks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fern_stack_forks_total",
		Help: "Total number of GLR stack forks taken on grammar conflicts.",
	})

	TreesAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fern_trees_alive",
		Help: "Number of syntax trees that have been created but not yet closed.",
	})

	LanguagesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fern_languages_loaded",
		Help: "Number of language artifacts currently registered.",
	})
)
