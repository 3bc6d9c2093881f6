// Package metric exports prometheus metrics for rule selection.
package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/ruled/ruled/pkg/ruleset"
)

// Result label values for MatchTotal.
const (
	ResultMatch         = "match"
	ResultNoMatch       = "no_match"
	ResultIndeterminate = "indeterminate"
)

var (
	MatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruled_match_total",
			Help: "Total number of rule selections by result",
		},
		[]string{"result"},
	)

	RuleSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruled_rule_selected_total",
			Help: "Total number of selections by rule position",
		},
		[]string{"position"},
	)

	LookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruled_lookup_failures_total",
			Help: "Total number of failed table lookups",
		},
		[]string{"table"},
	)

	Aborts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruled_aborts_total",
			Help: "Total number of selections aborted as indeterminate, by reason",
		},
		[]string{"reason"},
	)

	LogEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruled_log_events_total",
			Help: "Total number of warning and error log events",
		},
		[]string{"level"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruled_match_duration_seconds",
			Help:    "Duration of rule selections in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	RulesetVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruled_ruleset_version",
			Help: "Version of the ruleset currently in use",
		},
	)
)

// Observer counts ruleset diagnostics.
type Observer struct{}

var _ ruleset.Observer = Observer{}

func (Observer) RuleMatched(position int, _ string) {
	MatchTotal.WithLabelValues(ResultMatch).Inc()
	RuleSelected.WithLabelValues(strconv.Itoa(position)).Inc()
}

func (Observer) NoRuleMatched() {
	MatchTotal.WithLabelValues(ResultNoMatch).Inc()
}

func (Observer) EvaluationAborted(err *ruleset.IndeterminateError) {
	MatchTotal.WithLabelValues(ResultIndeterminate).Inc()
	Aborts.WithLabelValues(err.Reason.String()).Inc()
}

func (Observer) LookupFailed(table string, _ error) {
	LookupFailures.WithLabelValues(table).Inc()
}

// ObserveMatch records the duration of a selection that started at start.
func ObserveMatch(start time.Time) {
	MatchDuration.Observe(time.Since(start).Seconds())
}

// LogHook is a zerolog hook counting warning and error events.
type LogHook struct{}

// Run implements zerolog.Hook.
func (LogHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	switch level {
	case zerolog.WarnLevel, zerolog.ErrorLevel:
		LogEvents.WithLabelValues(level.String()).Inc()
	}
}
