package ruleset

import (
	"github.com/rs/zerolog"
)

// Observer receives diagnostics about a selection.  It is write-only: nothing it does can alter
// the decision.  Implementations must be safe for concurrent use.
type Observer interface {
	// RuleMatched is called with the 1-based position and description of the selected rule.
	RuleMatched(position int, description string)
	// NoRuleMatched is called when the ruleset was exhausted.
	NoRuleMatched()
	// EvaluationAborted is called when an indeterminate criterion stopped the selection.
	EvaluationAborted(err *IndeterminateError)
	// LookupFailed is called when a table backend returned an error.
	LookupFailed(table string, err error)
}

// NopObserver discards all diagnostics.
type NopObserver struct{}

func (NopObserver) RuleMatched(int, string) {}
func (NopObserver) NoRuleMatched() {}
func (NopObserver) EvaluationAborted(*IndeterminateError) {}
func (NopObserver) LookupFailed(string, error) {}

// Observers fans diagnostics out to each member in order.
type Observers []Observer

func (m Observers) RuleMatched(position int, description string) {
	for _, o := range m {
		o.RuleMatched(position, description)
	}
}

func (m Observers) NoRuleMatched() {
	for _, o := range m {
		o.NoRuleMatched()
	}
}

func (m Observers) EvaluationAborted(err *IndeterminateError) {
	for _, o := range m {
		o.EvaluationAborted(err)
	}
}

func (m Observers) LookupFailed(table string, err error) {
	for _, o := range m {
		o.LookupFailed(table, err)
	}
}

// LogObserver writes diagnostics to a zerolog Logger.
type LogObserver struct {
	Logger zerolog.Logger
}

// NewLogObserver creates a LogObserver tagged with module=ruleset.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{Logger: logger.With().Str("module", "ruleset").Logger()}
}

func (l *LogObserver) RuleMatched(position int, description string) {
	l.Logger.Debug().Int("position", position).Str("rule", description).
		Msgf("rule #%d matched: %s", position, description)
}

func (l *LogObserver) NoRuleMatched() {
	l.Logger.Debug().Msg("no rule matched")
}

func (l *LogObserver) EvaluationAborted(err *IndeterminateError) {
	ev := l.Logger.Warn().Str("reason", err.Reason.String()).Str("criterion", err.Kind.String())
	if err.Table != "" {
		ev = ev.Str("table", err.Table)
	}
	ev.AnErr("cause", err.Err).Msg("temporary failure in processing of a rule")
}

func (l *LogObserver) LookupFailed(table string, err error) {
	l.Logger.Warn().Str("table", table).Err(err).
		Msgf("failure to perform a table lookup on table %s", table)
}
