package ruleset

import (
	"errors"
	"fmt"
)

// Outcome is the tri-state result of evaluating a criterion or a rule.
type Outcome int

const (
	// NotMatched means the predicate evaluated false.
	NotMatched Outcome = iota
	// Matched means the predicate evaluated true.
	Matched
	// Indeterminate means the predicate could not be evaluated; the decision is not yet known.
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case NotMatched:
		return "no-match"
	case Matched:
		return "match"
	case Indeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Sign states whether a criterion is constrained and, if so, whether its result is inverted.
type Sign int

const (
	// Absent criteria are not constrained and always match.
	Absent Sign = iota
	// Normal criteria use the predicate result as is.
	Normal
	// Inverted criteria negate the predicate result.
	Inverted
)

func (s Sign) String() string {
	switch s {
	case Absent:
		return "absent"
	case Normal:
		return "normal"
	case Inverted:
		return "inverted"
	}
	return fmt.Sprintf("Sign(%d)", int(s))
}

// SignOf returns the Sign for a criterion that is present when set, inverted when not.
func SignOf(present, not bool) Sign {
	switch {
	case !present:
		return Absent
	case not:
		return Inverted
	default:
		return Normal
	}
}

// apply converts a raw predicate result into an Outcome.
func (s Sign) apply(raw bool) Outcome {
	if s == Inverted {
		raw = !raw
	}
	if raw {
		return Matched
	}
	return NotMatched
}

// Reason classifies why an evaluation was indeterminate.
type Reason int

const (
	// ReasonLookup means a table backend failed to answer.
	ReasonLookup Reason = iota
	// ReasonKey means a lookup key could not be derived from the envelope.
	ReasonKey
	// ReasonUnsupported means the criterion cannot be evaluated against the envelope model.
	ReasonUnsupported
)

func (r Reason) String() string {
	switch r {
	case ReasonLookup:
		return "lookup"
	case ReasonKey:
		return "key"
	case ReasonUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

var (
	// ErrNoRuleMatched is returned when the ruleset was exhausted without a match.  It is an
	// expected outcome, not a failure.
	ErrNoRuleMatched = errors.New("no rule matched")

	// ErrIndeterminate is matched by every IndeterminateError.  Callers should defer the
	// envelope and retry later.
	ErrIndeterminate = errors.New("temporary failure in processing of a rule")
)

// IndeterminateError describes the criterion that stopped evaluation.
type IndeterminateError struct {
	Reason Reason
	Kind   Kind
	Table  string // Empty unless a table was involved.
	Err    error
}

func (e *IndeterminateError) Error() string {
	msg := fmt.Sprintf("%v: %v criterion", ErrIndeterminate, e.Kind)
	if e.Table != "" {
		msg += fmt.Sprintf(" on table %s", e.Table)
	}
	msg += fmt.Sprintf(" (%v)", e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *IndeterminateError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrIndeterminate) true.
func (e *IndeterminateError) Is(target error) bool {
	return target == ErrIndeterminate
}

var (
	errUnsupportedTLS    = errors.New("TLS state is not part of the envelope")
	errUnsupportedCreds  = errors.New("authenticated user name is not part of the envelope")
	errUnsupportedSocket = errors.New("socket origin cannot be distinguished from local")
	errNoTable           = errors.New("criterion requires a table")
	errNoRemote          = errors.New("envelope has no originating address")
)
