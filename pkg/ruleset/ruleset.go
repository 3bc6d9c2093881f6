// Package ruleset selects the rule governing an envelope from an ordered, immutable rule list.
//
// Evaluation is tri-state: a rule matches, does not match, or cannot be decided because a
// lookup failed.  An undecided rule stops the whole selection, it never falls through to a
// later rule.
package ruleset

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ruled/ruled/pkg/envelope"
)

// Ruleset is an immutable, versioned snapshot of the ordered rule list.
type Ruleset struct {
	version uint64
	rules   []Rule
}

// New creates a Ruleset holding a copy of rules.
func New(version uint64, rules ...Rule) *Ruleset {
	rs := &Ruleset{version: version, rules: make([]Rule, len(rules))}
	copy(rs.rules, rules)
	return rs
}

// Version identifies the snapshot.
func (rs *Ruleset) Version() uint64 {
	if rs == nil {
		return 0
	}
	return rs.version
}

// Len returns the number of rules.
func (rs *Ruleset) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rule list.
func (rs *Ruleset) Rules() []Rule {
	if rs == nil {
		return nil
	}
	rules := make([]Rule, len(rs.rules))
	copy(rules, rs.rules)
	return rules
}

// Selection identifies the rule chosen for an envelope.
type Selection struct {
	Rule     Rule
	Position int // 1-based position in the ruleset.
	Version  uint64
}

// Select returns the first rule in rs whose criteria all match env.  If no rule matches,
// ErrNoRuleMatched is returned.  If any criterion is indeterminate, selection stops and an
// *IndeterminateError is returned; errors.Is(err, ErrIndeterminate) holds.  A nil rs is treated
// as empty.
func Select(
	ctx context.Context, rs *Ruleset, env *envelope.Envelope, obs Observer) (*Selection, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	var rules []Rule
	if rs != nil {
		rules = rs.rules
	}
	for i, r := range rules {
		o, err := EvaluateRule(ctx, r, env, obs)
		switch o {
		case Matched:
			obs.RuleMatched(i+1, r.Description())
			return &Selection{Rule: r, Position: i + 1, Version: rs.version}, nil
		case Indeterminate:
			var ie *IndeterminateError
			if !errors.As(err, &ie) {
				ie = &IndeterminateError{Reason: ReasonLookup, Err: err}
			}
			obs.EvaluationAborted(ie)
			return nil, ie
		}
	}
	obs.NoRuleMatched()
	return nil, ErrNoRuleMatched
}

// Holder publishes the current Ruleset.  Reloads build a new Ruleset and Store it; calls in
// flight keep using the snapshot they loaded.
type Holder struct {
	current atomic.Pointer[Ruleset]
}

// NewHolder creates a Holder publishing rs.
func NewHolder(rs *Ruleset) *Holder {
	h := &Holder{}
	h.Store(rs)
	return h
}

// Load returns the current snapshot, which may be nil.
func (h *Holder) Load() *Ruleset {
	return h.current.Load()
}

// Store publishes rs, returning the snapshot it replaced.
func (h *Holder) Store(rs *Ruleset) *Ruleset {
	return h.current.Swap(rs)
}

// Matcher selects rules from the snapshot currently published by its Holder.
type Matcher struct {
	Rules    *Holder
	Observer Observer
}

// Match selects the rule for env from the current snapshot.  See Select.
func (m *Matcher) Match(ctx context.Context, env *envelope.Envelope) (*Selection, error) {
	return Select(ctx, m.Rules.Load(), env, m.Observer)
}
