package ruleset

import (
	"context"
	"strconv"
	"strings"

	"github.com/ruled/ruled/pkg/envelope"
	"github.com/ruled/ruled/pkg/table"
)

// Rule is an ordered set of criteria plus the disposition to apply when all of them match.
// Implementations must not change after being placed in a Ruleset.
type Rule interface {
	// Criteria lists the rule's criteria in evaluation order.  Absent criteria may be included.
	Criteria() []Criterion
	// Action is the disposition the agent applies to a matching envelope.
	Action() string
	// Description renders the rule for diagnostics.
	Description() string
}

// EvaluateRule applies the rule's criteria to env as a short-circuiting conjunction.  The first
// criterion that is not matched decides the outcome; later criteria are not evaluated.  obs may
// be nil.
func EvaluateRule(
	ctx context.Context, r Rule, env *envelope.Envelope, obs Observer) (Outcome, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	for _, c := range r.Criteria() {
		o, err := c.Evaluate(ctx, env, obs)
		if o != Matched {
			return o, err
		}
	}
	return Matched, nil
}

// matchOrder fixes the evaluation order of Match criteria; cheap criteria come first.
var matchOrder = [...]Kind{
	KindTag, KindFrom, KindTo, KindHelo, KindAuth, KindStartTLS, KindMailFrom, KindRcptTo,
}

// Match is the generic rule representation: each dimension has its own sign and optional table.
// Kind fields of the criteria are ignored and set from their position.
type Match struct {
	Tag         Criterion
	From        Criterion
	To          Criterion
	Helo        Criterion
	Auth        Criterion
	StartTLS    Criterion
	MailFrom    Criterion
	RcptTo      Criterion
	Disposition string
}

var _ Rule = &Match{}

// Criteria returns the criteria in the order tag, from, to, helo, auth, tls, mail-from, rcpt-to.
func (m *Match) Criteria() []Criterion {
	cs := []Criterion{m.Tag, m.From, m.To, m.Helo, m.Auth, m.StartTLS, m.MailFrom, m.RcptTo}
	for i := range cs {
		cs[i].Kind = matchOrder[i]
	}
	return cs
}

// Action returns the disposition.
func (m *Match) Action() string {
	return m.Disposition
}

// Description renders the rule as "match <criteria> action <disposition>".
func (m *Match) Description() string {
	return describe("match", m.Criteria(), m.Disposition)
}

// Bundle is the attribute-bundle rule representation.  Its tag is compared literally, and its
// criteria are evaluated in the order tag, auth, sources, senders, recipients, destination.
type Bundle struct {
	Tag         string
	NotTag      bool
	WantAuth    bool
	NotAuth     bool
	Sources     table.Table
	NotSources  bool
	Senders     table.Table
	NotSenders  bool
	Recipients  table.Table
	NotRcpts    bool
	Destination table.Table
	NotDest     bool
	Disposition string
}

var _ Rule = &Bundle{}

// Criteria adapts the bundle's attributes to the common criterion shape.
func (b *Bundle) Criteria() []Criterion {
	cs := make([]Criterion, 0, 6)
	if b.Tag != "" {
		cs = append(cs, Criterion{Kind: KindTag, Sign: SignOf(true, b.NotTag),
			Table: table.Literal{Value: b.Tag}})
	}
	cs = append(cs,
		Criterion{Kind: KindAuth, Sign: SignOf(b.WantAuth, b.NotAuth)},
		Criterion{Kind: KindFrom, Sign: SignOf(b.Sources != nil, b.NotSources), Table: b.Sources},
		Criterion{Kind: KindMailFrom, Sign: SignOf(b.Senders != nil, b.NotSenders),
			Table: b.Senders},
		Criterion{Kind: KindRcptTo, Sign: SignOf(b.Recipients != nil, b.NotRcpts),
			Table: b.Recipients},
		Criterion{Kind: KindTo, Sign: SignOf(b.Destination != nil, b.NotDest),
			Table: b.Destination},
	)
	return cs
}

// Action returns the disposition.
func (b *Bundle) Action() string {
	return b.Disposition
}

// Description renders the rule as "rule <criteria> action <disposition>".
func (b *Bundle) Description() string {
	return describe("rule", b.Criteria(), b.Disposition)
}

func describe(head string, cs []Criterion, action string) string {
	var sb strings.Builder
	sb.WriteString(head)
	for _, c := range cs {
		if s := c.String(); s != "" {
			sb.WriteByte(' ')
			sb.WriteString(s)
		}
	}
	sb.WriteString(" action ")
	sb.WriteString(strconv.Quote(action))
	return sb.String()
}
