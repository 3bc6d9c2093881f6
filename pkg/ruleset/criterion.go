package ruleset

import (
	"context"
	"fmt"

	"github.com/ruled/ruled/pkg/envelope"
	"github.com/ruled/ruled/pkg/table"
)

// Kind names the envelope dimension a criterion constrains.
type Kind int

const (
	KindTag Kind = iota
	KindFrom
	KindTo
	KindHelo
	KindAuth
	KindStartTLS
	KindMailFrom
	KindRcptTo
)

var kindNames = map[Kind]string{
	KindTag:      "tag",
	KindFrom:     "from",
	KindTo:       "to",
	KindHelo:     "helo",
	KindAuth:     "auth",
	KindStartTLS: "tls",
	KindMailFrom: "mail-from",
	KindRcptTo:   "rcpt-to",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Criterion is one constrained dimension of a rule.
type Criterion struct {
	Kind  Kind
	Sign  Sign
	Table table.Table // Backing table; optional for auth, unused for tls.
	// Socket restricts a from criterion to connections on the local socket.
	Socket bool
}

// Evaluate applies the criterion to env.  The error is non-nil, and an *IndeterminateError,
// exactly when the outcome is Indeterminate.  Backend failures are reported to obs before
// returning; obs may be nil.
func (c Criterion) Evaluate(
	ctx context.Context, env *envelope.Envelope, obs Observer) (Outcome, error) {
	if c.Sign == Absent {
		return Matched, nil
	}
	if obs == nil {
		obs = NopObserver{}
	}
	raw, err := c.predicate(ctx, env, obs)
	if err != nil {
		return Indeterminate, err
	}
	return c.Sign.apply(raw), nil
}

// predicate returns the raw, un-inverted result.
func (c Criterion) predicate(
	ctx context.Context, env *envelope.Envelope, obs Observer) (bool, error) {
	switch c.Kind {
	case KindAuth:
		if !env.Flags.Has(envelope.Authenticated) {
			return false, nil
		}
		if c.Table != nil {
			return false, c.fail(ReasonUnsupported, errUnsupportedCreds)
		}
		return true, nil
	case KindStartTLS:
		return false, c.fail(ReasonUnsupported, errUnsupportedTLS)
	case KindFrom:
		if c.Socket {
			return false, c.fail(ReasonUnsupported, errUnsupportedSocket)
		}
	}

	service, key, err := c.key(env)
	if err != nil {
		return false, c.fail(ReasonKey, err)
	}
	if c.Table == nil {
		return false, c.fail(ReasonUnsupported, errNoTable)
	}
	found, err := c.Table.Lookup(ctx, service, key)
	if err != nil {
		obs.LookupFailed(c.Table.Name(), err)
		return false, c.fail(ReasonLookup, err)
	}
	return found, nil
}

// key derives the lookup key and its service from the envelope.
func (c Criterion) key(env *envelope.Envelope) (table.Service, string, error) {
	switch c.Kind {
	case KindTag:
		return table.String, env.Tag, nil
	case KindFrom:
		if env.IsLocal() {
			return table.NetAddr, table.LocalKey, nil
		}
		if !env.Remote.IsValid() {
			return table.NetAddr, "", errNoRemote
		}
		return table.NetAddr, env.Remote.Unmap().String(), nil
	case KindTo:
		return table.Domain, env.Dest.Domain, nil
	case KindHelo:
		return table.Domain, env.Helo, nil
	case KindMailFrom:
		key, err := env.Sender.Text()
		return table.MailAddr, key, err
	case KindRcptTo:
		key, err := env.Dest.Text()
		return table.MailAddr, key, err
	}
	return 0, "", fmt.Errorf("no key for %v criterion", c.Kind)
}

func (c Criterion) fail(reason Reason, err error) *IndeterminateError {
	ie := &IndeterminateError{Reason: reason, Kind: c.Kind, Err: err}
	if c.Table != nil {
		ie.Table = c.Table.Name()
	}
	return ie
}

// String renders the criterion the way it is written in the ruleset file.
func (c Criterion) String() string {
	if c.Sign == Absent {
		return ""
	}
	s := c.Kind.String()
	not := ""
	if c.Sign == Inverted {
		not = "!"
	}
	switch {
	case c.Kind == KindFrom && c.Socket:
		return s + " " + not + "socket"
	case c.Table != nil:
		return s + " " + not + c.Table.Name()
	default:
		return not + s
	}
}
