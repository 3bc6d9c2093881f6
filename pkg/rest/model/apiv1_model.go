// Package model holds the JSON types of the ruled REST API.
package model

import (
	"fmt"
	"net/netip"

	"github.com/ruled/ruled/pkg/envelope"
)

// Result values of JSONMatchResultV1.
const (
	ResultMatch   = "match"
	ResultNoMatch = "no-match"
	ResultDefer   = "defer"
)

// JSONEnvelopeV1 is the envelope submitted for rule selection.  An empty sender is the null
// sender; an empty remote is an unknown origin.
type JSONEnvelopeV1 struct {
	Tag           string `json:"tag"`
	Remote        string `json:"remote,omitempty"`
	Helo          string `json:"helo"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	Authenticated bool   `json:"authenticated,omitempty"`
	Internal      bool   `json:"internal,omitempty"`
	Bounce        bool   `json:"bounce,omitempty"`
}

// Envelope converts the JSON form into an envelope.
func (j *JSONEnvelopeV1) Envelope() (*envelope.Envelope, error) {
	env := &envelope.Envelope{Tag: j.Tag, Helo: j.Helo}
	if j.Remote != "" {
		addr, err := netip.ParseAddr(j.Remote)
		if err != nil {
			return nil, fmt.Errorf("remote: %w", err)
		}
		env.Remote = addr
	}
	var err error
	if env.Sender, err = envelope.ParseAddress(j.Sender); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if env.Dest, err = envelope.ParseAddress(j.Recipient); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	if j.Authenticated {
		env.Flags |= envelope.Authenticated
	}
	if j.Internal {
		env.Flags |= envelope.Internal
	}
	if j.Bounce {
		env.Flags |= envelope.Bounce
	}
	return env, nil
}

// JSONMatchResultV1 is the outcome of a rule selection.
type JSONMatchResultV1 struct {
	Result    string `json:"result"`
	Position  int    `json:"position,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Action    string `json:"action,omitempty"`
	Version   uint64 `json:"version"`
	Reason    string `json:"reason,omitempty"`
	Criterion string `json:"criterion,omitempty"`
	Table     string `json:"table,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSONRuleV1 describes one rule of the published ruleset.
type JSONRuleV1 struct {
	Position int    `json:"position"`
	Rule     string `json:"rule"`
	Action   string `json:"action"`
}

// JSONRulesetV1 describes the published ruleset.
type JSONRulesetV1 struct {
	Version uint64        `json:"version"`
	Rules   []*JSONRuleV1 `json:"rules"`
}
