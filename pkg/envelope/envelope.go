// Package envelope holds the read-only view of an in-flight mail transaction consulted when
// selecting a rule.
package envelope

import (
	"net/netip"
	"strings"
)

// Flags is a bitset of session properties.
type Flags uint32

const (
	// Authenticated is set once the client completed SMTP AUTH.
	Authenticated Flags = 1 << iota
	// Internal marks envelopes originating from the local enqueuer.
	Internal
	// Bounce marks delivery status notifications generated by the agent itself.
	Bounce
)

// Has returns true if every flag in f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	var s []string
	if f.Has(Authenticated) {
		s = append(s, "authenticated")
	}
	if f.Has(Internal) {
		s = append(s, "internal")
	}
	if f.Has(Bounce) {
		s = append(s, "bounce")
	}
	return strings.Join(s, "|")
}

// Envelope contains the addressing and session metadata of one message transaction, excluding
// body content.
type Envelope struct {
	Tag    string     // Free-form tag assigned by the listener.
	Remote netip.Addr // Originating network address.
	Helo   string     // Domain presented in HELO/EHLO.
	Sender Address    // MAIL FROM.
	Dest   Address    // RCPT TO.
	Flags  Flags
}

// IsLocal returns true if the envelope should be treated as originating from the local host
// for source checks.
func (e *Envelope) IsLocal() bool {
	return e.Flags&(Authenticated|Internal) != 0
}
