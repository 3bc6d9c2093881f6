// Package dns implements a table answered by DNS list queries, in the style of DNSBL and RHSBL
// zones.  A key is present when its query name resolves to any address.
package dns

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/ruled/ruled/pkg/table"
)

// Resolver is the subset of net.Resolver used by Table.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Table queries a DNS list zone.
type Table struct {
	name     string
	zone     string
	resolver Resolver
}

var _ table.Table = &Table{}

// NewWithResolver creates a Table querying zone through r.
func NewWithResolver(name, zone string, r Resolver) *Table {
	return &Table{name: name, zone: strings.Trim(zone, "."), resolver: r}
}

// New is a table.Constructor for the "dns" type.
func New(_ context.Context, def table.Def) (table.Table, error) {
	if strings.Trim(def.Zone, ".") == "" {
		return nil, errors.New("dns table requires zone")
	}
	return NewWithResolver(def.Name, def.Zone, net.DefaultResolver), nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Lookup supports NetAddr keys, queried as reversed addresses, and Domain keys, queried as
// prefixes of the zone.  The "local" origin is never listed.
func (t *Table) Lookup(ctx context.Context, service table.Service, key string) (bool, error) {
	var qname string
	switch service {
	case table.NetAddr:
		if key == table.LocalKey {
			return false, nil
		}
		addr, err := netip.ParseAddr(key)
		if err != nil {
			return false, err
		}
		qname = ReverseName(addr) + "." + t.zone
	case table.Domain:
		qname = strings.ToLower(strings.Trim(key, ".")) + "." + t.zone
	default:
		return false, table.ErrUnsupportedService
	}
	addrs, err := t.resolver.LookupHost(ctx, qname)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}
	return len(addrs) > 0, nil
}

// ReverseName returns the DNS list label sequence for addr: reversed octets for IPv4, reversed
// nibbles for IPv6.
func ReverseName(addr netip.Addr) string {
	addr = addr.Unmap()
	var parts []string
	if addr.Is4() {
		b := addr.As4()
		for i := len(b) - 1; i >= 0; i-- {
			parts = append(parts, strconv.Itoa(int(b[i])))
		}
		return strings.Join(parts, ".")
	}
	b := addr.As16()
	for i := len(b) - 1; i >= 0; i-- {
		parts = append(parts,
			strconv.FormatUint(uint64(b[i]&0x0f), 16),
			strconv.FormatUint(uint64(b[i]>>4), 16))
	}
	return strings.Join(parts, ".")
}
