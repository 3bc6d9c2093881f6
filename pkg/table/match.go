package table

import (
	"net/netip"
	"strings"
)

// LocalKey is the network address key used for sessions that originate locally.
const LocalKey = "local"

// MatchEntry reports whether a single table entry matches key for the given service.  Backends
// that hold their entries in memory use it to scan.
//
//   - NetAddr: "local" matches only "local", otherwise the entry is an address or CIDR prefix.
//   - Domain: case-insensitive; "*.example.org" matches any subdomain of example.org.
//   - MailAddr: "user@domain", "@domain" for any user, or "user" for any domain.
//   - String, Credentials: exact.
func MatchEntry(service Service, entry, key string) bool {
	switch service {
	case NetAddr:
		return matchNetAddr(entry, key)
	case Domain:
		return matchDomain(entry, key)
	case MailAddr:
		return matchMailAddr(entry, key)
	default:
		return entry == key
	}
}

// Candidates returns the keys a key/value backend should probe, most specific first, to emulate
// the MatchEntry semantics without scanning.
func Candidates(service Service, key string) []string {
	switch service {
	case NetAddr:
		return netAddrCandidates(key)
	case Domain:
		return domainCandidates(key)
	case MailAddr:
		return mailAddrCandidates(key)
	default:
		return []string{key}
	}
}

func matchNetAddr(entry, key string) bool {
	if entry == LocalKey || key == LocalKey {
		return entry == key
	}
	addr, err := netip.ParseAddr(key)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return false
		}
		return prefix.Contains(addr)
	}
	e, err := netip.ParseAddr(entry)
	if err != nil {
		return false
	}
	return e.Unmap() == addr
}

func netAddrCandidates(key string) []string {
	addr, err := netip.ParseAddr(key)
	if err != nil {
		return []string{key}
	}
	addr = addr.Unmap()
	cands := []string{addr.String()}
	// IPv4 walks every bit, IPv6 walks nibble boundaries to keep the set small.
	minBits, step := 8, 1
	if addr.Is6() {
		minBits, step = 16, 4
	}
	for bits := addr.BitLen(); bits >= minBits; bits -= step {
		p, err := addr.Prefix(bits)
		if err != nil {
			continue
		}
		cands = append(cands, p.String())
	}
	return cands
}

func matchDomain(entry, key string) bool {
	entry = strings.ToLower(strings.TrimSuffix(entry, "."))
	key = strings.ToLower(strings.TrimSuffix(key, "."))
	if strings.HasPrefix(entry, "*.") {
		return strings.HasSuffix(key, entry[1:])
	}
	return entry == key
}

func domainCandidates(key string) []string {
	key = strings.ToLower(strings.TrimSuffix(key, "."))
	cands := []string{key}
	for d := key; ; {
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
		cands = append(cands, "*."+d)
	}
	return cands
}

func splitMailAddr(s string) (user, domain string, hasAt bool) {
	i := strings.LastIndexByte(s, '@')
	if i < 0 {
		return s, "", false
	}
	return s[:i], strings.ToLower(s[i+1:]), true
}

func matchMailAddr(entry, key string) bool {
	eu, ed, eat := splitMailAddr(entry)
	ku, kd, _ := splitMailAddr(key)
	switch {
	case !eat:
		return eu == ku
	case eu == "":
		return ed == kd
	default:
		return eu == ku && ed == kd
	}
}

func mailAddrCandidates(key string) []string {
	user, domain, hasAt := splitMailAddr(key)
	if !hasAt {
		return []string{user}
	}
	return []string{user + "@" + domain, "@" + domain, user}
}
