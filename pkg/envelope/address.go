package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// MaxAddressLen is the longest textual address that will be rendered as a lookup key.
const MaxAddressLen = 320

// ErrMalformed is wrapped by errors returned when an address cannot be parsed or rendered.
var ErrMalformed = errors.New("malformed address")

// Address is a mail address split into its local and domain parts.  The zero Address is the
// null reverse-path ("<>").
type Address struct {
	// Local is the part of the address before @, including +extension.
	Local string
	// Domain is the part of the address after @.
	Domain string
}

// IsNull returns true for the null reverse-path.
func (a Address) IsNull() bool {
	return a.Local == "" && a.Domain == ""
}

// Text renders the address into the canonical form used as a table key: local@domain with the
// domain lowercased.  The null reverse-path renders as the empty string.  An error wrapping
// ErrMalformed is returned if either part fails validation.
func (a Address) Text() (string, error) {
	if a.IsNull() {
		return "", nil
	}
	if a.Local == "" {
		return "", fmt.Errorf("%w: empty local part", ErrMalformed)
	}
	if err := validateLocalPart(a.Local); err != nil {
		return "", err
	}
	if a.Domain == "" {
		if len(a.Local) > MaxAddressLen {
			return "", fmt.Errorf("%w: address exceeds %d characters", ErrMalformed, MaxAddressLen)
		}
		return a.Local, nil
	}
	if !ValidateDomainPart(a.Domain) {
		return "", fmt.Errorf("%w: domain part %q failed validation", ErrMalformed, a.Domain)
	}
	s := a.Local + "@" + strings.ToLower(a.Domain)
	if len(s) > MaxAddressLen {
		return "", fmt.Errorf("%w: address exceeds %d characters", ErrMalformed, MaxAddressLen)
	}
	return s, nil
}

func (a Address) String() string {
	if a.Domain == "" {
		return a.Local
	}
	return a.Local + "@" + a.Domain
}

// ParseAddress splits a textual address into an Address.  Angle brackets are stripped; "<>"
// and "" parse to the null reverse-path.  Quoting is preserved in the local part, the domain
// part is validated following RFC3696.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return Address{}, nil
	}
	local, domain, err := splitAddress(s)
	if err != nil {
		return Address{}, err
	}
	if domain != "" && !ValidateDomainPart(domain) {
		return Address{}, fmt.Errorf("%w: domain part %q failed validation", ErrMalformed, domain)
	}
	return Address{Local: local, Domain: domain}, nil
}

// ValidateDomainPart returns true if the domain part complies to RFC3696, RFC1035.
func ValidateDomainPart(domain string) bool {
	if len(domain) == 0 {
		return false
	}
	if len(domain) > 255 {
		return false
	}
	if domain[len(domain)-1] != '.' {
		domain += "."
	}
	prev := '.'
	labelLen := 0
	hasAlphaNum := false
	for _, c := range domain {
		switch {
		case ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') ||
			('0' <= c && c <= '9') || c == '_':
			// Must contain some of these to be a valid label.
			hasAlphaNum = true
			labelLen++
		case c == '-':
			if prev == '.' {
				// Cannot lead with hyphen.
				return false
			}
		case c == '.':
			if prev == '.' || prev == '-' {
				// Cannot end with hyphen or double-dot.
				return false
			}
			if labelLen > 63 {
				return false
			}
			if !hasAlphaNum {
				return false
			}
			labelLen = 0
			hasAlphaNum = false
		default:
			return false
		}
		prev = c
	}
	return true
}

// validateLocalPart checks an already split local part.  Quoted strings and quoted pairs are
// accepted as produced by splitAddress.
func validateLocalPart(local string) error {
	if len(local) > 128 {
		return fmt.Errorf("%w: local part must not exceed 128 characters", ErrMalformed)
	}
	for i := 0; i < len(local); i++ {
		c := local[i]
		if c > 127 {
			return fmt.Errorf("%w: characters outside of US-ASCII range not permitted", ErrMalformed)
		}
		if c < ' ' && c != '\t' {
			return fmt.Errorf("%w: control character in local part", ErrMalformed)
		}
	}
	return nil
}

// splitAddress unescapes an address and splits the local part from the domain part.  An error
// is returned if the local part fails validation following the guidelines in RFC3696.  The
// domain part is optional and not validated here.
func splitAddress(address string) (local string, domain string, err error) {
	if len(address) > MaxAddressLen {
		return "", "", fmt.Errorf("%w: address exceeds %d characters", ErrMalformed, MaxAddressLen)
	}
	if address[0] == '@' {
		return "", "", fmt.Errorf("%w: address cannot start with @ symbol", ErrMalformed)
	}
	if address[0] == '.' {
		return "", "", fmt.Errorf("%w: address cannot start with a period", ErrMalformed)
	}
	buf := new(bytes.Buffer)
	prev := byte('.')
	inCharQuote := false
	inStringQuote := false
LOOP:
	for i := 0; i < len(address); i++ {
		c := address[i]
		switch {
		case ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9'):
			buf.WriteByte(c)
			inCharQuote = false
		case bytes.IndexByte([]byte("!#$%&'*+-/=?^_`{|}~"), c) >= 0:
			// These specials can be used unquoted.
			buf.WriteByte(c)
			inCharQuote = false
		case c == '.':
			if prev == '.' && !inStringQuote {
				return "", "", fmt.Errorf("%w: sequence of periods is not permitted", ErrMalformed)
			}
			buf.WriteByte(c)
			inCharQuote = false
		case c == '\\':
			inCharQuote = true
		case c == '"':
			if inCharQuote {
				buf.WriteByte(c)
				inCharQuote = false
			} else if inStringQuote {
				inStringQuote = false
			} else if i == 0 {
				inStringQuote = true
			} else {
				return "", "", fmt.Errorf("%w: quoted string can only begin at start of address",
					ErrMalformed)
			}
		case c == '@':
			if inCharQuote || inStringQuote {
				buf.WriteByte(c)
				inCharQuote = false
				break
			}
			// End of local-part.
			if i > 128 {
				return "", "", fmt.Errorf("%w: local part must not exceed 128 characters", ErrMalformed)
			}
			if prev == '.' {
				return "", "", fmt.Errorf("%w: local part cannot end with a period", ErrMalformed)
			}
			domain = address[i+1:]
			break LOOP
		case c > 127:
			return "", "", fmt.Errorf("%w: characters outside of US-ASCII range not permitted",
				ErrMalformed)
		default:
			if !inCharQuote && !inStringQuote {
				return "", "", fmt.Errorf("%w: character %q must be quoted", ErrMalformed, c)
			}
			buf.WriteByte(c)
			inCharQuote = false
		}
		prev = c
	}
	if inCharQuote {
		return "", "", fmt.Errorf("%w: cannot end address with unterminated quoted-pair",
			ErrMalformed)
	}
	if inStringQuote {
		return "", "", fmt.Errorf("%w: cannot end address with unterminated string quote",
			ErrMalformed)
	}
	return buf.String(), domain, nil
}
