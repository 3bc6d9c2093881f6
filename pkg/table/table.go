// Package table contains the backend independent lookup table interface consulted by rules.
package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
)

var (
	// ErrUnknownType indicates no Constructor was registered for a table type.
	ErrUnknownType = errors.New("unknown table type")

	// ErrUnsupportedService indicates a table cannot answer lookups of the requested service.
	ErrUnsupportedService = errors.New("service not supported by table")
)

// Service is the semantic category of a lookup key.
type Service int

const (
	// NetAddr keys are textual IP addresses, or the literal "local".
	NetAddr Service = iota
	// Domain keys are DNS domain names.
	Domain
	// MailAddr keys are textual mail addresses.
	MailAddr
	// String keys are opaque strings.
	String
	// Credentials keys are authenticated user names.
	Credentials
)

var serviceNames = map[Service]string{
	NetAddr:     "netaddr",
	Domain:      "domain",
	MailAddr:    "mailaddr",
	String:      "string",
	Credentials: "credentials",
}

func (s Service) String() string {
	if n, ok := serviceNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Service(%d)", int(s))
}

// Table is a named lookup backend.  Lookup returns true if the key is found, false if it is not,
// or an error if the backend could not answer.  Implementations must be safe for concurrent use.
type Table interface {
	Name() string
	Lookup(ctx context.Context, service Service, key string) (bool, error)
}

// Def describes a table as declared in the ruleset file.  Which fields are meaningful depends on
// Type.
type Def struct {
	Name        string        `toml:"-"`
	Type        string        `toml:"type"`
	Values      []string      `toml:"values"`
	Path        string        `toml:"path"`
	DSN         string        `toml:"dsn"`
	Key         string        `toml:"key"`
	Query       string        `toml:"query"`
	Zone        string        `toml:"zone"`
	CacheTTL    time.Duration `toml:"cache_ttl"`
	NegativeTTL time.Duration `toml:"negative_ttl"`
}

// Constructor creates a Table from its definition.
type Constructor func(ctx context.Context, def Def) (Table, error)

// Constructors maps table type names to their constructors.  Backends are registered by main.
var Constructors = make(map[string]Constructor)

// FromConfig creates a table using the Constructor registered for def.Type.
func FromConfig(ctx context.Context, def Def) (Table, error) {
	ctor, ok := Constructors[def.Type]
	if !ok {
		return nil, fmt.Errorf("table %q: %w %q, known: %v", def.Name, ErrUnknownType, def.Type,
			knownTypes())
	}
	t, err := ctor(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", def.Name, err)
	}
	return t, nil
}

// Close releases resources held by t, if any.
func Close(t Table) error {
	if c, ok := t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func knownTypes() []string {
	names := make([]string, 0, len(Constructors))
	for k := range Constructors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
