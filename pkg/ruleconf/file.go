// Package ruleconf loads rulesets and their tables from TOML files.
package ruleconf

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ruled/ruled/pkg/table"
)

var (
	// ErrMixed indicates a file declares both match and rule entries.
	ErrMixed = errors.New("match and rule entries cannot be mixed")

	// ErrUnknownKeys indicates the file contains keys the loader does not understand.
	ErrUnknownKeys = errors.New("unknown keys")

	// ErrUnknownTable indicates a rule references an undeclared table.
	ErrUnknownTable = errors.New("unknown table")
)

// File is the decoded form of a ruleset file.
type File struct {
	Tables map[string]table.Def `toml:"tables"`
	Match  []MatchDef           `toml:"match"`
	Rule   []RuleDef            `toml:"rule"`
}

// MatchDef declares a generic rule.  String criteria name a table, optionally prefixed with "!"
// to invert it; empty strings leave the criterion absent.
type MatchDef struct {
	Action     string `toml:"action"`
	Tag        string `toml:"tag"`
	From       string `toml:"from"`
	FromSocket *bool  `toml:"from_socket"`
	To         string `toml:"to"`
	Helo       string `toml:"helo"`
	Auth       any    `toml:"auth"` // bool, or a credential table reference.
	TLS        *bool  `toml:"tls"`
	MailFrom   string `toml:"mail_from"`
	RcptTo     string `toml:"rcpt_to"`
}

// RuleDef declares an attribute-bundle rule.  Tag is compared literally.
type RuleDef struct {
	Action         string `toml:"action"`
	Tag            string `toml:"tag"`
	NotTag         bool   `toml:"not_tag"`
	WantAuth       bool   `toml:"want_auth"`
	NotAuth        bool   `toml:"not_auth"`
	Sources        string `toml:"sources"`
	NotSources     bool   `toml:"not_sources"`
	Senders        string `toml:"senders"`
	NotSenders     bool   `toml:"not_senders"`
	Recipients     string `toml:"recipients"`
	NotRecipients  bool   `toml:"not_recipients"`
	Destination    string `toml:"destination"`
	NotDestination bool   `toml:"not_destination"`
}

// Parse decodes a ruleset file.  Keys that do not map to a field are an error.
func Parse(data string) (*File, error) {
	f := &File{}
	md, err := toml.Decode(data, f)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}
	if len(f.Match) > 0 && len(f.Rule) > 0 {
		return nil, ErrMixed
	}
	for name := range f.Tables {
		if name == "" || strings.HasPrefix(name, "!") {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return f, nil
}

// TableNames returns the declared table names in sorted order.
func (f *File) TableNames() []string {
	names := make([]string, 0, len(f.Tables))
	for name := range f.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
