package ruleconf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ruled/ruled/pkg/ruleset"
	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/cache"
)

// Loaded is a ruleset together with the tables its rules reference.
type Loaded struct {
	Ruleset *ruleset.Ruleset
	Tables  map[string]table.Table
}

// Close releases the resources of every table.
func (l *Loaded) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for name, t := range l.Tables {
		if err := table.Close(t); err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Build opens the tables declared in f and assembles its rules into a Ruleset with the given
// version.  Criteria the evaluator cannot decide are accepted, but logged, since every envelope
// reaching them will be deferred.
func Build(ctx context.Context, f *File, version uint64, logger zerolog.Logger) (*Loaded, error) {
	l := &Loaded{Tables: make(map[string]table.Table, len(f.Tables))}
	for _, name := range f.TableNames() {
		def := f.Tables[name]
		def.Name = name
		t, err := table.FromConfig(ctx, def)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		if def.CacheTTL > 0 {
			t = cache.New(t, def.CacheTTL, def.NegativeTTL)
		}
		l.Tables[name] = t
	}

	b := &builder{tables: l.Tables, logger: logger}
	rules := make([]ruleset.Rule, 0, len(f.Match)+len(f.Rule))
	for i := range f.Match {
		r, err := b.match(i+1, &f.Match[i])
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		rules = append(rules, r)
	}
	for i := range f.Rule {
		r, err := b.rule(i+1, &f.Rule[i])
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		rules = append(rules, r)
	}
	l.Ruleset = ruleset.New(version, rules...)
	return l, nil
}

type builder struct {
	tables map[string]table.Table
	logger zerolog.Logger
}

// ref resolves "name" or "!name".  An empty ref yields an absent criterion.
func (b *builder) ref(s string) (ruleset.Sign, table.Table, error) {
	if s == "" {
		return ruleset.Absent, nil, nil
	}
	sign := ruleset.Normal
	if name, ok := strings.CutPrefix(s, "!"); ok {
		sign, s = ruleset.Inverted, name
	}
	t, ok := b.tables[s]
	if !ok {
		return ruleset.Absent, nil, fmt.Errorf("%w %q", ErrUnknownTable, s)
	}
	return sign, t, nil
}

func (b *builder) table(s string) (table.Table, error) {
	if s == "" {
		return nil, nil
	}
	t, ok := b.tables[s]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, s)
	}
	return t, nil
}

func (b *builder) match(n int, d *MatchDef) (*ruleset.Match, error) {
	fail := func(field string, err error) error {
		return fmt.Errorf("match #%d: %s: %w", n, field, err)
	}
	if d.Action == "" {
		return nil, fmt.Errorf("match #%d: action is required", n)
	}
	m := &ruleset.Match{Disposition: d.Action}
	for _, c := range []struct {
		field string
		value string
		dst   *ruleset.Criterion
	}{
		{"tag", d.Tag, &m.Tag},
		{"from", d.From, &m.From},
		{"to", d.To, &m.To},
		{"helo", d.Helo, &m.Helo},
		{"mail_from", d.MailFrom, &m.MailFrom},
		{"rcpt_to", d.RcptTo, &m.RcptTo},
	} {
		sign, t, err := b.ref(c.value)
		if err != nil {
			return nil, fail(c.field, err)
		}
		c.dst.Sign, c.dst.Table = sign, t
	}

	if d.FromSocket != nil {
		if d.From != "" {
			return nil, fail("from_socket", errors.New("cannot be combined with from"))
		}
		m.From = ruleset.Criterion{Sign: ruleset.SignOf(true, !*d.FromSocket), Socket: true}
	}

	switch v := d.Auth.(type) {
	case nil:
	case bool:
		m.Auth.Sign = ruleset.SignOf(true, !v)
	case string:
		sign, t, err := b.ref(v)
		if err != nil {
			return nil, fail("auth", err)
		}
		m.Auth.Sign, m.Auth.Table = sign, t
	default:
		return nil, fail("auth", fmt.Errorf("want boolean or table name, got %T", v))
	}

	if d.TLS != nil {
		m.StartTLS.Sign = ruleset.SignOf(true, !*d.TLS)
	}

	b.warnUndecidable(m.Description(), m.Criteria())
	return m, nil
}

func (b *builder) rule(n int, d *RuleDef) (*ruleset.Bundle, error) {
	if d.Action == "" {
		return nil, fmt.Errorf("rule #%d: action is required", n)
	}
	r := &ruleset.Bundle{
		Tag:         d.Tag,
		NotTag:      d.NotTag,
		WantAuth:    d.WantAuth,
		NotAuth:     d.NotAuth,
		NotSources:  d.NotSources,
		NotSenders:  d.NotSenders,
		NotRcpts:    d.NotRecipients,
		NotDest:     d.NotDestination,
		Disposition: d.Action,
	}
	var err error
	for _, c := range []struct {
		field string
		value string
		dst   *table.Table
	}{
		{"sources", d.Sources, &r.Sources},
		{"senders", d.Senders, &r.Senders},
		{"recipients", d.Recipients, &r.Recipients},
		{"destination", d.Destination, &r.Destination},
	} {
		if *c.dst, err = b.table(c.value); err != nil {
			return nil, fmt.Errorf("rule #%d: %s: %w", n, c.field, err)
		}
	}
	return r, nil
}

func (b *builder) warnUndecidable(desc string, cs []ruleset.Criterion) {
	for _, c := range cs {
		if c.Sign == ruleset.Absent {
			continue
		}
		if c.Kind == ruleset.KindStartTLS || c.Socket || (c.Kind == ruleset.KindAuth && c.Table != nil) {
			b.logger.Warn().Str("rule", desc).Str("criterion", c.String()).
				Msg("Criterion cannot be evaluated, matching envelopes will be deferred")
		}
	}
}
