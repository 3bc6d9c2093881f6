package table

import "context"

// Literal is a table holding a single value compared by exact string equality, regardless of
// service.  It backs criteria configured with an inline value rather than a named table.
type Literal struct {
	Value string
}

var _ Table = Literal{}

// Name returns the quoted value, which is how inline values are rendered in rule descriptions.
func (l Literal) Name() string {
	return `"` + l.Value + `"`
}

// Lookup never fails.
func (l Literal) Lookup(_ context.Context, _ Service, key string) (bool, error) {
	return key == l.Value, nil
}
