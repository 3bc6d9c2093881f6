// Package cache wraps a table with a bounded TTL cache of lookup answers.  Failed lookups are
// never cached, and concurrent misses for the same key share one backend call.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ruled/ruled/pkg/table"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxEntries bounds the cache when no limit is given.
	DefaultMaxEntries = 10000

	// DefaultLookupTimeout bounds a shared backend call when no limit is given.
	DefaultLookupTimeout = 30 * time.Second
)

type entry struct {
	found   bool
	expires time.Time
}

// Table caches the answers of an underlying table.
type Table struct {
	next        table.Table
	positiveTTL time.Duration
	negativeTTL time.Duration
	maxEntries  int
	timeout     time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

var _ table.Table = &Table{}

// Option configures a Table.
type Option func(*Table)

// WithMaxEntries bounds the number of cached answers.
func WithMaxEntries(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.maxEntries = n
		}
	}
}

// WithLookupTimeout bounds each backend call.  Shared calls do not inherit the cancellation of
// the caller that started them, so this is their only limit.
func WithLookupTimeout(d time.Duration) Option {
	return func(t *Table) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// New wraps next.  Found answers are kept for positiveTTL and not-found answers for negativeTTL;
// a zero negativeTTL uses positiveTTL.
func New(next table.Table, positiveTTL, negativeTTL time.Duration, opts ...Option) *Table {
	if negativeTTL <= 0 {
		negativeTTL = positiveTTL
	}
	t := &Table{
		next:        next,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
		maxEntries:  DefaultMaxEntries,
		timeout:     DefaultLookupTimeout,
		now:         time.Now,
		entries:     make(map[string]entry),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Name returns the name of the underlying table.
func (t *Table) Name() string {
	return t.next.Name()
}

// Lookup answers from the cache, or asks the underlying table and remembers the answer.  A
// caller whose ctx is done stops waiting without affecting other callers of the same key.
func (t *Table) Lookup(ctx context.Context, service table.Service, key string) (bool, error) {
	k := cacheKey(service, key)
	t.mu.RLock()
	e, ok := t.entries[k]
	t.mu.RUnlock()
	if ok && t.now().Before(e.expires) {
		return e.found, nil
	}

	ch := t.group.DoChan(k, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		found, err := t.next.Lookup(lctx, service, key)
		if err != nil {
			return false, err
		}
		t.store(k, found)
		return found, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		// Only this caller gives up; the shared call completes for the others.
		return false, ctx.Err()
	}
}

// Len returns the number of cached answers, including expired ones not yet evicted.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close closes the underlying table.
func (t *Table) Close() error {
	return table.Close(t.next)
}

func (t *Table) store(k string, found bool) {
	ttl := t.negativeTTL
	if found {
		ttl = t.positiveTTL
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[k]; !ok && len(t.entries) >= t.maxEntries {
		t.evict(now)
	}
	t.entries[k] = entry{found: found, expires: now.Add(ttl)}
}

// evict drops expired entries, or the entry closest to expiry when none have expired.  Lock must
// be held.
func (t *Table) evict(now time.Time) {
	var oldest string
	var oldestExp time.Time
	removed := false
	for k, e := range t.entries {
		if !now.Before(e.expires) {
			delete(t.entries, k)
			removed = true
			continue
		}
		if oldest == "" || e.expires.Before(oldestExp) {
			oldest, oldestExp = k, e.expires
		}
	}
	if !removed && oldest != "" {
		delete(t.entries, oldest)
	}
}

func cacheKey(service table.Service, key string) string {
	var sb strings.Builder
	sb.WriteString(service.String())
	sb.WriteByte(0)
	sb.WriteString(key)
	return sb.String()
}
