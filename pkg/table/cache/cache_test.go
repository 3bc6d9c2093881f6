package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/cache"
	"github.com/ruled/ruled/pkg/table/mem"
	"github.com/ruled/ruled/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clock struct {
	sync.Mutex
	t time.Time
}

func (c *clock) now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.Lock()
	defer c.Unlock()
	c.t = c.t.Add(d)
}

func TestCachesAnswers(t *testing.T) {
	clk := &clock{t: time.Unix(1700000000, 0)}
	next := table.NewStub("senders", true)
	c := cache.New(next, time.Minute, 10*time.Second, cache.WithClock(clk.now))
	assert.Equal(t, "senders", c.Name())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		found, err := c.Lookup(ctx, table.MailAddr, "alice@example.net")
		require.NoError(t, err)
		assert.True(t, found)
	}
	assert.Equal(t, 1, next.CallCount())

	// Service is part of the key.
	_, err := c.Lookup(ctx, table.String, "alice@example.net")
	require.NoError(t, err)
	assert.Equal(t, 2, next.CallCount())

	clk.advance(time.Minute)
	_, err = c.Lookup(ctx, table.MailAddr, "alice@example.net")
	require.NoError(t, err)
	assert.Equal(t, 3, next.CallCount(), "expired answer must be refreshed")
}

func TestNegativeTTL(t *testing.T) {
	clk := &clock{t: time.Unix(1700000000, 0)}
	next := table.NewStub("senders", false)
	c := cache.New(next, time.Minute, 10*time.Second, cache.WithClock(clk.now))
	ctx := context.Background()

	_, _ = c.Lookup(ctx, table.MailAddr, "bob@example.org")
	clk.advance(5 * time.Second)
	_, _ = c.Lookup(ctx, table.MailAddr, "bob@example.org")
	assert.Equal(t, 1, next.CallCount())

	clk.advance(5 * time.Second)
	found, err := c.Lookup(ctx, table.MailAddr, "bob@example.org")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 2, next.CallCount())
}

func TestErrorsNotCached(t *testing.T) {
	boom := errors.New("timeout")
	next := &table.MockTable{}
	next.On("Lookup", mock.Anything, table.Domain, "example.org").Return(false, boom).Once()
	next.On("Lookup", mock.Anything, table.Domain, "example.org").Return(true, nil).Once()
	c := cache.New(next, time.Minute, 0)

	_, err := c.Lookup(context.Background(), table.Domain, "example.org")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	found, err := c.Lookup(context.Background(), table.Domain, "example.org")
	require.NoError(t, err)
	assert.True(t, found)
	next.AssertExpectations(t)
}

func TestMaxEntries(t *testing.T) {
	clk := &clock{t: time.Unix(1700000000, 0)}
	c := cache.New(table.NewStub("t", true), time.Minute, 0,
		cache.WithMaxEntries(2), cache.WithClock(clk.now))
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		_, err := c.Lookup(ctx, table.String, k)
		require.NoError(t, err)
		clk.advance(time.Second)
	}
	assert.Equal(t, 2, c.Len())
}

type slowTable struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (s *slowTable) Name() string { return "slow" }

func (s *slowTable) Lookup(context.Context, table.Service, string) (bool, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-s.release
	return true, nil
}

func TestSharedMiss(t *testing.T) {
	next := &slowTable{release: make(chan struct{})}
	c := cache.New(next, time.Minute, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := c.Lookup(context.Background(), table.String, "k")
			assert.NoError(t, err)
			assert.True(t, found)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(next.release)
	wg.Wait()

	next.mu.Lock()
	defer next.mu.Unlock()
	assert.LessOrEqual(t, next.calls, 10)
	assert.GreaterOrEqual(t, next.calls, 1)
}

// blockingTable waits for release or for its ctx to be done.
type blockingTable struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingTable() *blockingTable {
	return &blockingTable{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingTable) Name() string { return "blocking" }

func (b *blockingTable) Lookup(ctx context.Context, _ table.Service, _ string) (bool, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestCancelledCallerLeavesOthersWaiting(t *testing.T) {
	next := newBlockingTable()
	c := cache.New(next, time.Minute, 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Lookup(firstCtx, table.String, "k")
		firstErr <- err
	}()
	<-next.started

	type answer struct {
		found bool
		err   error
	}
	second := make(chan answer, 1)
	go func() {
		found, err := c.Lookup(context.Background(), table.String, "k")
		second <- answer{found, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(next.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.True(t, got.found)
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}
	assert.Equal(t, 1, c.Len(), "answer from the shared call must be cached")
}

func TestLookupTimeout(t *testing.T) {
	next := newBlockingTable()
	c := cache.New(next, time.Minute, 0, cache.WithLookupTimeout(20*time.Millisecond))

	_, err := c.Lookup(context.Background(), table.String, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Len())
}

func TestSuite(t *testing.T) {
	test.TableSuite(t, func(t *testing.T, entries []string) (table.Table, func(), error) {
		c := cache.New(mem.New("suite", entries), time.Minute, time.Second)
		return c, func() { _ = c.Close() }, nil
	})
}
