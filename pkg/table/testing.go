package table

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockTable is a shared mock for unit testing.
type MockTable struct {
	mock.Mock
}

// Name mock function
func (m *MockTable) Name() string {
	args := m.Called()
	return args.String(0)
}

// Lookup mock function
func (m *MockTable) Lookup(ctx context.Context, service Service, key string) (bool, error) {
	args := m.Called(ctx, service, key)
	return args.Bool(0), args.Error(1)
}

// Lookup records a single call made to a StubTable.
type Lookup struct {
	Service Service
	Key     string
}

// StubTable is a test table returning a fixed answer and recording every lookup.
type StubTable struct {
	sync.Mutex
	TableName string
	Found     bool
	Err       error
	Calls     []Lookup
}

var _ Table = &StubTable{}

// NewStub creates a StubTable answering found to every lookup.
func NewStub(name string, found bool) *StubTable {
	return &StubTable{TableName: name, Found: found}
}

// NewFailingStub creates a StubTable failing every lookup with err.
func NewFailingStub(name string, err error) *StubTable {
	return &StubTable{TableName: name, Err: err}
}

// Name returns the configured name.
func (s *StubTable) Name() string {
	return s.TableName
}

// Lookup records the call and returns the configured answer.
func (s *StubTable) Lookup(_ context.Context, service Service, key string) (bool, error) {
	s.Lock()
	defer s.Unlock()
	s.Calls = append(s.Calls, Lookup{Service: service, Key: key})
	return s.Found, s.Err
}

// CallCount returns the number of lookups performed.
func (s *StubTable) CallCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.Calls)
}
