package ruleconf

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/metric"
	"github.com/ruled/ruled/pkg/ruleset"
)

// Loader reads a ruleset file, numbering each successful build with an increasing version.
type Loader struct {
	Path    string
	logger  zerolog.Logger
	version atomic.Uint64
}

// NewLoader creates a Loader for the file at path.
func NewLoader(path string) *Loader {
	return &Loader{
		Path:   path,
		logger: log.With().Str("module", "ruleconf").Str("path", path).Logger(),
	}
}

// Load reads, parses and builds the file.
func (l *Loader) Load(ctx context.Context) (*Loaded, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	loaded, err := Build(ctx, f, l.version.Add(1), l.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	return loaded, nil
}

// Manager publishes rulesets produced by a Loader and owns their tables.  Tables of a replaced
// ruleset are closed after Grace, giving selections in flight time to finish.
type Manager struct {
	Loader *Loader
	Holder *ruleset.Holder
	Grace  time.Duration

	mu      sync.Mutex
	current *Loaded
}

// NewManager creates a Manager publishing into h.  Nothing is published until Reload.
func NewManager(loader *Loader, h *ruleset.Holder, grace time.Duration) *Manager {
	return &Manager{Loader: loader, Holder: h, Grace: grace}
}

// Reload loads the file and publishes the result.  On failure the current ruleset stays in
// place.
func (m *Manager) Reload(ctx context.Context) (*ruleset.Ruleset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded, err := m.Loader.Load(ctx)
	if err != nil {
		m.Loader.logger.Error().Err(err).Msg("Ruleset load failed, keeping current ruleset")
		return nil, err
	}
	m.Holder.Store(loaded.Ruleset)
	metric.RulesetVersion.Set(float64(loaded.Ruleset.Version()))
	m.Loader.logger.Info().Uint64("version", loaded.Ruleset.Version()).
		Int("rules", loaded.Ruleset.Len()).Int("tables", len(loaded.Tables)).
		Msg("Ruleset loaded")

	old := m.current
	m.current = loaded
	if old != nil {
		m.retire(old)
	}
	return loaded.Ruleset, nil
}

// Close closes the tables of the current ruleset.  The Holder keeps the snapshot, but lookups
// against closed tables fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.current.Close()
	m.current = nil
	return err
}

func (m *Manager) retire(old *Loaded) {
	closeOld := func() {
		if err := old.Close(); err != nil {
			m.Loader.logger.Warn().Err(err).Uint64("version", old.Ruleset.Version()).
				Msg("Failed to close tables of replaced ruleset")
		}
	}
	if m.Grace <= 0 {
		closeOld()
		return
	}
	time.AfterFunc(m.Grace, closeOld)
}
