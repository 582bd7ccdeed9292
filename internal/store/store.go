package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/obs-gateway/lbac-proxy/internal/errs"
)

// DefaultReloadInterval matches spec.md §3's documented default poll
// period for the configuration watcher.
const DefaultReloadInterval = 30 * time.Second

// Store holds a single atomic reference to the current ConfigDocument.
// Readers take the reference with one atomic load and then operate on
// the immutable snapshot: no lock is held across parsing, and a swap
// in flight never produces a torn read (spec.md §5).
type Store struct {
	doc        atomic.Pointer[ConfigDocument]
	path       string
	interval   time.Duration
	logger     *log.Logger
	modTime    atomic.Int64
	lastGood   atomic.Int64
	generation atomic.Uint64
	onReload   func(ok bool, generation uint64)
}

// Option configures a Store.
type Option func(*Store)

// WithReloadInterval overrides DefaultReloadInterval.
func WithReloadInterval(d time.Duration) Option {
	return func(s *Store) { s.interval = d }
}

// WithLogger overrides the default stdlib logger used for reload warnings,
// matching the teacher's *log.Logger-everywhere idiom.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithReloadObserver registers a callback invoked after every reload
// attempt (including the initial load), letting the caller wire reload
// outcomes into its own instrumentation (internal/metrics) without this
// package importing client_golang itself.
func WithReloadObserver(fn func(ok bool, generation uint64)) Option {
	return func(s *Store) { s.onReload = fn }
}

// NewStore loads path once (failure here is fatal: spec.md §7's
// ConfigUnavailable "startup fails") and returns a Store ready to be
// polled by Run.
func NewStore(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:     path,
		interval: DefaultReloadInterval,
		logger:   log.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	doc, modTime, err := loadDocument(path)
	if err != nil {
		if s.onReload != nil {
			s.onReload(false, 0)
		}
		return nil, &errs.ConfigUnavailable{Err: fmt.Errorf("initial config load: %w", err)}
	}
	s.doc.Store(doc)
	s.modTime.Store(modTime)
	s.lastGood.Store(time.Now().Unix())
	s.generation.Add(1)
	if s.onReload != nil {
		s.onReload(true, s.generation.Load())
	}
	return s, nil
}

// Current returns the immutable snapshot currently in effect. Safe to
// call from any number of concurrent request-handling goroutines.
func (s *Store) Current() *ConfigDocument {
	return s.doc.Load()
}

// Generation returns a monotonically increasing counter bumped on every
// successful reload, used to tag audit records with the snapshot a
// request was served from without exposing the document itself.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Healthy reports whether a configuration document has been loaded
// successfully at least once. A later failed reload does not clear it.
func (s *Store) Healthy() bool {
	return s.lastGood.Load() > 0
}

// Run polls the file's modification time every interval and atomically
// replaces the in-memory document if newer. A read or parse failure
// keeps the previous snapshot live and logs a warning (spec.md §5, §7):
// it never blocks readers and never partially applies a document.
//
// Run returns when ctx is cancelled. Shutdown completes within one tick
// of cancellation, well inside spec.md §5's 5-second budget.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.reloadIfChanged()
		}
	}
}

func (s *Store) reloadIfChanged() {
	info, err := os.Stat(s.path)
	if err != nil {
		s.logger.Printf("config reload: stat %q: %v (keeping previous snapshot)", s.path, err)
		return
	}

	mtime := info.ModTime().Unix()
	if mtime <= s.modTime.Load() {
		return
	}

	doc, _, err := loadDocument(s.path)
	if err != nil {
		s.logger.Printf("config reload: %v (keeping previous snapshot)", err)
		if s.onReload != nil {
			s.onReload(false, s.generation.Load())
		}
		return
	}

	s.doc.Store(doc)
	s.modTime.Store(mtime)
	s.lastGood.Store(time.Now().Unix())
	s.generation.Add(1)
	s.logger.Printf("config reload: applied new snapshot (generation %d)", s.generation.Load())
	if s.onReload != nil {
		s.onReload(true, s.generation.Load())
	}
}

func loadDocument(path string) (*ConfigDocument, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("stat %q: %w", path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %q: %w", path, err)
	}

	doc, err := Decode(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %q: %w", path, err)
	}

	return doc, info.ModTime().Unix(), nil
}

// AuditID mints a correlation ID for one enforcement decision, typed as
// strfmt.UUID — the same formatted-string type the go-openapi client
// stack uses elsewhere in this dependency tree — so every consumer of the
// audit trail gets a value that is structurally a UUID, not a bare string.
func AuditID() strfmt.UUID {
	return strfmt.UUID(uuid.NewString())
}
