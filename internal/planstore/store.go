// Package planstore persists named meal plans in a single JSON document that
// is read wholesale and rewritten wholesale on every change.
package planstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/macroplan/internal/meal"
)

var (
	// ErrValidation is returned when a plan cannot be saved as requested.
	ErrValidation = errors.New("planstore: validation failed")
	// ErrNotFound is returned when no saved plan has the requested id.
	ErrNotFound = errors.New("planstore: plan not found")
)

// SavedPlan is an immutable snapshot of a plan.
type SavedPlan struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Caps      meal.Caps     `json:"caps" yaml:"caps"`
	Meals     []meal.Record `json:"meals" yaml:"meals"`
}

// Logger receives store anomalies that are not returned as errors.
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// Store reads and writes the saved-plan document at path.
type Store struct {
	path   string
	now    func() time.Time
	newID  func() string
	logger Logger

	mu sync.Mutex
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides the plan id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger routes read anomalies to l.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store backed by the file at path. The file is created on the
// first write.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// List returns every saved plan in save order. A missing, empty or unreadable
// document yields an empty list.
func (s *Store) List() []SavedPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	plans, _ := s.read()
	return plans
}

// Save snapshots instances under name. A name already in use gets " (2)",
// " (3)", ... appended until it is unique.
func (s *Store) Save(name string, caps meal.Caps, instances []meal.Instance) (SavedPlan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedPlan{}, fmt.Errorf("%w: plan name is required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, malformed := s.read()
	if malformed {
		if err := s.quarantine(); err != nil {
			return SavedPlan{}, err
		}
	}
	saved := SavedPlan{
		ID:        s.newID(),
		Name:      uniqueName(name, plans),
		CreatedAt: s.now(),
		Caps:      caps,
		Meals:     meal.Records(instances),
	}
	if err := s.write(append(plans, saved)); err != nil {
		return SavedPlan{}, err
	}
	return saved, nil
}

// Load returns the saved plan with id.
func (s *Store) Load(id string) (SavedPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plans, _ := s.read()
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return SavedPlan{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the plan with id. Unknown ids are ignored.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plans, _ := s.read()
	kept := plans[:0]
	found := false
	for _, p := range plans {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return nil
	}
	return s.write(kept)
}

// read loads the collection. malformed reports a document that exists but
// could not be decoded; callers must not write over it.
func (s *Store) read() (plans []SavedPlan, malformed bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warnf("planstore: read %s: %v", s.path, err)
		}
		return []SavedPlan{}, false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []SavedPlan{}, false
	}
	if err := json.Unmarshal(data, &plans); err != nil {
		s.logger.Warnf("planstore: %s is malformed, treating as empty: %v", s.path, err)
		return []SavedPlan{}, true
	}
	if plans == nil {
		plans = []SavedPlan{}
	}
	return plans, false
}

// quarantine moves a malformed document aside as <path>.corrupt-<timestamp>
// so the next write starts a fresh collection without losing the old bytes.
func (s *Store) quarantine() error {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("planstore: move malformed %s aside: %w", s.path, err)
	}
	s.logger.Warnf("planstore: moved malformed %s to %s", s.path, backup)
	return nil
}

// write replaces the document atomically: the collection is encoded to a
// temp file in the same directory which is then renamed over the target.
func (s *Store) write(plans []SavedPlan) error {
	if plans == nil {
		plans = []SavedPlan{}
	}
	encoded, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("planstore: encode plans: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("planstore: ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("planstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }
	if _, err := tmp.Write(append(encoded, '\n')); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("planstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("planstore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("planstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("planstore: replace %s: %w", s.path, err)
	}
	return nil
}

func uniqueName(name string, plans []SavedPlan) string {
	taken := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		taken[p.Name] = struct{}{}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
