package ordering

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Logger is the logging surface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Backend reads and writes the serialised record.
//
// Load returns (nil, nil) when no record has been written yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Identified is anything that carries an item UID.
type Identified interface {
	ItemUID() string
}

// Listener receives a snapshot of the record after Updated.
type Listener func(Record)

// Store holds per-list sort weights and persists them through a Backend.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Listeners are called on the goroutine that called Updated, without the
//     store lock held, so they may read from the store.
type Store struct {
	backend Backend
	logger  Logger

	mu     sync.RWMutex
	record *Record
	loaded bool
	dirty  bool

	saveMu sync.Mutex // serialises backend writes

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewStore creates a store on the given backend. Call Load before use.
func NewStore(backend Backend) *Store {
	return &Store{
		backend:   backend,
		logger:    noopLogger{},
		listeners: make(map[int]Listener),
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load reads the persisted record.
//
// When nothing has been persisted an empty record is created and written
// immediately. A record that exists but cannot be decoded is reported and the
// store stays unloaded; it is never silently replaced.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading ordering record: %w", err)
	}

	var record *Record
	if data != nil {
		record, err = decodeRecord(data)
		if err != nil {
			return err
		}
	}

	created := record == nil
	if created {
		record = NewRecord()
	}

	s.mu.Lock()
	s.record = record
	s.loaded = true
	s.dirty = false
	s.mu.Unlock()

	if created {
		s.logger.Info("no ordering record found, creating empty record")
		return s.Save(ctx, true)
	}

	s.logger.Debug("ordering record loaded", "lists", len(record.SortWeights))
	return nil
}

// Loaded reports whether Load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Weights returns a copy of the weights for listID.
//
// A list seen for the first time gets an empty map registered under its ID.
// The registration does not mark the store dirty.
func (s *Store) Weights(listID string) Weights {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureRecord()
	lw, ok := s.record.SortWeights[listID]
	if !ok {
		lw = &ListWeights{Weights: Weights{}}
		s.record.SortWeights[listID] = lw
	}
	return lw.Weights.Clone()
}

// SetWeights replaces the weights for listID and marks the store dirty.
// Nothing is written until Save.
func (s *Store) SetWeights(listID string, weights Weights) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureRecord()
	s.record.SortWeights[listID] = &ListWeights{Weights: weights.Clone()}
	s.dirty = true
}

// ClearWeights drops the custom order of listID.
func (s *Store) ClearWeights(listID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureRecord()
	if _, ok := s.record.SortWeights[listID]; !ok {
		return
	}
	s.record.SortWeights[listID] = &ListWeights{Weights: Weights{}}
	s.dirty = true
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Snapshot returns a deep copy of the current record.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return NewRecord().Clone()
	}
	return s.record.Clone()
}

// Save writes the record if it is dirty or force is set.
//
// The dirty flag is cleared only after the backend accepted the write, so a
// failed save is retried by the next call.
func (s *Store) Save(ctx context.Context, force bool) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if !s.dirty && !force {
		s.mu.Unlock()
		return nil
	}
	data, err := encodeRecord(s.record)
	s.dirty = false
	s.mu.Unlock()

	if err == nil {
		err = s.backend.Save(ctx, data)
	}
	if err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		s.logger.Error("saving ordering record failed", "error", err)
		return fmt.Errorf("saving ordering record: %w", err)
	}

	s.logger.Debug("ordering record saved", "bytes", len(data))
	return nil
}

// AddListener registers fn to be called by Updated. The returned function
// removes it again and is safe to call more than once.
func (s *Store) AddListener(fn Listener) (remove func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// Updated marks the store dirty, notifies every listener with a snapshot of
// the record and then saves.
func (s *Store) Updated(ctx context.Context) error {
	s.mu.Lock()
	s.ensureRecord()
	s.dirty = true
	s.mu.Unlock()

	snapshot := s.Snapshot()

	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}

	return s.Save(ctx, false)
}

// ensureRecord lets an unloaded store serve reads and collect changes; they
// are only written once Load has succeeded. Caller holds s.mu.
func (s *Store) ensureRecord() {
	if s.record == nil {
		s.record = NewRecord()
	}
}

// SortItems returns items ordered by the weights stored for listID.
//
// The sort is stable: items without a weight keep their relative input order
// and come after every weighted item. The input slice is not modified.
func SortItems[T Identified](s *Store, listID string, items []T) []T {
	weights := s.Weights(listID)

	out := make([]T, len(items))
	copy(out, items)

	weightOf := func(item T) float64 {
		if w, ok := weights[item.ItemUID()]; ok {
			return float64(w)
		}
		return math.Inf(1)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return weightOf(out[i]) < weightOf(out[j])
	})
	return out
}
