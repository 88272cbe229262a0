// Package metastore keeps one entity collection per Store, persisted as a
// single JSON document in an object store, with an in-process fallback
// collection used whenever the object store is unconfigured or unreachable.
package metastore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/wa-psh/committee/blob"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("metastore: not found")

	// ErrInvalidPatch is returned when an update patch does not fit the record type.
	ErrInvalidPatch = errors.New("metastore: invalid patch")
)

// State reports where a Store currently reads and writes its collection.
type State int

const (
	Uninitialized State = iota
	StoreBacked
	MemoryBacked
)

func (s State) String() string {
	switch s {
	case StoreBacked:
		return "store"
	case MemoryBacked:
		return "memory"
	default:
		return "uninitialized"
	}
}

// Logger is the subset of the echo/gommon logger the store writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Stats counts degraded operations since the Store was created.
type Stats struct {
	FailedReads    int `json:"failedReads"`    // object store reads that fell back to memory
	DegradedWrites int `json:"degradedWrites"` // object store writes that fell back to memory
	ParseFailures  int `json:"parseFailures"`  // persisted documents treated as empty collections
}

// Store owns the collection of one entity kind. All mutation goes through it.
type Store[T any] struct {
	kind    Kind[T]
	objects blob.Store
	logger  Logger
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex // guards state, mem, memLoaded, stats
	state     State
	mem       []T
	memLoaded bool
	stats     Stats

	// writeMu serialises read-modify-write cycles so concurrent mutations
	// cannot lose each other's changes.
	writeMu sync.Mutex
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithLogger sets the logger used for degradation warnings.
func WithLogger[T any](l Logger) Option[T] {
	return func(s *Store[T]) {
		s.logger = l
	}
}

// WithClock replaces time.Now for server-set timestamps.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) {
		s.now = now
	}
}

// WithIDFunc replaces the record id generator.
func WithIDFunc[T any](fn func() string) Option[T] {
	return func(s *Store[T]) {
		s.newID = fn
	}
}

// New creates a Store for kind. A nil objects store means the object store
// is not configured and the Store runs memory-backed.
func New[T any](kind Kind[T], objects blob.Store, opts ...Option[T]) (*Store[T], error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}
	s := &Store[T]{
		kind:    kind,
		objects: objects,
		now:     time.Now,
		newID:   newID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		l := log.New("metastore")
		l.SetOutput(os.Stderr)
		s.logger = l
	}
	return s, nil
}

// newID returns a time-ordered UUIDv7, falling back to a random UUID.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Name returns the collection name of the store.
func (s *Store[T]) Name() string {
	return s.kind.Name
}

// Configured reports whether an object store backs this Store.
func (s *Store[T]) Configured() bool {
	return s.objects != nil
}

// State returns the current backing state.
func (s *Store[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the degradation counters.
func (s *Store[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Initialize loads the collection once so the store leaves the
// Uninitialized state. It never fails: an unreachable object store leaves
// the Store memory-backed.
func (s *Store[T]) Initialize(ctx context.Context) State {
	s.load(ctx)
	return s.State()
}

// All returns the collection in persisted (insertion) order.
func (s *Store[T]) All(ctx context.Context) []T {
	return s.load(ctx)
}

// Get returns the record with the given id.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	return s.Find(ctx, func(v T) bool { return s.kind.IDOf(v) == id })
}

// Find returns the first record matching pred.
func (s *Store[T]) Find(ctx context.Context, pred func(T) bool) (T, error) {
	for _, v := range s.load(ctx) {
		if pred(v) {
			return v, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// Add assigns an id and server-owned fields to v, appends it and persists
// the collection. The returned bool is false when the object store write
// failed and the record only lives in the memory fallback.
func (s *Store[T]) Add(ctx context.Context, v T) (T, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	items := s.load(ctx)
	s.kind.Prepare(&v, s.newID(), s.now().UTC(), items)
	items = append(items, v)
	return v, s.save(ctx, items)
}

// Update merges patch over the record with the given id. Immutable fields
// (id, creation timestamp) are dropped from the patch and restored after the
// merge, so attempts to change them are ignored. The bool reports
// durability as for Add.
func (s *Store[T]) Update(ctx context.Context, id string, patch map[string]any) (T, bool, error) {
	patch = s.Sanitize(patch)
	return s.Modify(ctx, id, func(v *T) error {
		merged, err := Merge(*v, patch)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		*v = merged
		return nil
	})
}

// Modify applies fn to the record with the given id while holding the
// store's write lock, so read-modify-write cycles such as counters are not
// lost to concurrent writers. Immutable fields are restored after fn runs.
// An error from fn aborts the write and is returned as is.
func (s *Store[T]) Modify(ctx context.Context, id string, fn func(*T) error) (T, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var zero T
	items := s.load(ctx)
	idx := s.indexOf(items, id)
	if idx < 0 {
		return zero, false, ErrNotFound
	}
	v := items[idx]
	if err := fn(&v); err != nil {
		return zero, false, err
	}
	s.kind.Preserve(&v, items[idx])
	items[idx] = v
	return v, s.save(ctx, items), nil
}

// Sanitize returns a copy of patch without the kind's immutable keys.
func (s *Store[T]) Sanitize(patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		out[k] = v
	}
	for _, k := range s.kind.Immutable {
		delete(out, k)
	}
	return out
}

// Delete removes the record with the given id and returns it. The bool
// reports durability as for Add.
func (s *Store[T]) Delete(ctx context.Context, id string) (T, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var zero T
	items := s.load(ctx)
	idx := s.indexOf(items, id)
	if idx < 0 {
		return zero, false, ErrNotFound
	}
	removed := items[idx]
	items = append(items[:idx], items[idx+1:]...)
	return removed, s.save(ctx, items), nil
}

func (s *Store[T]) indexOf(items []T, id string) int {
	for i, v := range items {
		if s.kind.IDOf(v) == id {
			return i
		}
	}
	return -1
}

// load returns a private copy of the current collection, fetching it from
// the object store when one is configured.
func (s *Store[T]) load(ctx context.Context) []T {
	if s.objects == nil {
		return s.fromMemory()
	}

	key := s.kind.Key()
	data, err := s.objects.Get(ctx, key)
	switch {
	case err == nil:
		items, perr := decodeCollection[T](data, s.kind.Envelope, s.kind.Name)
		if perr != nil {
			s.logger.Warnf("metastore: %s: unreadable document treated as empty: %v", key, perr)
			s.mu.Lock()
			s.stats.ParseFailures++
			s.mu.Unlock()
			items = []T{}
		}
		s.remember(items, StoreBacked)
		return items

	case errors.Is(err, blob.ErrNotFound):
		s.logger.Infof("metastore: %s: not found, writing default dataset", key)
		items := s.kind.defaults()
		if !s.save(ctx, items) {
			return s.fromMemory()
		}
		return clone(items)

	default:
		s.logger.Errorf("metastore: %s: read failed, using memory fallback: %v", key, err)
		s.mu.Lock()
		s.stats.FailedReads++
		s.mu.Unlock()
		return s.fromMemory()
	}
}

// fromMemory switches to the memory-backed state, seeding the fallback
// collection with the default dataset if it was never populated.
func (s *Store[T]) fromMemory() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.memLoaded {
		s.mem = s.kind.defaults()
		s.memLoaded = true
	}
	s.state = MemoryBacked
	return clone(s.mem)
}

// remember records items as the last known collection and sets the state.
func (s *Store[T]) remember(items []T, state State) {
	s.mu.Lock()
	s.mem = clone(items)
	s.memLoaded = true
	s.state = state
	s.mu.Unlock()
}

// save persists items. On object store failure the memory fallback is
// updated instead and save returns false.
func (s *Store[T]) save(ctx context.Context, items []T) bool {
	if s.objects == nil {
		s.remember(items, MemoryBacked)
		return true
	}

	key := s.kind.Key()
	data, err := encodeCollection(items, s.kind.Envelope)
	if err == nil {
		_, err = s.objects.Put(ctx, key, data, "application/json")
	}
	if err != nil {
		s.logger.Warnf("metastore: %s: write failed, keeping change in memory: %v", key, err)
		s.mu.Lock()
		s.stats.DegradedWrites++
		s.mu.Unlock()
		s.remember(items, MemoryBacked)
		return false
	}
	s.remember(items, StoreBacked)
	return true
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
