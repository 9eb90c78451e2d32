// Package cache is a keyed store of asynchronously resolved values with
// request deduplication, generation-based discard and prefix invalidation.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the state of the last resolution of an entry.
type Status int

// Entry states.
const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Entry is a typed view of a cache entry.
type Entry[T any] struct {
	Status      Status
	Value       T
	HasValue    bool
	Err         error
	Generation  uint64
	UpdatedAt   time.Time
	Invalidated bool
	// Stale is set when the entry outlived the store TTL or was invalidated.
	Stale bool
	// Fetching is set while a resolution for the entry is in flight.
	Fetching bool
}

type entry struct {
	key         Key
	status      Status
	value       any
	hasValue    bool
	err         error
	gen         uint64
	updatedAt   time.Time
	invalidated bool
	inflight    int
}

// Store holds entries of any type. The zero value is not usable; use New.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64

	flights singleflight.Group
	bg      sync.WaitGroup

	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	events *prometheus.CounterVec
}

// Option configures a Store.
type Option func(*Store)

// WithTTL marks successful entries stale after d. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithLogger sets the logger for discarded and failed background resolutions.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics counts cache events by label "event"
// ("hit", "miss", "shared", "stale", "discarded", "invalidated", "error").
func WithMetrics(c *prometheus.CounterVec) Option {
	return func(s *Store) { s.events = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the entry for key. It reports false when the key is missing,
// was never resolved, or has been invalidated.
func Get[T any](s *Store, key Key) (Entry[T], bool) {
	e, ok := Peek[T](s, key)
	if !ok || e.Invalidated || (!e.HasValue && e.Err == nil) {
		return Entry[T]{}, false
	}
	return e, true
}

// Peek returns the raw entry for key, including invalidated values.
func Peek[T any](s *Store, key Key) (Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.id()]
	if !ok {
		return Entry[T]{}, false
	}
	out := Entry[T]{
		Status:      e.status,
		HasValue:    e.hasValue,
		Err:         e.err,
		Generation:  e.gen,
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
		Stale:       s.staleLocked(e),
		Fetching:    e.inflight > 0,
	}
	if e.hasValue {
		v, ok := e.value.(T)
		if !ok && e.value != nil {
			return Entry[T]{}, false
		}
		out.Value = v
	}
	return out, true
}

// Resolve returns the cached value for key when it is fresh. Otherwise it runs
// fn, sharing one call among all concurrent callers of the same key and
// generation. A failed resolution is stored on the entry and returned; calling
// Resolve again runs fn again.
func Resolve[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if e, ok := Peek[T](s, key); ok && e.Status == StatusSuccess && !e.Stale {
		s.inc("hit")
		return e.Value, nil
	}

	v, err := s.resolve(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}
	return out, nil
}

// Query is Resolve with stale-while-revalidate: when a previous value has
// outlived the TTL, it is returned immediately and fn runs in the background.
// Invalidated entries count as absent, so Query blocks on them like Resolve.
func Query[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	e, ok := Peek[T](s, key)
	if ok && e.HasValue && e.Stale && !e.Invalidated {
		s.inc("stale")
		s.revalidate(ctx, key, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
		return e.Value, nil
	}
	return Resolve(ctx, s, key, fn)
}

// Invalidate marks every entry whose key starts with prefix as stale and bumps
// its generation, so results of flights started before the call are not stored.
func (s *Store) Invalidate(prefix Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.gen = s.genLocked()
		e.invalidated = true
		e.inflight = 0
		n++
	}
	if n > 0 {
		s.add("invalidated", n)
		s.logger.Debug("Invalidated cache entries", zap.Stringer("prefix", prefix), zap.Int("count", n))
	}
	return n
}

// Remove drops the entry for key. In-flight results for it are discarded.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.id())
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Wait blocks until background revalidations started so far have finished.
func (s *Store) Wait() {
	s.bg.Wait()
}

func (s *Store) resolve(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	id := key.id()

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{key: append(Key(nil), key...), gen: s.genLocked()}
		s.entries[id] = e
	}
	gen := e.gen
	s.mu.Unlock()

	// Producers outlive callers that give up waiting.
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(id+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		if v, ok := s.freshValue(id, gen); ok {
			s.inc("hit")
			return v, nil
		}
		s.inc("miss")
		s.track(id, gen, 1)
		v, err := fn(detached)
		s.settle(id, gen, v, err)
		s.track(id, gen, -1)
		return v, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.inc("shared")
		}
		return r.Val, r.Err
	}
}

func (s *Store) revalidate(ctx context.Context, key Key, fn func(context.Context) (any, error)) {
	detached := context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.resolve(detached, key, fn); err != nil {
			s.logger.Warn("Background revalidation failed", zap.Stringer("key", key), zap.Error(err))
		}
	}()
}

func (s *Store) settle(id string, gen uint64, v any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.gen != gen {
		s.inc("discarded")
		s.logger.Debug("Discarding stale resolution", zap.String("key", id), zap.Uint64("generation", gen))
		return
	}
	e.updatedAt = s.now()
	e.invalidated = false
	if err != nil {
		s.inc("error")
		e.status = StatusError
		e.err = err
		return
	}
	e.status = StatusSuccess
	e.value = v
	e.hasValue = true
	e.err = nil
}

func (s *Store) track(id string, gen uint64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok && e.gen == gen {
		e.inflight += delta
		if e.inflight < 0 {
			e.inflight = 0
		}
	}
}

func (s *Store) freshValue(id string, gen uint64) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.gen != gen || e.status != StatusSuccess || s.staleLocked(e) {
		return nil, false
	}
	return e.value, true
}

func (s *Store) staleLocked(e *entry) bool {
	if e.invalidated {
		return true
	}
	return s.ttl > 0 && e.hasValue && s.now().Sub(e.updatedAt) > s.ttl
}

func (s *Store) genLocked() uint64 {
	s.nextGen++
	return s.nextGen
}

func (s *Store) inc(event string) { s.add(event, 1) }

func (s *Store) add(event string, n int) {
	if s.events != nil {
		s.events.WithLabelValues(event).Add(float64(n))
	}
}
