package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		key, prefix Key
		want        bool
	}{
		{Key{"products"}, Key{"products"}, true},
		{Key{"products", "7"}, Key{"products"}, true},
		{Key{"product", "7"}, Key{"products"}, false},
		{Key{"products"}, Key{"products", "7"}, false},
		{Key{"searchResults", "abc"}, Key{}, true},
	}
	for _, tt := range tests {
		if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%v.HasPrefix(%v) = %v, want %v", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestKey_ElementsDoNotCollide(t *testing.T) {
	s := New()
	ctx := context.Background()
	keys := []Key{
		{"a\x1fb"},
		{"a", "b"},
		{"a:b"},
		{"1:a"},
		{"", "1:a"},
	}
	for i, k := range keys {
		if _, err := Resolve(ctx, s, k, func(context.Context) (int, error) { return i, nil }); err != nil {
			t.Fatalf("Resolve %v: %v", k, err)
		}
	}
	for i, k := range keys {
		e, ok := Get[int](s, k)
		if !ok || e.Value != i {
			t.Errorf("%q: expected own entry %d, got %+v (ok=%v)", []string(k), i, e, ok)
		}
	}
}

func TestResolve_DeduplicatesConcurrentCalls(t *testing.T) {
	s := New()
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 20
	results := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = Resolve(context.Background(), s, Key{"searchResults", "abc123"},
				func(context.Context) (string, error) {
					calls.Add(1)
					<-release
					return "products", nil
				})
		}()
	}

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected producer to run once, ran %d times", got)
	}
	for i := range n {
		if errs[i] != nil || results[i] != "products" {
			t.Errorf("caller %d got %q, %v", i, results[i], errs[i])
		}
	}
}

func TestResolve_ReturnsFreshValueWithoutProducer(t *testing.T) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_events_total"}, []string{"event"})
	s := New(WithMetrics(events))
	key := Key{"categories"}

	if _, err := Resolve(context.Background(), s, key, func(context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	v, err := Resolve(context.Background(), s, key, func(context.Context) (int, error) {
		t.Fatal("producer must not run for a fresh entry")
		return 0, nil
	})
	if err != nil || v != 1 {
		t.Fatalf("expected cached 1, got %d, %v", v, err)
	}
	if got := testutil.ToFloat64(events.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %f", got)
	}
	if got := testutil.ToFloat64(events.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %f", got)
	}
}

func TestInvalidate_DiscardsInFlightResolution(t *testing.T) {
	s := New()
	key := Key{"products"}

	if _, err := Resolve(context.Background(), s, key, func(context.Context) (string, error) { return "v1", nil }); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	s.Invalidate(key)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := Resolve(context.Background(), s, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	if n := s.Invalidate(key); n != 1 {
		t.Fatalf("expected 1 invalidated entry, got %d", n)
	}
	close(release)
	if v := <-done; v != "stale" {
		t.Fatalf("waiting caller should still receive its own result, got %q", v)
	}

	e, ok := Peek[string](s, key)
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if e.Value != "v1" || !e.Invalidated {
		t.Fatalf("stale resolution overwrote entry: %+v", e)
	}
	if _, ok := Get[string](s, key); ok {
		t.Fatal("invalidated entry must be absent from Get")
	}

	v, err := Resolve(context.Background(), s, key, func(context.Context) (string, error) { return "fresh", nil })
	if err != nil || v != "fresh" {
		t.Fatalf("expected fresh, got %q, %v", v, err)
	}
	if e, ok := Get[string](s, key); !ok || e.Value != "fresh" {
		t.Fatalf("expected fresh entry, got %+v, %v", e, ok)
	}
}

func TestRemove_DiscardsInFlightResolution(t *testing.T) {
	s := New()
	key := Key{"searchResults", "old"}
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = Resolve(context.Background(), s, key, func(context.Context) (int, error) {
			close(started)
			<-release
			return 3, nil
		})
	}()
	<-started
	s.Remove(key)
	close(release)
	<-done

	if _, ok := Peek[int](s, key); ok {
		t.Fatal("removed entry must not be recreated by a late resolution")
	}
}

func TestResolve_StoresErrorWithoutRetry(t *testing.T) {
	s := New()
	key := Key{"searchResults", "abc"}
	boom := errors.New("boom")
	var calls int

	_, err := Resolve(context.Background(), s, key, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	e, ok := Get[int](s, key)
	if !ok || e.Status != StatusError || !errors.Is(e.Err, boom) {
		t.Fatalf("expected error entry, got %+v, %v", e, ok)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}

	v, err := Resolve(context.Background(), s, key, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	if err != nil || v != 7 || calls != 2 {
		t.Fatalf("explicit retry: got %d, %v after %d calls", v, err, calls)
	}
}

func TestResolve_CallerCancellationDoesNotAbortFlight(t *testing.T) {
	s := New()
	key := Key{"brands"}
	release := make(chan struct{})
	started := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		_, err := Resolve(ctx, s, key, func(pctx context.Context) (string, error) {
			close(started)
			<-release
			return "acme", pctx.Err()
		})
		errc <- err
	}()

	<-started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)

	waitFor(t, func() bool {
		e, ok := Get[string](s, key)
		return ok && e.Status == StatusSuccess
	})
	if e, _ := Get[string](s, key); e.Value != "acme" {
		t.Fatalf("expected flight result to be stored, got %+v", e)
	}
}

func TestQuery_StaleWhileRevalidate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s := New(WithTTL(time.Minute), WithClock(clock))
	key := Key{"products"}

	v, err := Query(context.Background(), s, key, func(context.Context) (string, error) { return "a", nil })
	if err != nil || v != "a" {
		t.Fatalf("first query: %q, %v", v, err)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	release := make(chan struct{})
	v, err = Query(context.Background(), s, key, func(context.Context) (string, error) {
		<-release
		return "b", nil
	})
	if err != nil || v != "a" {
		t.Fatalf("expected stale value while revalidating, got %q, %v", v, err)
	}
	close(release)
	s.Wait()

	e, ok := Get[string](s, key)
	if !ok || e.Value != "b" || e.Stale {
		t.Fatalf("expected revalidated value, got %+v", e)
	}
}

func TestQuery_InvalidatedEntryIsRefetched(t *testing.T) {
	s := New(WithTTL(time.Hour))
	key := Key{"products"}
	if _, err := Query(context.Background(), s, key, func(context.Context) ([]string, error) {
		return []string{"jacket"}, nil
	}); err != nil {
		t.Fatalf("Query: %v", err)
	}

	s.Invalidate(Key{"products"})
	if e, ok := Peek[[]string](s, key); !ok || len(e.Value) != 1 || !e.Stale {
		t.Fatalf("expected last good value to stay visible through Peek, got %+v", e)
	}

	v, err := Query(context.Background(), s, key, func(context.Context) ([]string, error) {
		return []string{"jacket", "chair"}, nil
	})
	if err != nil || len(v) != 2 {
		t.Fatalf("expected refetched list after invalidation, got %v, %v", v, err)
	}
}

func TestInvalidate_Prefix(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []Key{{"products"}, {"products", "1"}, {"product", "1"}} {
		if _, err := Resolve(ctx, s, k, func(context.Context) (int, error) { return 1, nil }); err != nil {
			t.Fatalf("Resolve %v: %v", k, err)
		}
	}

	if n := s.Invalidate(Key{"products"}); n != 2 {
		t.Fatalf("expected 2 invalidated entries, got %d", n)
	}
	if _, ok := Get[int](s, Key{"products", "1"}); ok {
		t.Error("expected [products 1] to be invalidated")
	}
	if _, ok := Get[int](s, Key{"product", "1"}); !ok {
		t.Error("expected [product 1] to survive")
	}
	if s.Len() != 3 {
		t.Errorf("expected entries to be kept, got %d", s.Len())
	}
}

func TestGet_MissingAndPending(t *testing.T) {
	s := New()
	if _, ok := Get[int](s, Key{"nope"}); ok {
		t.Fatal("expected missing key to be absent")
	}

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = Resolve(context.Background(), s, Key{"slow"}, func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started
	if _, ok := Get[int](s, Key{"slow"}); ok {
		t.Error("expected unresolved entry to be absent")
	}
	if e, ok := Peek[int](s, Key{"slow"}); !ok || !e.Fetching || e.Status != StatusPending {
		t.Errorf("expected pending fetching entry, got %+v", e)
	}
	close(release)
}
