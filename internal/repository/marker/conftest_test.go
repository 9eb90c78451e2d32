package marker

import (
	"context"
	"time"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	setNXFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	existsFn func(ctx context.Context, key string) (bool, error)
}

func (m *mockKVStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return m.setNXFn(ctx, key, value, ttl)
}

func (m *mockKVStore) Exists(ctx context.Context, key string) (bool, error) {
	return m.existsFn(ctx, key)
}

// newMapStore returns a mock that behaves like SET NX over a map.
func newMapStore() (*mockKVStore, map[string][]byte) {
	data := make(map[string][]byte)
	return &mockKVStore{
		setNXFn: func(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
			if _, ok := data[key]; ok {
				return false, nil
			}
			data[key] = value
			return true, nil
		},
		existsFn: func(_ context.Context, key string) (bool, error) {
			_, ok := data[key]
			return ok, nil
		},
	}, data
}
