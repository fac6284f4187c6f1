package storage

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Create(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.data[key]; ok {
		return jetstream.ErrKeyExists
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.data[key]
	return ok, nil
}

func openWith(store kvStore) *LaunchMarkers {
	m := NewLaunchMarkers("", 0, "replica-a")
	m.store = store
	return m
}

func TestLaunchMarkers(t *testing.T) {
	ctx := context.Background()
	const ts = "2024-09-18T09:30Z"

	t.Run("default bucket", func(t *testing.T) {
		m := NewLaunchMarkers("", 0, "h")
		if m.Bucket() != DefaultMarkerBucket {
			t.Errorf("expected bucket %s, got %s", DefaultMarkerBucket, m.Bucket())
		}
	})

	t.Run("not open", func(t *testing.T) {
		m := NewLaunchMarkers("B", 0, "h")
		if _, err := m.TryAdd(ctx, ts); !errors.Is(err, ErrNotOpen) {
			t.Errorf("expected ErrNotOpen, got %v", err)
		}
		if err := m.Remove(ctx, ts); !errors.Is(err, ErrNotOpen) {
			t.Errorf("expected ErrNotOpen, got %v", err)
		}
		if _, err := m.Contains(ctx, ts); !errors.Is(err, ErrNotOpen) {
			t.Errorf("expected ErrNotOpen, got %v", err)
		}
	})

	t.Run("add remove cycle", func(t *testing.T) {
		kv := newMemKV()
		m := openWith(kv)

		added, err := m.TryAdd(ctx, ts)
		if err != nil || !added {
			t.Fatalf("first TryAdd = %v, %v", added, err)
		}
		added, err = m.TryAdd(ctx, ts)
		if err != nil || added {
			t.Fatalf("second TryAdd = %v, %v", added, err)
		}

		held, err := m.Contains(ctx, ts)
		if err != nil || !held {
			t.Fatalf("Contains = %v, %v", held, err)
		}

		key, _ := encodeKey(ts)
		if string(kv.data[key]) != "replica-a" {
			t.Errorf("expected holder value, got %q", kv.data[key])
		}

		if err := m.Remove(ctx, ts); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		held, _ = m.Contains(ctx, ts)
		if held {
			t.Error("marker still held after Remove")
		}

		added, _ = m.TryAdd(ctx, ts)
		if !added {
			t.Error("TryAdd after Remove should succeed")
		}
	})

	t.Run("remove absent is no-op", func(t *testing.T) {
		m := openWith(newMemKV())
		if err := m.Remove(ctx, ts); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("backend error is wrapped", func(t *testing.T) {
		boom := errors.New("nats unavailable")
		kv := newMemKV()
		kv.err = boom
		m := openWith(kv)

		if _, err := m.TryAdd(ctx, ts); !errors.Is(err, boom) {
			t.Errorf("TryAdd: expected %v, got %v", boom, err)
		}
		if err := m.Remove(ctx, ts); !errors.Is(err, boom) {
			t.Errorf("Remove: expected %v, got %v", boom, err)
		}
		if _, err := m.Contains(ctx, ts); !errors.Is(err, boom) {
			t.Errorf("Contains: expected %v, got %v", boom, err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		m := openWith(newMemKV())
		if _, err := m.TryAdd(ctx, ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("expected ErrEmptyKey, got %v", err)
		}
	})

	t.Run("concurrent adds have one winner", func(t *testing.T) {
		m := openWith(newMemKV())

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := m.TryAdd(ctx, ts); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Errorf("expected exactly one winner, got %d", wins.Load())
		}
	})
}

func TestEncodeKey(t *testing.T) {
	valid := regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

	inputs := []string{
		"2024-09-18T09:30Z",
		"2025-10-02T14:30:00+02:00",
		"ts with spaces\n",
	}
	seen := make(map[string]string)
	for _, in := range inputs {
		got, err := encodeKey(in)
		if err != nil {
			t.Fatalf("encodeKey(%q): %v", in, err)
		}
		if !valid.MatchString(got) {
			t.Errorf("encodeKey(%q) = %q is not a valid KV key", in, got)
		}
		if prev, dup := seen[got]; dup {
			t.Errorf("encodeKey collision between %q and %q", prev, in)
		}
		seen[got] = in
	}
}
