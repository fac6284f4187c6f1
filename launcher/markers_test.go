package launcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMarkers(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMarkers()

	added, err := m.TryAdd(ctx, "k")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.TryAdd(ctx, "k")
	require.NoError(t, err)
	assert.False(t, added)

	held, _ := m.Contains(ctx, "k")
	assert.True(t, held)

	require.NoError(t, m.Remove(ctx, "k"))
	require.NoError(t, m.Remove(ctx, "k"))
	held, _ = m.Contains(ctx, "k")
	assert.False(t, held)

	added, _ = m.TryAdd(ctx, "k")
	assert.True(t, added)
}

func TestMemoryMarkers_ConcurrentTryAdd(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMarkers()

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := m.TryAdd(ctx, "same"); ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, m.Len())
}
