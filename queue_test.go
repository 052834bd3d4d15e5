package lockbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, q.Do(context.Background(), func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestQueueRunsOneAtATime(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func() {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestQueueBarrier(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func() { <-release })
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// Wait until the blocking job has been picked up or queued.
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, q.Barrier(ctx), context.DeadlineExceeded)

	close(release)
	<-done
	require.NoError(t, q.Barrier(context.Background()))
}

func TestQueueClose(t *testing.T) {
	q := NewQueue()
	ran := false
	require.NoError(t, q.Do(context.Background(), func() { ran = true }))
	q.Close()
	assert.True(t, ran)

	assert.Equal(t, ErrQueueClosed, q.Do(context.Background(), func() {}))
	// Close is idempotent.
	q.Close()
}

func TestDefaultQueueIsShared(t *testing.T) {
	assert.Same(t, DefaultQueue(), DefaultQueue())
}
