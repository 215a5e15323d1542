package resilience_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestride/homestride/internal/provider/resilience"
)

func TestGate_FirstCallPassesImmediately(t *testing.T) {
	gate := resilience.NewGate(time.Hour)

	start := time.Now()
	require.NoError(t, gate.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestGate_SpacesConcurrentCallers(t *testing.T) {
	const interval = 30 * time.Millisecond
	gate := resilience.NewGate(interval)

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Wait(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, stamps, 3)
	first, last := stamps[0], stamps[0]
	for _, s := range stamps {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 2*interval-5*time.Millisecond)
}

func TestGate_ContextCanceledWhileWaiting(t *testing.T) {
	gate := resilience.NewGate(time.Hour)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := gate.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGate_CanceledWaiterDoesNotQueueBehindOthers(t *testing.T) {
	const interval = 2 * time.Second
	gate := resilience.NewGate(interval)
	require.NoError(t, gate.Wait(context.Background()))

	// Second caller sleeps until its slot, one interval out.
	queued := make(chan error, 1)
	go func() { queued <- gate.Wait(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := gate.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, <-queued)
}

func TestGate_AlreadyCanceledContext(t *testing.T) {
	gate := resilience.NewGate(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, gate.Wait(ctx), context.Canceled)
	// The canceled call reserved nothing, so the next caller passes at once.
	start := time.Now()
	require.NoError(t, gate.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestGate_AbandonedSlotIsReleased(t *testing.T) {
	const interval = 200 * time.Millisecond
	gate := resilience.NewGate(interval)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, gate.Wait(ctx), context.DeadlineExceeded)

	// The next caller takes the released slot instead of the one after it.
	start := time.Now()
	require.NoError(t, gate.Wait(context.Background()))
	assert.Less(t, time.Since(start), interval+100*time.Millisecond)
}

func TestGate_NilGateNeverBlocks(t *testing.T) {
	var gate *resilience.Gate
	assert.NoError(t, gate.Wait(context.Background()))
}
