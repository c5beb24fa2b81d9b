package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_DefaultsToEpoch(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestClock_NowDoesNotMove(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestClock_AdvanceAndSet(t *testing.T) {
	clock := NewClock(Epoch)

	got := clock.Advance(36 * time.Hour)
	assert.Equal(t, Epoch.Add(36*time.Hour), got)
	assert.Equal(t, "2025-01-16", clock.Now().Format("2006-01-02"))

	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(target)
	assert.Equal(t, target, clock.Now())
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock(Epoch)
	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	require.Equal(t, Epoch.Add(workers*time.Second), clock.Now())
}

func TestSequenceIDs(t *testing.T) {
	ids := NewSequenceIDs("")
	assert.Equal(t, "TRX-TEST-0001", ids.Generate())
	assert.Equal(t, "TRX-TEST-0002", ids.Generate())

	ids.Reset()
	assert.Equal(t, "TRX-TEST-0001", ids.Generate())

	custom := NewSequenceIDs("TRX-42")
	assert.Equal(t, "TRX-42-0001", custom.Generate())
}
