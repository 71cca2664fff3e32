package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	mu    sync.Mutex
	calls int
	n     int
	err   error
	block chan struct{}
}

func (f *fakeDeleter) SweepExpired(ctx context.Context) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.n, f.err
}

func (f *fakeDeleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRun_Success(t *testing.T) {
	d := &fakeDeleter{n: 2}
	s := New(d, time.Hour)
	s.run(context.Background())
	assert.Equal(t, 1, d.callCount())
}

func TestRun_ErrorSwallowed(t *testing.T) {
	d := &fakeDeleter{err: errors.New("store down")}
	s := New(d, time.Hour)
	// Must not panic or propagate; sweeping is best-effort.
	s.run(context.Background())
	assert.Equal(t, 1, d.callCount())
}

func TestRun_OverlapSkipped(t *testing.T) {
	d := &fakeDeleter{block: make(chan struct{})}
	s := New(d, time.Hour)

	done := make(chan struct{})
	go func() {
		s.run(context.Background())
		close(done)
	}()

	// Wait for the first run to be mid-flight.
	require.Eventually(t, func() bool { return d.callCount() == 1 }, time.Second, time.Millisecond)

	s.run(context.Background()) // overlapping run is skipped
	assert.Equal(t, 1, d.callCount())

	close(d.block)
	<-done
}

func TestStartStop(t *testing.T) {
	d := &fakeDeleter{}
	s := New(d, time.Hour)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
