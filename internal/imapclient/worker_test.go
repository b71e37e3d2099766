package imapclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRunReturnsResult(t *testing.T) {
	var w Worker
	v, err := w.Run(context.Background(), func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.False(t, w.InFlight())
}

func TestWorkerRunRejectsConcurrentCall(t *testing.T) {
	var w Worker
	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = w.Run(context.Background(), func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()

	<-started
	_, err := w.Run(context.Background(), func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	wg.Wait()
	assert.False(t, w.InFlight())
}

func TestWorkerRunRespectsCancellation(t *testing.T) {
	var w Worker
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Run(ctx, func() (any, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
