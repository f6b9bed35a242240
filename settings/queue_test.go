package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateQueueFIFO(t *testing.T) {
	q := newUpdateQueue()
	defer q.close()

	gate := make(chan struct{})
	started := make(chan struct{})
	var (
		mu    sync.Mutex
		order []int
	)

	// Hold the worker so every later job is queued behind the first.
	first := make(chan error, 1)
	go func() {
		_, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
			close(started)
			<-gate
			return nil, nil
		})
		first <- err
	}()
	<-started

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		// Wait for each job to be queued so submission order is known.
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err)
		}()
		require.Eventually(t, func() bool { return q.depth() == i+1 }, time.Second, time.Millisecond)
	}

	close(gate)
	wg.Wait()
	require.NoError(t, <-first)

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
}

func TestUpdateQueueSurvivesFailure(t *testing.T) {
	q := newUpdateQueue()
	defer q.close()

	boom := errors.New("backend write failed")
	_, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = q.submit(context.Background(), func(context.Context) (map[string]any, error) {
		panic("bad patch")
	})
	assert.ErrorContains(t, err, "panicked")

	got, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, got)
}

func TestUpdateQueueCallerCancel(t *testing.T) {
	q := newUpdateQueue()
	defer q.close()

	gate := make(chan struct{})
	started := make(chan struct{})
	go q.submit(context.Background(), func(context.Context) (map[string]any, error) {
		close(started)
		<-gate
		return nil, nil
	})
	<-started

	ran := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.submit(ctx, func(jobCtx context.Context) (map[string]any, error) {
			ran <- jobCtx.Err()
			return nil, nil
		})
		done <- err
	}()
	require.Eventually(t, func() bool { return q.depth() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The abandoned job still runs in its turn, with a live context.
	close(gate)
	select {
	case err := <-ran:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled job never ran")
	}
}

func TestUpdateQueueClose(t *testing.T) {
	q := newUpdateQueue()

	gate := make(chan struct{})
	started := make(chan struct{})
	results := make(chan error, 2)
	go func() {
		_, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
			close(started)
			<-gate
			return nil, nil
		})
		results <- err
	}()
	<-started
	go func() {
		_, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
			return nil, nil
		})
		results <- err
	}()
	require.Eventually(t, func() bool { return q.depth() == 1 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		q.close()
		close(closed)
	}()
	close(gate)
	<-closed

	// Queued work drains before the worker exits.
	assert.NoError(t, <-results)
	assert.NoError(t, <-results)

	_, err := q.submit(context.Background(), func(context.Context) (map[string]any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrClosed)
	q.close()
}
