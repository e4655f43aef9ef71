package interrupt_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/interrupt"
)

func TestSignalSetClear(t *testing.T) {
	s := interrupt.New()
	select {
	case <-s.Done():
		t.Fatal("Done must be open before Set")
	default:
	}

	s.Set()
	s.Set()
	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed after Set")
	}

	s.Clear()
	select {
	case <-s.Done():
		t.Fatal("Done must be open after Clear")
	default:
	}
}

func TestSignalWaitReleasesAllWaiters(t *testing.T) {
	s := interrupt.New()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-s.Done()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	s.Set()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters were not released")
	}
}

func TestSleep(t *testing.T) {
	s := interrupt.New()
	ctx, cancel := s.Context(context.Background())
	defer cancel()
	assert.True(t, interrupt.Sleep(ctx, 5*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Set()
	}()
	start := time.Now()
	assert.False(t, interrupt.Sleep(ctx, 5*time.Second))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClearDoesNotRearmOldContexts(t *testing.T) {
	s := interrupt.New()
	old, cancelOld := s.Context(context.Background())
	defer cancelOld()
	s.Set()
	<-old.Done()

	s.Clear()
	fresh, cancel := s.Context(context.Background())
	defer cancel()
	assert.Error(t, old.Err())
	assert.NoError(t, fresh.Err())
	assert.True(t, interrupt.Sleep(fresh, time.Millisecond))
}

func TestSignalContext(t *testing.T) {
	s := interrupt.New()
	ctx, cancel := s.Context(context.Background())
	defer cancel()

	require.NoError(t, ctx.Err())
	s.Set()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled by signal")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
