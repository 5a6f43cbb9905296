package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stopgame/internal/domain"
)

func TestRemainingSeconds(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 90, remainingSeconds(now, 90*time.Second))
	// Partial seconds round up so the display never skips ahead.
	assert.Equal(t, 5, remainingSeconds(now.Add(-500*time.Millisecond), 5*time.Second))
	assert.Equal(t, 0, remainingSeconds(now.Add(-10*time.Second), 5*time.Second))
}

func TestCountdown_ExpiryFires(t *testing.T) {
	s := NewGameSession(domain.NewGame("TEST01"), testLogger(), nil)
	t.Cleanup(s.Close)

	expired := make(chan struct{})
	s.mu.Lock()
	s.startCountdown(1, func() { close(expired) })
	s.mu.Unlock()

	select {
	case <-expired:
	case <-time.After(3 * time.Second):
		t.Fatal("countdown never expired")
	}

	require.Eventually(t, func() bool {
		return s.Store().Get("timer.remaining") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCountdown_StopPreventsExpiry(t *testing.T) {
	s := NewGameSession(domain.NewGame("TEST01"), testLogger(), nil)
	t.Cleanup(s.Close)

	fired := make(chan struct{})
	s.mu.Lock()
	s.startCountdown(1, func() { close(fired) })
	s.stopCountdown()
	s.mu.Unlock()

	select {
	case <-fired:
		t.Fatal("stopped countdown still expired")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestCountdown_RestartReplacesTimer(t *testing.T) {
	s := NewGameSession(domain.NewGame("TEST01"), testLogger(), nil)
	t.Cleanup(s.Close)

	firstFired := make(chan struct{})
	secondFired := make(chan struct{})

	s.mu.Lock()
	s.startCountdown(1, func() { close(firstFired) })
	s.startCountdown(1, func() { close(secondFired) })
	s.mu.Unlock()

	select {
	case <-secondFired:
	case <-time.After(3 * time.Second):
		t.Fatal("replacement countdown never expired")
	}

	select {
	case <-firstFired:
		t.Fatal("replaced countdown still expired")
	default:
	}
}
