package app

import (
	"math"
	"sync"
	"time"

	"stopgame/internal/protocol"
)

const (
	// tickInterval is the fine-grained local tick updating the store.
	tickInterval = 100 * time.Millisecond

	// syncInterval is the coarse authoritative broadcast rate. Clients
	// extrapolate between syncs from their last known value.
	syncInterval = 5 * time.Second
)

// countdown is one running phase timer. Cancelling is idempotent; both
// the tick and sync loops exit on the same channel.
type countdown struct {
	cancel chan struct{}
	once   sync.Once
}

func (c *countdown) stop() {
	c.once.Do(func() { close(c.cancel) })
}

// startCountdown begins a phase timer. Any previous timer is stopped
// first; exactly one countdown runs at a time, and it must be cancelled
// on every path that leaves ANSWERING or VOTING.
func (s *GameSession) startCountdown(seconds int, expired func()) {
	s.stopCountdown()

	c := &countdown{cancel: make(chan struct{})}
	s.countdown = c

	go s.runCountdown(c, seconds, expired)
}

// stopCountdown cancels the running timer, if any. Caller holds s.mu.
func (s *GameSession) stopCountdown() {
	if s.countdown != nil {
		s.countdown.stop()
		s.countdown = nil
	}
}

func (s *GameSession) runCountdown(c *countdown, seconds int, expired func()) {
	duration := time.Duration(seconds) * time.Second
	start := time.Now()

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	syncTick := time.NewTicker(syncInterval)
	defer syncTick.Stop()

	s.store.Set("timer.remaining", seconds)
	s.broadcast(protocol.NewMessage(protocol.MsgTimerSync, &protocol.TimerSyncPayload{Remaining: seconds}))

	last := seconds
	for {
		select {
		case <-c.cancel:
			return
		case <-s.done:
			return
		case <-syncTick.C:
			s.broadcast(protocol.NewMessage(protocol.MsgTimerSync, &protocol.TimerSyncPayload{
				Remaining: remainingSeconds(start, duration),
			}))
		case <-tick.C:
			remaining := remainingSeconds(start, duration)
			if remaining != last {
				last = remaining
				s.store.Set("timer.remaining", remaining)
			}
			if remaining <= 0 {
				c.stop()
				s.broadcast(protocol.NewMessage(protocol.MsgTimerSync, &protocol.TimerSyncPayload{Remaining: 0}))
				expired()
				return
			}
		}
	}
}

// remainingSeconds computes ceil of the time left, clamped at 0.
func remainingSeconds(start time.Time, duration time.Duration) int {
	left := duration - time.Since(start)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
