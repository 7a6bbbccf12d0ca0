// Package clock runs the companion's idle-time heartbeat. Between
// conversations it periodically wakes the reflection cycle so private
// monologues accumulate while the user is away.
package clock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BeatFunc is called when the heartbeat fires.
type BeatFunc func(ctx context.Context) error

// Heartbeat fires a callback on a fixed wall-clock interval. It skips a
// beat instead of stacking them when the callback runs long.
type Heartbeat struct {
	interval time.Duration
	beatFn   BeatFunc
	logger   *zap.Logger

	lastBeat time.Time
	lock     sync.Mutex
	stop     chan struct{}
	done     chan struct{}
}

// NewHeartbeat creates a heartbeat with the given interval.
func NewHeartbeat(interval time.Duration, beatFn BeatFunc, logger *zap.Logger) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		beatFn:   beatFn,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called.
func (h *Heartbeat) Start() {
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case now := <-ticker.C:
				h.onTick(now)
			}
		}
	}()
}

// Stop halts the tick loop and waits for it to exit.
func (h *Heartbeat) Stop() {
	close(h.stop)
	<-h.done
}

// FireNow forces an immediate beat, bypassing the interval check.
func (h *Heartbeat) FireNow() {
	h.fire(time.Now())
}

func (h *Heartbeat) onTick(now time.Time) {
	h.lock.Lock()
	if h.lastBeat.IsZero() {
		h.lastBeat = now
		h.lock.Unlock()
		return
	}
	if now.Sub(h.lastBeat) < h.interval {
		h.lock.Unlock()
		return
	}
	h.lastBeat = now
	h.lock.Unlock()

	h.fire(now)
}

func (h *Heartbeat) fire(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.beatFn(ctx); err != nil {
		h.logger.Warn("heartbeat failed", zap.Error(err))
		return
	}
	h.logger.Debug("heartbeat fired", zap.Time("at", now))
}
