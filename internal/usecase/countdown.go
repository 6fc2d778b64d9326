package usecase

import (
	"sync"
	"time"

	"camclip/internal/ports"
)

// countdown owns the single repeating tick of a recording. Starting it again
// cancels the previous subscription first.
type countdown struct {
	clock    ports.Clock
	interval time.Duration

	mu   sync.Mutex
	stop func()
}

func newCountdown(clock ports.Clock, interval time.Duration) *countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &countdown{clock: clock, interval: interval}
}

func (c *countdown) start(onTick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
	}
	c.stop = c.clock.Every(c.interval, onTick)
}

// cancel is safe to call on a stopped or never started countdown.
func (c *countdown) cancel() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// SystemClock ticks on wall-clock time.
type SystemClock struct{}

func (SystemClock) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	quit := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				select {
				case <-quit:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(quit)
		})
	}
}
