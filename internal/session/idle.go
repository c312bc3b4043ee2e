package session

import (
	"context"
	"time"
)

// idleTimeoutWatcher compares the activity clock against the configured
// timeout. A timeout of 0 disables idle teardown: the watcher blocks
// until cancelled and never fires, regardless of elapsed time.
type idleTimeoutWatcher struct {
	clock    *ActivityClock
	timeout  time.Duration
	interval time.Duration
	submit   func(Event)
}

func (w *idleTimeoutWatcher) Kind() string { return "idle-timeout" }

func (w *idleTimeoutWatcher) Run(ctx context.Context) error {
	if w.timeout == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if w.clock.IdleFor() >= w.timeout {
				w.submit(Event{Kind: EventIdleExpired})
				return nil
			}
		}
	}
}

// idleCheckInterval derives a check cadence from the timeout: frequent
// enough to fire close to the deadline, never busier than once a second.
func idleCheckInterval(timeout time.Duration) time.Duration {
	interval := timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
