package session

import (
	"context"
	"os"
	"time"
)

// panicWatcher is the operator-armed emergency trigger: creating the
// designated trigger file forces an immediate teardown. The teardown
// ordering (erase-only vs seal-first) is the controller's configured
// panic policy, not this watcher's concern. Unarmed (empty path), the
// watcher blocks until cancelled.
type panicWatcher struct {
	triggerPath string
	interval    time.Duration
	submit      func(Event)
}

func (w *panicWatcher) Kind() string { return "panic" }

func (w *panicWatcher) Run(ctx context.Context) error {
	if w.triggerPath == "" {
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
			if _, err := os.Stat(w.triggerPath); err == nil {
				// Consume the trigger so a restart does not re-fire.
				_ = os.Remove(w.triggerPath)
				w.submit(Event{Kind: EventPanic})
				return nil
			}
		}
	}
}
