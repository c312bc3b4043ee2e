package session

import (
	"context"
	"time"
)

// devicePresenceWatcher polls the durable medium at a fixed interval
// (reference: 2s). Loss is urgent: the first negative probe emits exactly
// one device-lost event, with no debounce retries, and the watcher exits.
type devicePresenceWatcher struct {
	path     string
	probe    func(string) bool
	interval time.Duration
	submit   func(Event)
}

func (w *devicePresenceWatcher) Kind() string { return "device-presence" }

func (w *devicePresenceWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !w.probe(w.path) {
				w.submit(Event{Kind: EventDeviceLost})
				return nil
			}
		}
	}
}
