package session

import (
	"context"
	"time"
)

// Watcher is a supervised concurrent event source. Run blocks until the
// context is cancelled or the watcher's job is done (a presence watcher
// exits after reporting loss, for example). Watchers never touch the
// artifact store's mutating operations, only submit events.
type Watcher interface {
	Kind() string
	Run(ctx context.Context) error
}

// Handle tracks one running watcher: its liveness and cancel signal.
// Owned by the controller, which may detect a dead watcher and restart it
// without tearing down the session.
type Handle struct {
	kind   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Alive reports whether the watcher goroutine is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Stop cancels the watcher and waits up to grace for it to acknowledge.
// Returns false if the grace period elapsed first; the goroutine is then
// abandoned (it holds no store state, so that is safe).
func (h *Handle) Stop(grace time.Duration) bool {
	h.cancel()
	select {
	case <-h.done:
		return true
	case <-time.After(grace):
		return false
	}
}
