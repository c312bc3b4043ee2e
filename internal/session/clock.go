package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tmvault/tmvault/internal/utils"
	"github.com/tmvault/tmvault/internal/vault"
)

// ActivityClock tracks the last operator action. The timestamp is
// persisted inside the volatile volume so it survives watcher restarts
// within the same session, and disappears with the session itself.
type ActivityClock struct {
	path string

	mu   sync.Mutex
	last time.Time
}

// NewActivityClock returns a clock persisted under the volatile root.
func NewActivityClock(volatileRoot string) *ActivityClock {
	return &ActivityClock{path: filepath.Join(volatileRoot, vault.ClockFileName)}
}

// Touch records an operator action now.
func (a *ActivityClock) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.last = time.Now()
	// Persist best-effort; the in-memory value is authoritative while the
	// process lives.
	_ = utils.AtomicWriteFile(a.path, []byte(a.last.Format(time.RFC3339Nano)), 0600)
}

// Last returns the time of the last operator action. Falls back to the
// persisted value when the in-memory one is unset (fresh watcher after a
// restart), and to the zero time when neither exists.
func (a *ActivityClock) Last() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.last.IsZero() {
		return a.last
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}
	}
	a.last = t
	return t
}

// IdleFor returns the elapsed time since the last operator action, or 0
// when no action has been recorded yet.
func (a *ActivityClock) IdleFor() time.Duration {
	last := a.Last()
	if last.IsZero() {
		return 0
	}
	return time.Since(last)
}
