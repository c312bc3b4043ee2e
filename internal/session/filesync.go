package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/vault"
)

// debounceWindow groups rapid successive writes to the same file into one
// change event.
const debounceWindow = time.Second

// newFileSyncWatcher picks the best available file-sync backend: native
// change notifications when fsnotify can initialize, a fixed-interval
// poll of the store's discovery otherwise. Both backends are restartable
// by the controller without restarting the session.
func newFileSyncWatcher(store *vault.Store, submit func(Event), interval time.Duration, log logger.Logger) Watcher {
	probe, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("change notifications unavailable, falling back to polling: %v", err)
		return &pollFileSync{store: store, submit: submit, interval: interval, log: log}
	}
	probe.Close()
	return &notifyFileSync{store: store, submit: submit, log: log}
}

// notifyFileSync is the event-driven backend.
type notifyFileSync struct {
	store  *vault.Store
	submit func(Event)
	log    logger.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func (w *notifyFileSync) Kind() string { return "file-sync" }

func (w *notifyFileSync) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	root := w.store.VolatileRoot()
	if err := addRecursive(watcher, root); err != nil {
		return err
	}

	w.mu.Lock()
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	flush := time.NewTicker(250 * time.Millisecond)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.record(root, event.Name)
			}
			// New directories need to be watched too.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Debugf("file-sync notification error: %v", err)

		case <-flush.C:
			w.flush()
		}
	}
}

func (w *notifyFileSync) record(root, path string) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	if !w.store.IsUserData(rel) {
		return
	}

	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

func (w *notifyFileSync) flush() {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for name, changed := range w.pending {
		if now.Sub(changed) >= debounceWindow {
			ready = append(ready, name)
			delete(w.pending, name)
		}
	}
	w.mu.Unlock()

	for _, name := range ready {
		w.submit(Event{Kind: EventChangeDetected, Name: name})
	}
}

func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		if !info.IsDir() {
			return nil
		}
		if filepath.Base(path) == vault.ScratchDirName {
			return filepath.SkipDir
		}
		// Non-fatal; a directory that cannot be watched is picked up by
		// the next restart.
		_ = watcher.Add(path)
		return nil
	})
}

// pollFileSync is the OS-agnostic fallback backend: it polls the store's
// restartable discovery on a fixed interval (reference: 5s).
type pollFileSync struct {
	store    *vault.Store
	submit   func(Event)
	interval time.Duration
	log      logger.Logger
}

func (w *pollFileSync) Kind() string { return "file-sync" }

func (w *pollFileSync) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			names, err := w.store.DiscoverNewPlaintext()
			if err != nil {
				w.log.Debugf("file-sync discovery failed: %v", err)
				continue
			}
			for _, name := range names {
				w.submit(Event{Kind: EventChangeDetected, Name: name})
			}
		}
	}
}
