package session

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvault/tmvault/internal/configs"
	"github.com/tmvault/tmvault/internal/crypto"
	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/vault"
)

const testWait = 10 * time.Second

type testSession struct {
	ctrl  *Controller
	store *vault.Store
	cfg   *configs.VaultConfig
}

// newTestSession builds a single-layer session over temp dirs with fast
// watcher intervals and a presence probe that is injectable per test.
func newTestSession(t *testing.T, mutate func(*configs.VaultConfig), presence func(string) bool) *testSession {
	t.Helper()

	durable := t.TempDir()
	vol := t.TempDir()

	cfg := configs.DefaultVaultConfig()
	cfg.Vault.DurableRoot = durable
	cfg.Vault.Layers = 1
	cfg.Session.IdleTimeoutSeconds = 0
	cfg.Watchers.SyncIntervalSeconds = 1
	cfg.Watchers.PresenceIntervalSeconds = 1
	if mutate != nil {
		mutate(cfg)
	}

	keys, err := vault.NewKeySet([][]byte{[]byte("alpha")})
	require.NoError(t, err)

	cipher := crypto.NewLayeredCipher(crypto.NewSecretboxEngine(), vault.ScratchPath(vol))
	store := vault.NewStore(cipher, keys, durable, vol, cfg.Vault.Include, logger.Logger{})

	ctrl := New(Options{
		Config:   cfg,
		Store:    store,
		Keys:     keys,
		Log:      logger.Logger{},
		Presence: presence,
	})

	return &testSession{ctrl: ctrl, store: store, cfg: cfg}
}

func (ts *testSession) run(t *testing.T) <-chan *Result {
	t.Helper()

	results := make(chan *Result, 1)
	go func() {
		result, err := ts.ctrl.Run(context.Background())
		if err != nil {
			t.Errorf("Run failed: %v", err)
			close(results)
			return
		}
		results <- result
	}()
	return results
}

func (ts *testSession) waitActive(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ts.ctrl.Phase() == PhaseActive
	}, testWait, 10*time.Millisecond, "session never reached ACTIVE")
}

func waitResult(t *testing.T, results <-chan *Result) *Result {
	t.Helper()
	select {
	case result := <-results:
		require.NotNil(t, result)
		return result
	case <-time.After(testWait):
		t.Fatal("session never terminated")
		return nil
	}
}

func writePlaintext(t *testing.T, store *vault.Store, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(store.VolatilePath(name), []byte(content), 0600))
}

func sealFixture(t *testing.T, store *vault.Store, name, content string) {
	t.Helper()
	writePlaintext(t, store, name, content)
	require.NoError(t, store.MaterializeDurable(name))
}

func TestSessionDecryptsOnSetupAndSealsOnEnd(t *testing.T) {
	ts := newTestSession(t, nil, nil)
	sealFixture(t, ts.store, "doc.txt", "hello")

	results := ts.run(t)
	ts.waitActive(t)

	// Setup decrypted the artifact into the volatile volume.
	got, err := os.ReadFile(ts.store.VolatilePath("doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	ts.ctrl.Submit(Event{Kind: EventEndSession})
	result := waitResult(t, results)

	assert.Equal(t, PhaseTerminated, ts.ctrl.Phase())
	assert.Equal(t, "operator request", result.Cause)
	assert.Contains(t, result.Decrypted, "doc.txt")
	assert.Contains(t, result.Sealed, "doc.txt")
	assert.Empty(t, result.SealFailures)

	// The artifact is back on the medium and gone from the volume.
	_, err = os.Stat(ts.store.DurablePath("doc.txt"))
	assert.NoError(t, err, "teardown did not seal the artifact back")
	_, err = os.Stat(ts.store.VolatilePath("doc.txt"))
	assert.True(t, os.IsNotExist(err), "plaintext survived teardown")
}

func TestSessionTeardownErasesEverything(t *testing.T) {
	ts := newTestSession(t, nil, nil)

	results := ts.run(t)
	ts.waitActive(t)

	writePlaintext(t, ts.store, "draft.txt", "unsynced work")
	ts.ctrl.Submit(Event{Kind: EventEndSession})
	result := waitResult(t, results)

	// Teardown seals new plaintext before erasing it.
	assert.Contains(t, result.Sealed, "draft.txt")
	entries, err := os.ReadDir(ts.store.VolatileRoot())
	require.NoError(t, err)
	assert.Empty(t, entries, "volatile volume not emptied by teardown")
}

func TestDeviceLossForcesTeardown(t *testing.T) {
	present := make(chan bool, 1)
	present <- true
	probe := func(string) bool {
		select {
		case p := <-present:
			return p
		default:
			return false
		}
	}

	ts := newTestSession(t, nil, probe)
	sealFixture(t, ts.store, "doc.txt", "hello")

	results := ts.run(t)
	ts.waitActive(t)

	// The next probe reports the medium gone.
	result := waitResult(t, results)

	assert.Equal(t, "device loss", result.Cause)
	assert.Equal(t, PhaseTerminated, ts.ctrl.Phase())
	// Teardown still sealed the decrypted artifact (onto the durable root,
	// which in this test is still writable).
	assert.Contains(t, result.Sealed, "doc.txt")
}

func TestPanicEraseOnlySkipsSealing(t *testing.T) {
	trigger := filepath.Join(t.TempDir(), "panic-now")
	ts := newTestSession(t, func(cfg *configs.VaultConfig) {
		cfg.Session.PanicMode = configs.PanicModeEraseOnly
		cfg.Watchers.PanicTriggerPath = trigger
	}, nil)

	results := ts.run(t)
	ts.waitActive(t)

	writePlaintext(t, ts.store, "secret.txt", "never persisted")
	require.NoError(t, os.WriteFile(trigger, nil, 0600))

	result := waitResult(t, results)

	assert.Equal(t, "panic trigger", result.Cause)
	assert.True(t, result.PanicEraseOnly)
	assert.Empty(t, result.Sealed, "erase-only panic must not seal")

	// The plaintext was destroyed, not persisted anywhere.
	_, err := os.Stat(ts.store.DurablePath("secret.txt"))
	assert.True(t, os.IsNotExist(err), "erase-only panic wrote to the medium")
	_, err = os.Stat(ts.store.VolatilePath("secret.txt"))
	assert.True(t, os.IsNotExist(err), "plaintext survived panic teardown")

	// The trigger file was consumed.
	_, err = os.Stat(trigger)
	assert.True(t, os.IsNotExist(err), "panic trigger not consumed")
}

func TestPanicSealFirstSealsBeforeErasing(t *testing.T) {
	trigger := filepath.Join(t.TempDir(), "panic-now")
	ts := newTestSession(t, func(cfg *configs.VaultConfig) {
		cfg.Session.PanicMode = configs.PanicModeSealFirst
		cfg.Watchers.PanicTriggerPath = trigger
	}, nil)

	results := ts.run(t)
	ts.waitActive(t)

	writePlaintext(t, ts.store, "secret.txt", "must survive")
	require.NoError(t, os.WriteFile(trigger, nil, 0600))

	result := waitResult(t, results)

	assert.Equal(t, "panic trigger", result.Cause)
	assert.False(t, result.PanicEraseOnly)
	assert.Contains(t, result.Sealed, "secret.txt")
	_, err := os.Stat(ts.store.DurablePath("secret.txt"))
	assert.NoError(t, err, "seal-first panic did not persist the artifact")
}

func TestSealOneEvent(t *testing.T) {
	ts := newTestSession(t, nil, nil)

	results := ts.run(t)
	ts.waitActive(t)

	writePlaintext(t, ts.store, "note.txt", "content")
	ts.ctrl.Submit(Event{Kind: EventSealOne, Name: "note.txt"})

	require.Eventually(t, func() bool {
		_, err := os.Stat(ts.store.DurablePath("note.txt"))
		return err == nil
	}, testWait, 10*time.Millisecond, "seal-one never produced a durable artifact")

	// Session stays alive after an encrypting cycle.
	assert.Equal(t, PhaseActive, ts.ctrl.Phase())

	ts.ctrl.Submit(Event{Kind: EventEndSession})
	waitResult(t, results)
}

func TestFileSyncSealsNewPlaintext(t *testing.T) {
	ts := newTestSession(t, nil, nil)

	results := ts.run(t)
	ts.waitActive(t)

	writePlaintext(t, ts.store, "auto.txt", "picked up by the watcher")

	// Debounce plus a sync cycle: the watcher must detect, debounce, and
	// the controller must seal.
	require.Eventually(t, func() bool {
		_, err := os.Stat(ts.store.DurablePath("auto.txt"))
		return err == nil
	}, testWait, 25*time.Millisecond, "file-sync never sealed the new file")

	ts.ctrl.Submit(Event{Kind: EventEndSession})
	waitResult(t, results)
}

func TestIdleTimeoutForcesTeardown(t *testing.T) {
	ts := newTestSession(t, func(cfg *configs.VaultConfig) {
		cfg.Session.IdleTimeoutSeconds = 1
	}, nil)

	results := ts.run(t)
	ts.waitActive(t)

	// No activity after setup; the idle watcher fires within a couple of
	// check intervals.
	result := waitResult(t, results)

	assert.Equal(t, "idle timeout", result.Cause)
	assert.Equal(t, PhaseTerminated, ts.ctrl.Phase())
}

func TestContextCancelIsOrderlyTeardown(t *testing.T) {
	ts := newTestSession(t, nil, nil)
	sealFixture(t, ts.store, "doc.txt", "hello")

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan *Result, 1)
	go func() {
		result, err := ts.ctrl.Run(ctx)
		require.NoError(t, err)
		results <- result
	}()

	require.Eventually(t, func() bool {
		return ts.ctrl.Phase() == PhaseActive
	}, testWait, 10*time.Millisecond)

	cancel()
	result := waitResult(t, results)

	assert.Equal(t, "operator request", result.Cause)
	assert.Contains(t, result.Sealed, "doc.txt")
	assert.Equal(t, PhaseTerminated, ts.ctrl.Phase())
}

func TestPollFileSyncSkipsUntouchedDecrypts(t *testing.T) {
	ts := newTestSession(t, nil, nil)
	sealFixture(t, ts.store, "doc.txt", "hello")
	require.NoError(t, ts.store.MaterializeVolatile("doc.txt"))

	events := make(chan Event, 16)
	w := &pollFileSync{
		store:    ts.store,
		submit:   func(ev Event) { events <- ev },
		interval: 20 * time.Millisecond,
		log:      logger.Logger{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Several poll cycles over a freshly decrypted, untouched file must
	// stay silent; a change event here would get the file sealed and its
	// plaintext erased with no operator action.
	select {
	case ev := <-events:
		t.Fatalf("untouched decrypt reported as change: %q", ev.Name)
	case <-time.After(200 * time.Millisecond):
	}

	writePlaintext(t, ts.store, "doc.txt", "hello with an edit")
	select {
	case ev := <-events:
		assert.Equal(t, EventChangeDetected, ev.Kind)
		assert.Equal(t, "doc.txt", ev.Name)
	case <-time.After(testWait):
		t.Fatal("edited file never reported by the poll backend")
	}
}

// exitingWatcher dies on its first run and blocks on subsequent runs, the
// way a watcher that hit a transient backend failure would.
type exitingWatcher struct {
	runs atomic.Int32
}

func (w *exitingWatcher) Kind() string { return "exiting" }

func (w *exitingWatcher) Run(ctx context.Context) error {
	if w.runs.Add(1) == 1 {
		return nil
	}
	<-ctx.Done()
	return nil
}

func TestSuperviseRestartsDeadWatcher(t *testing.T) {
	ts := newTestSession(t, nil, nil)
	c := ts.ctrl
	c.setPhase(PhaseActive)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &exitingWatcher{}
	slot := &watcherSlot{watcher: w, handle: c.spawn(ctx, w)}
	c.watchers = append(c.watchers, slot)

	require.Eventually(t, func() bool {
		return !slot.handle.Alive()
	}, testWait, 5*time.Millisecond, "first run never exited")

	c.superviseWatchers(ctx)

	assert.True(t, slot.handle.Alive(), "dead watcher was not restarted")
	assert.Equal(t, int32(2), w.runs.Load())
	assert.Equal(t, PhaseActive, c.Phase(), "restart must not disturb the session")

	// Outside ACTIVE the supervisor leaves dead watchers alone.
	require.True(t, slot.handle.Stop(time.Second))
	c.setPhase(PhaseTeardown)
	c.superviseWatchers(ctx)
	assert.False(t, slot.handle.Alive(), "watcher restarted during teardown")
}

func TestRunRefusesReuse(t *testing.T) {
	ts := newTestSession(t, nil, nil)

	results := ts.run(t)
	ts.waitActive(t)
	ts.ctrl.Submit(Event{Kind: EventEndSession})
	waitResult(t, results)

	_, err := ts.ctrl.Run(context.Background())
	assert.Error(t, err, "a terminated controller must not run again")
}
