package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tmvault/tmvault/internal/audit"
	"github.com/tmvault/tmvault/internal/configs"
	vaulterrors "github.com/tmvault/tmvault/internal/errors"
	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/platform"
	"github.com/tmvault/tmvault/internal/vault"
)

// stopGrace bounds how long teardown waits for watchers to acknowledge
// their stop signal before abandoning them.
const stopGrace = 3 * time.Second

// superviseInterval is how often dead watchers are checked for restart.
const superviseInterval = 2 * time.Second

// eventQueueSize bounds the controller's serialized event queue. Watchers
// submitting into a full queue drop the event; every watcher source is
// either periodic (the condition is re-detected) or terminal (teardown is
// already queued).
const eventQueueSize = 64

// Options configures a session controller. Presence and ReleaseVolume are
// injectable so tests can run without real devices or volumes.
type Options struct {
	Config *configs.VaultConfig
	Store  *vault.Store
	Keys   *vault.KeySet
	Log    logger.Logger

	// Presence probes the durable medium. Defaults to
	// platform.DevicePresent.
	Presence func(path string) bool

	// ReleaseVolume destroys the volatile volume after secure erase.
	// Optional; the workflow layer supplies it.
	ReleaseVolume func() error
}

// Result summarizes a completed session for the operator layer.
type Result struct {
	SessionID string

	// Cause names what forced teardown: device loss, idle timeout, panic
	// trigger, or operator request.
	Cause string

	Decrypted       []string
	DecryptFailures map[string]error
	Sealed          []string
	SealFailures    map[string]error
	Erase           platform.TreeEraseResult

	// PanicEraseOnly is true when the panic policy skipped re-sealing.
	PanicEraseOnly bool
}

// Controller owns the session state machine. It is the sole writer of
// session state: watchers and the operator layer submit events, and one
// goroutine (Run) processes them strictly in order. All store-mutating
// work happens synchronously inside that goroutine, so a watcher-triggered
// seal and an operator-triggered seal can never race on the same name.
type Controller struct {
	id    string
	cfg   *configs.VaultConfig
	store *vault.Store
	keys  *vault.KeySet
	log   logger.Logger

	presence      func(string) bool
	releaseVolume func() error

	events chan Event
	done   chan struct{}

	// phase is only written by the Run goroutine; atomic so concurrent
	// readers (status display, tests) see consistent values.
	phase atomic.Int32

	watchers []*watcherSlot
	clock    *ActivityClock

	result Result
}

type watcherSlot struct {
	watcher Watcher
	handle  *Handle
}

// New builds a controller in INIT phase.
func New(opts Options) *Controller {
	presence := opts.Presence
	if presence == nil {
		presence = platform.DevicePresent
	}

	c := &Controller{
		id:            uuid.New().String(),
		cfg:           opts.Config,
		store:         opts.Store,
		keys:          opts.Keys,
		log:           opts.Log,
		presence:      presence,
		releaseVolume: opts.ReleaseVolume,
		events:        make(chan Event, eventQueueSize),
		done:          make(chan struct{}),
		clock:         NewActivityClock(opts.Store.VolatileRoot()),
	}
	c.phase.Store(int32(PhaseInit))
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase { return Phase(c.phase.Load()) }

// Done is closed once the session reaches TERMINATED.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Submit queues an event for the controller. Never blocks: if the queue
// is full or the session has terminated the event is dropped (all sources
// are periodic or terminal, so nothing is lost for good).
func (c *Controller) Submit(ev Event) {
	select {
	case <-c.done:
	case c.events <- ev:
	default:
		c.log.Warnf("event queue full, dropping %s event", ev.Kind)
	}
}

// Run drives the session from SETUP through TERMINATED and returns the
// teardown summary. Cancelling ctx is equivalent to an explicit
// end-session request: there is no exit path that skips teardown.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if c.Phase() != PhaseInit {
		return nil, vaulterrors.ErrSessionTerminated
	}

	c.result.SessionID = c.id
	c.result.DecryptFailures = make(map[string]error)
	c.result.SealFailures = make(map[string]error)

	c.setPhase(PhaseSetup)
	c.setupDecrypt()
	c.clock.Touch()

	c.setPhase(PhaseActive)
	c.startWatchers(ctx)

	audit.Log(audit.Entry{
		Session:     c.id,
		Operation:   "open",
		Files:       c.result.Decrypted,
		FailedCount: len(c.result.DecryptFailures),
	})

	supervise := time.NewTicker(superviseInterval)
	defer supervise.Stop()

	for {
		select {
		case <-ctx.Done():
			c.teardown(nil)
			return &c.result, nil

		case ev := <-c.events:
			if c.handle(ev) {
				return &c.result, nil
			}

		case <-supervise.C:
			c.superviseWatchers(ctx)
		}
	}
}

// setupDecrypt pulls every durable artifact into the volatile volume.
// Partial failures are logged per artifact and do not block the
// SETUP→ACTIVE transition: a failed artifact simply remains durable-only
// and is retried only on explicit operator action.
func (c *Controller) setupDecrypt() {
	artifacts, err := c.store.ListDurable()
	if err != nil {
		c.log.Errorf("failed to enumerate durable artifacts: %v", err)
		return
	}

	for _, art := range artifacts {
		if err := c.store.MaterializeVolatile(art.Name); err != nil {
			c.result.DecryptFailures[art.Name] = err
			c.log.Errorf("decrypt of %s failed: %v", art.Name, err)
			continue
		}
		c.result.Decrypted = append(c.result.Decrypted, art.Name)
	}
}

func (c *Controller) startWatchers(ctx context.Context) {
	ws := []Watcher{
		newFileSyncWatcher(c.store, c.Submit, c.cfg.SyncInterval(), c.log),
		&devicePresenceWatcher{
			path:     c.cfg.PresencePath(),
			probe:    c.presence,
			interval: c.cfg.PresenceInterval(),
			submit:   c.Submit,
		},
		&panicWatcher{
			triggerPath: c.cfg.Watchers.PanicTriggerPath,
			interval:    500 * time.Millisecond,
			submit:      c.Submit,
		},
	}

	// Idle timeout 0 means disabled: the watcher is never started.
	if timeout := c.cfg.IdleTimeout(); timeout > 0 {
		ws = append(ws, &idleTimeoutWatcher{
			clock:    c.clock,
			timeout:  timeout,
			interval: idleCheckInterval(timeout),
			submit:   c.Submit,
		})
	}

	for _, w := range ws {
		c.watchers = append(c.watchers, &watcherSlot{
			watcher: w,
			handle:  c.spawn(ctx, w),
		})
	}
}

func (c *Controller) spawn(ctx context.Context, w Watcher) *Handle {
	wctx, cancel := context.WithCancel(ctx)
	h := &Handle{kind: w.Kind(), cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		if err := w.Run(wctx); err != nil && wctx.Err() == nil {
			c.log.Warnf("%s watcher exited with error: %v", w.Kind(), err)
		}
	}()

	return h
}

// superviseWatchers restarts dead watchers without tearing down the
// session. A watcher that exited because it already delivered its
// terminal event (presence, idle, panic) gets restarted too; the pending
// teardown event wins the race because events are processed before the
// next supervise tick acts on anything.
func (c *Controller) superviseWatchers(ctx context.Context) {
	if c.Phase() != PhaseActive {
		return
	}
	for _, slot := range c.watchers {
		if slot.handle.Alive() {
			continue
		}
		c.log.Infof("restarting dead %s watcher", slot.watcher.Kind())
		slot.handle = c.spawn(ctx, slot.watcher)
	}
}

// handle processes one event. Returns true once the session is
// TERMINATED.
func (c *Controller) handle(ev Event) bool {
	c.log.Debugf("processing %s event (name=%q)", ev.Kind, ev.Name)

	switch ev.Kind {
	case EventActivity:
		c.clock.Touch()

	case EventChangeDetected:
		c.clock.Touch()
		c.sealOne(ev.Name, false)

	case EventSealOne:
		c.clock.Touch()
		c.sealOne(ev.Name, ev.Force)

	case EventSealAll:
		c.clock.Touch()
		c.sealAll()

	case EventDeviceLost:
		c.teardown(vaulterrors.ErrMediumLost)
		return true

	case EventIdleExpired:
		c.teardown(vaulterrors.ErrTimeoutExpired)
		return true

	case EventPanic:
		c.teardown(vaulterrors.ErrPanicTriggered)
		return true

	case EventEndSession:
		c.teardown(nil)
		return true
	}

	return false
}

// sealOne runs a single materialize-durable inside the ENCRYPTING
// sub-phase. Collisions are reported to the operator, never resolved by
// overwriting; other per-artifact failures are recovered locally.
func (c *Controller) sealOne(name string, force bool) {
	c.setPhase(PhaseEncrypting)
	defer c.setPhase(PhaseActive)

	var err error
	if force {
		err = c.store.ForceMaterializeDurable(name)
	} else {
		err = c.store.MaterializeDurable(name)
	}

	var collision *vaulterrors.CollisionError
	switch {
	case err == nil:
	case errors.As(err, &collision):
		c.log.WarnfAlways("artifact %s collides with an existing durable copy; not overwritten (use force re-seal to replace)", collision.Name)
	default:
		c.log.Errorf("seal of %s failed: %v", name, err)
	}
}

func (c *Controller) sealAll() {
	c.setPhase(PhaseEncrypting)
	defer c.setPhase(PhaseActive)

	sealed, failures := c.store.SealAll()
	for name, err := range failures {
		var collision *vaulterrors.CollisionError
		if errors.As(err, &collision) {
			c.log.WarnfAlways("artifact %s collides with an existing durable copy; not overwritten", name)
		}
	}

	audit.Log(audit.Entry{
		Session:     c.id,
		Operation:   "seal-all",
		Files:       sealed,
		SealedCount: len(sealed),
		FailedCount: len(failures),
	})
}

// teardown is the terminal sequence: stop watchers, re-seal outstanding
// plaintext (unless the panic policy says otherwise), securely erase the
// volatile volume, release it, wipe keys. Best-effort throughout: a
// failing step degrades and is reported, and teardown is never re-entered.
func (c *Controller) teardown(cause error) {
	c.setPhase(PhaseTeardown)
	c.result.Cause = causeString(cause)
	c.log.Infof("teardown forced by %s", c.result.Cause)

	for _, slot := range c.watchers {
		if !slot.handle.Stop(stopGrace) {
			c.log.Warnf("%s watcher did not stop within grace period", slot.watcher.Kind())
		}
	}

	eraseOnly := errors.Is(cause, vaulterrors.ErrPanicTriggered) &&
		c.cfg.Session.PanicMode == configs.PanicModeEraseOnly
	if eraseOnly {
		// Destroy-over-disclose: unsynced plaintext is lost, by policy.
		c.result.PanicEraseOnly = true
		c.log.WarnfAlways("panic policy %q: skipping re-seal, unsynced changes will be destroyed", configs.PanicModeEraseOnly)
	} else {
		sealed, failures := c.store.SealAll()
		c.result.Sealed = sealed
		for name, err := range failures {
			c.result.SealFailures[name] = err
		}
	}

	eraseRes, err := platform.SecureEraseTree(c.store.VolatileRoot())
	c.result.Erase = eraseRes
	if err != nil {
		c.log.Errorf("secure erase of volatile volume incomplete: %v", err)
	}
	for _, degraded := range eraseRes.Degraded {
		c.log.Warnf("overwrite unavailable for %s, plain delete used", degraded)
	}

	if c.releaseVolume != nil {
		if err := c.releaseVolume(); err != nil {
			// Logged but never prevents process exit.
			c.log.Errorf("failed to release volatile volume: %v", err)
		}
	}

	c.keys.Wipe()

	audit.Log(audit.Entry{
		Session:     c.id,
		Operation:   "teardown",
		Cause:       c.result.Cause,
		PanicMode:   c.cfg.Session.PanicMode,
		SealedCount: len(c.result.Sealed),
		FailedCount: len(c.result.SealFailures),
		ErasedCount: eraseRes.Files,
		Degraded:    len(eraseRes.Degraded),
	})

	c.setPhase(PhaseTerminated)
	close(c.done)
}

func (c *Controller) setPhase(p Phase) {
	c.log.Debugf("session phase %s to %s", c.Phase(), p)
	c.phase.Store(int32(p))
}

func causeString(cause error) string {
	switch {
	case cause == nil:
		return "operator request"
	case errors.Is(cause, vaulterrors.ErrMediumLost):
		return "device loss"
	case errors.Is(cause, vaulterrors.ErrTimeoutExpired):
		return "idle timeout"
	case errors.Is(cause, vaulterrors.ErrPanicTriggered):
		return "panic trigger"
	default:
		return cause.Error()
	}
}
