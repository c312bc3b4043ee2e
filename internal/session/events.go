package session

// EventKind identifies a controller event. Watchers and the operator
// layer only ever submit events; the controller is the sole mutator of
// session state and processes events one at a time, which gives a total
// order across otherwise-concurrent sources.
type EventKind int

const (
	// EventActivity records an operator action for the idle clock.
	EventActivity EventKind = iota

	// EventChangeDetected reports new or changed plaintext in the
	// volatile volume. Name is the artifact name.
	EventChangeDetected

	// EventSealOne requests sealing a single artifact. With Force set the
	// explicit re-encryption path replaces an existing durable copy.
	EventSealOne

	// EventSealAll requests the bulk "encrypt all now" operation.
	EventSealAll

	// EventDeviceLost reports that the durable medium disappeared.
	// Escalates to forced teardown.
	EventDeviceLost

	// EventIdleExpired reports operator inactivity past the timeout.
	EventIdleExpired

	// EventPanic is the emergency trigger. Teardown ordering follows the
	// configured panic policy.
	EventPanic

	// EventEndSession is the explicit operator end-session request.
	EventEndSession
)

func (k EventKind) String() string {
	switch k {
	case EventActivity:
		return "activity"
	case EventChangeDetected:
		return "change-detected"
	case EventSealOne:
		return "seal-one"
	case EventSealAll:
		return "seal-all"
	case EventDeviceLost:
		return "device-lost"
	case EventIdleExpired:
		return "idle-expired"
	case EventPanic:
		return "panic"
	case EventEndSession:
		return "end-session"
	default:
		return "unknown"
	}
}

// Event is a state-transition request or change notification submitted to
// the controller's queue.
type Event struct {
	Kind  EventKind
	Name  string
	Force bool
}
