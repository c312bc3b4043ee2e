package session

// Phase is a session lifecycle stage. Phases advance strictly in order
// INIT → SETUP → ACTIVE → (ENCRYPTING ⇄ ACTIVE) → TEARDOWN → TERMINATED;
// no phase is revisited once left, except the ACTIVE/ENCRYPTING pair.
type Phase int

const (
	// PhaseInit: no volatile volume yet.
	PhaseInit Phase = iota

	// PhaseSetup: volume mounted, durable artifacts being decrypted.
	PhaseSetup

	// PhaseActive: watchers running, operator interacting.
	PhaseActive

	// PhaseEncrypting: a synchronous seal sub-phase entered from ACTIVE.
	PhaseEncrypting

	// PhaseTeardown: watchers stopped, plaintext being re-sealed, volume
	// being destroyed.
	PhaseTeardown

	// PhaseTerminated: final.
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseSetup:
		return "SETUP"
	case PhaseActive:
		return "ACTIVE"
	case PhaseEncrypting:
		return "ENCRYPTING"
	case PhaseTeardown:
		return "TEARDOWN"
	case PhaseTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
