package vault

import "path/filepath"

// DurableSuffix is appended to an artifact name for its sealed form on the
// durable medium: <name> becomes <name>.enc.
const DurableSuffix = ".enc"

// Reserved names inside the volatile volume. Both are pipeline-internal
// and never user data.
const (
	// ScratchDirName holds per-call cipher staging, kept inside the
	// volatile volume so intermediates never touch persistent storage.
	ScratchDirName = ".scratch"

	// ClockFileName persists the activity clock so it survives watcher
	// restarts within the same session.
	ClockFileName = ".tmvault-activity"
)

// ScratchPath returns the cipher staging directory for a volatile volume.
func ScratchPath(volatileRoot string) string {
	return filepath.Join(volatileRoot, ScratchDirName)
}

// Kind classifies an artifact location. Kinds are assigned when the store
// creates a file, not inferred from naming patterns; name-based
// classification happens only at the filesystem boundary for files the
// store did not create.
type Kind int

const (
	// KindPlaintext is a decrypted artifact in the volatile volume.
	KindPlaintext Kind = iota

	// KindDurable is an N-layer ciphertext on the durable medium.
	KindDurable

	// KindScratch is pipeline-internal staging, never user data.
	KindScratch
)

func (k Kind) String() string {
	switch k {
	case KindPlaintext:
		return "plaintext"
	case KindDurable:
		return "durable"
	case KindScratch:
		return "scratch"
	default:
		return "unknown"
	}
}

// Artifact is a single logical file tracked by the store, identified by a
// stable name relative to the volume roots.
type Artifact struct {
	Name string
	Kind Kind
}
