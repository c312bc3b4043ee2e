package platform

import (
	"fmt"
	"os"
	"path/filepath"

	vaulterrors "github.com/tmvault/tmvault/internal/errors"
)

// Volume is a directory backing the decrypted working set. RAMBacked
// reports whether the directory lives on non-persistent storage; callers
// must surface a loud warning when it does not.
type Volume struct {
	Path      string
	RAMBacked bool

	// SizeHintMB is advisory; actual capacity is bounded by the backing
	// mount.
	SizeHintMB int
}

// AcquireVolatile creates a session directory on the best available
// non-persistent backing. Candidates are tried in order: XDG_RUNTIME_DIR,
// /dev/shm, then the system temp dir as a persistent-storage fallback
// (reported via RAMBacked=false, never silently).
func AcquireVolatile(sizeHintMB int) (*Volume, error) {
	candidates := []string{}
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		candidates = append(candidates, runtime)
	}
	candidates = append(candidates, "/dev/shm")

	for _, base := range candidates {
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		if !isRAMBacked(base) {
			continue
		}
		dir, err := makeSessionDir(base)
		if err != nil {
			continue
		}
		return &Volume{Path: dir, RAMBacked: true, SizeHintMB: sizeHintMB}, nil
	}

	// Persistent fallback. The caller decides whether to proceed; the
	// flag makes the degradation impossible to miss.
	dir, err := makeSessionDir(os.TempDir())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vaulterrors.ErrVolatileUnavailable, err)
	}
	return &Volume{Path: dir, RAMBacked: false, SizeHintMB: sizeHintMB}, nil
}

// ReleaseVolatile removes the volume directory. Contents should already
// have been securely erased; this is the final cleanup.
func ReleaseVolatile(v *Volume) error {
	if v == nil || v.Path == "" {
		return nil
	}
	if err := os.RemoveAll(v.Path); err != nil {
		return fmt.Errorf("failed to release volatile volume %s: %w", v.Path, err)
	}
	return nil
}

func makeSessionDir(base string) (string, error) {
	dir, err := os.MkdirTemp(base, "tmvault-")
	if err != nil {
		return "", err
	}
	if err := os.Chmod(dir, 0700); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return filepath.Clean(dir), nil
}
