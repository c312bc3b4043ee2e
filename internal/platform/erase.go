package platform

import (
	"crypto/rand"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	vaulterrors "github.com/tmvault/tmvault/internal/errors"
)

// EraseResult reports what kind of erase actually happened.
type EraseResult struct {
	// Overwritten is true when the file bytes were overwritten before
	// deletion, false when only a plain delete was possible.
	Overwritten bool
}

// TreeEraseResult aggregates an erase pass over a directory tree.
type TreeEraseResult struct {
	Files       int
	Overwritten int
	// Degraded lists paths where overwrite failed and a plain delete was
	// used instead.
	Degraded []string
}

// SecureErase overwrites a file with random bytes and deletes it.
// Best-effort: if the overwrite fails the file is still deleted and the
// result records the degradation. An error is returned only when the file
// could not be removed at all.
func SecureErase(path string) (EraseResult, error) {
	result := EraseResult{Overwritten: overwrite(path) == nil}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return result, &vaulterrors.EraseError{Path: path, Cause: err}
	}

	return result, nil
}

// SecureEraseTree erases every regular file under root, then removes the
// remaining directory structure. Teardown-tolerant: per-file degradations
// are recorded, not fatal; the first unremovable path aborts with an error.
func SecureEraseTree(root string) (TreeEraseResult, error) {
	result := TreeEraseResult{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		result.Files++
		res, eraseErr := SecureErase(path)
		if eraseErr != nil {
			return eraseErr
		}
		if res.Overwritten {
			result.Overwritten++
		} else {
			result.Degraded = append(result.Degraded, path)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	// Remove emptied directories but keep the root itself; releasing the
	// volume owns that.
	entries, err := os.ReadDir(root)
	if err != nil {
		return result, err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			return result, &vaulterrors.EraseError{Path: entry.Name(), Cause: err}
		}
	}

	return result, nil
}

// overwrite replaces the file's content with random bytes and syncs.
// One pass: the volatile volume is RAM-backed, so the goal is removing
// the bytes from the live mount, not defeating magnetic forensics.
func overwrite(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.CopyN(f, rand.Reader, info.Size()); err != nil {
		return err
	}
	return f.Sync()
}
