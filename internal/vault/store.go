package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tmvault/tmvault/internal/crypto"
	vaulterrors "github.com/tmvault/tmvault/internal/errors"
	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/platform"
)

// Store maps between the durable encrypted form of each artifact (on the
// storage medium) and its decrypted counterpart (in the volatile volume).
//
// Invariant: at any instant at most one of the two forms reflects the
// currently-intended content. Materializing moves an artifact through the
// pipeline (decrypt removes the durable ciphertext, seal removes the
// volatile plaintext), so the two forms are never both live, and never
// both absent outside the window of a single materialize call.
//
// All mutating operations on a Store are serialized by an internal mutex;
// operations for a given name are therefore totally ordered.
type Store struct {
	mu      sync.Mutex
	cipher  *crypto.LayeredCipher
	keys    *KeySet
	durable string
	vol     string
	include []string

	// kinds classifies names inside the volatile volume only. An entry is
	// set when the store creates the volatile form and cleared when the
	// store removes it; a name the operator recreates afterwards has no
	// entry and is classified at the filesystem boundary like any other
	// observed file.
	kinds map[string]Kind

	// baseline records the size and mtime of each artifact as the store
	// decrypted it, so discovery can tell untouched setup-decrypted files
	// from operator edits.
	baseline map[string]fileStamp

	log logger.Logger
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// NewStore builds a store over the two roots. include holds optional
// doublestar patterns restricting which volatile files count as user data.
func NewStore(cipher *crypto.LayeredCipher, keys *KeySet, durableRoot, volatileRoot string, include []string, log logger.Logger) *Store {
	s := &Store{
		cipher:   cipher,
		keys:     keys,
		durable:  durableRoot,
		vol:      volatileRoot,
		include:  include,
		kinds:    make(map[string]Kind),
		baseline: make(map[string]fileStamp),
		log:      log,
	}
	// Pipeline-internal names are typed at creation, never re-inferred.
	s.kinds[ScratchDirName] = KindScratch
	s.kinds[ClockFileName] = KindScratch
	return s
}

// VolatileRoot returns the volatile volume directory.
func (s *Store) VolatileRoot() string { return s.vol }

// DurableRoot returns the durable medium directory.
func (s *Store) DurableRoot() string { return s.durable }

// DurablePath returns the on-medium path of the sealed artifact.
func (s *Store) DurablePath(name string) string {
	return filepath.Join(s.durable, name+DurableSuffix)
}

// VolatilePath returns the in-volume path of the decrypted artifact.
func (s *Store) VolatilePath(name string) string {
	return filepath.Join(s.vol, name)
}

// MaterializeVolatile decrypts the durable form of name into the volatile
// volume and removes the ciphertext from the medium. Idempotent: if the
// volatile form already exists the call is a no-op, which guards against
// duplicate session-setup passes re-decrypting the same name.
func (s *Store) MaterializeVolatile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	volPath := s.VolatilePath(name)
	if _, err := os.Stat(volPath); err == nil {
		s.log.Debugf("artifact %s already volatile, skipping decrypt", name)
		return nil
	}

	durPath := s.DurablePath(name)
	if _, err := os.Stat(durPath); err != nil {
		return fmt.Errorf("%w: %s", vaulterrors.ErrArtifactNotFound, name)
	}

	if err := s.cipher.OpenFile(durPath, volPath, s.keys.Keys()); err != nil {
		var keyErr *vaulterrors.KeyError
		if errors.As(err, &keyErr) {
			return &vaulterrors.DecryptError{Name: name, Layer: keyErr.Layer, Cause: keyErr.Cause}
		}
		return &vaulterrors.DecryptError{Name: name, Cause: err}
	}

	s.kinds[name] = KindPlaintext

	// Remember what the decrypted file looked like, so the sync poll can
	// tell this untouched copy apart from an operator edit.
	if info, err := os.Stat(volPath); err == nil {
		s.baseline[name] = fileStamp{size: info.Size(), modTime: info.ModTime()}
	}

	// The volatile copy is now the intended content; drop the stale
	// ciphertext so re-sealing at teardown cannot collide with it.
	if err := os.Remove(durPath); err != nil {
		s.log.Warnf("failed to remove stale ciphertext for %s: %v", name, err)
	}

	s.log.Infof("decrypted %s into volatile volume", name)
	return nil
}

// MaterializeDurable seals the volatile form of name onto the durable
// medium, verifies the ciphertext is non-empty, then securely erases the
// plaintext. If a durable form already exists the operation is skipped and
// reported as a CollisionError; an existing durable artifact is never
// overwritten implicitly.
func (s *Store) MaterializeDurable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materializeDurableLocked(name)
}

func (s *Store) materializeDurableLocked(name string) error {
	durPath := s.DurablePath(name)
	if _, err := os.Stat(durPath); err == nil {
		return &vaulterrors.CollisionError{Name: name}
	}

	volPath := s.VolatilePath(name)
	if _, err := os.Stat(volPath); err != nil {
		return fmt.Errorf("%w: %s", vaulterrors.ErrArtifactNotFound, name)
	}

	if err := os.MkdirAll(filepath.Dir(durPath), 0700); err != nil {
		return &vaulterrors.EncryptError{Name: name, Cause: err}
	}

	if err := s.cipher.SealFile(volPath, durPath, s.keys.Keys()); err != nil {
		return &vaulterrors.EncryptError{Name: name, Cause: err}
	}

	// The volatile form is about to go away; if the operator recreates the
	// name later it must classify as ordinary user data again.
	delete(s.kinds, name)
	delete(s.baseline, name)

	// Plaintext leaves the volume only after the ciphertext is verified.
	if res, err := platform.SecureErase(volPath); err != nil {
		s.log.Warnf("failed to erase plaintext for %s after seal: %v", name, err)
	} else if !res.Overwritten {
		s.log.Warnf("plaintext for %s was deleted without overwrite", name)
	}

	s.log.Infof("sealed %s onto durable medium", name)
	return nil
}

// ForceMaterializeDurable re-seals name over an existing durable copy.
// This is the explicit operator path for recovering from a key change;
// the implicit sync path never overwrites. The existing ciphertext stays
// in place until the replacement is fully written.
func (s *Store) ForceMaterializeDurable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	volPath := s.VolatilePath(name)
	if _, err := os.Stat(volPath); err != nil {
		return fmt.Errorf("%w: %s", vaulterrors.ErrArtifactNotFound, name)
	}

	durPath := s.DurablePath(name)
	if _, err := os.Stat(durPath); err != nil {
		// Nothing to replace; same as the normal path.
		return s.materializeDurableLocked(name)
	}

	staged := durPath + ".force"
	if err := s.cipher.SealFile(volPath, staged, s.keys.Keys()); err != nil {
		os.Remove(staged)
		return &vaulterrors.EncryptError{Name: name, Cause: err}
	}
	if err := os.Rename(staged, durPath); err != nil {
		os.Remove(staged)
		return &vaulterrors.EncryptError{Name: name, Cause: err}
	}

	delete(s.kinds, name)
	delete(s.baseline, name)

	if res, err := platform.SecureErase(volPath); err != nil {
		s.log.Warnf("failed to erase plaintext for %s after forced seal: %v", name, err)
	} else if !res.Overwritten {
		s.log.Warnf("plaintext for %s was deleted without overwrite", name)
	}

	s.log.Infof("force re-sealed %s with current keys", name)
	return nil
}

// DiscoverNewPlaintext enumerates volatile artifacts that are new or have
// changed since the store decrypted them. Each call rescans, so the
// sequence is restartable. Excluded:
//   - pipeline-internal files (scratch staging, the activity clock, cipher
//     suffixes), which are never user data;
//   - names whose durable form already exists: those are collisions,
//     surfaced only by the explicit seal paths so the sync poll does not
//     report the same collision forever;
//   - setup-decrypted files still matching their decrypt-time size and
//     mtime: untouched working-set members are not changes, and sealing
//     them mid-session would destroy the operator's open files.
func (s *Store) DiscoverNewPlaintext() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	err := filepath.WalkDir(s.vol, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(s.vol, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.kinds[rel] == KindScratch && rel == ScratchDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !s.isUserData(rel) {
			return nil
		}

		if _, err := os.Stat(s.DurablePath(rel)); err == nil {
			return nil
		}

		if stamp, ok := s.baseline[rel]; ok {
			if info, infoErr := d.Info(); infoErr == nil &&
				info.Size() == stamp.size && info.ModTime().Equal(stamp.modTime) {
				return nil
			}
		}

		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover plaintext: %w", err)
	}

	return names, nil
}

// SealAll seals every volatile plaintext artifact, including ones whose
// durable form exists (reported as collisions). Used by the bulk
// "encrypt all now" operation and by teardown. Per-artifact failures do
// not stop the pass.
func (s *Store) SealAll() (sealed []string, failures map[string]error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures = make(map[string]error)

	var names []string
	walkErr := filepath.WalkDir(s.vol, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.vol, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if rel == ScratchDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.isUserData(rel) {
			names = append(names, rel)
		}
		return nil
	})
	if walkErr != nil {
		failures[""] = fmt.Errorf("failed to enumerate volatile volume: %w", walkErr)
		return sealed, failures
	}

	for _, name := range names {
		if err := s.materializeDurableLocked(name); err != nil {
			failures[name] = err
			s.log.Errorf("seal of %s failed: %v", name, err)
			continue
		}
		sealed = append(sealed, name)
	}

	return sealed, failures
}

// ImportPlaintext seals an external plaintext file onto the durable medium
// under the given artifact name and securely erases the original. Used by
// provisioning, where the source lives outside any volatile volume. Unless
// force is set, an existing durable artifact is a CollisionError.
func (s *Store) ImportPlaintext(src, name string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	durPath := s.DurablePath(name)
	_, statErr := os.Stat(durPath)
	if statErr == nil && !force {
		return &vaulterrors.CollisionError{Name: name}
	}

	if err := os.MkdirAll(filepath.Dir(durPath), 0700); err != nil {
		return &vaulterrors.EncryptError{Name: name, Cause: err}
	}

	dst := durPath
	if statErr == nil {
		// Replacing: stage alongside, swap in only once fully written.
		dst = durPath + ".force"
	}
	if err := s.cipher.SealFile(src, dst, s.keys.Keys()); err != nil {
		os.Remove(dst)
		return &vaulterrors.EncryptError{Name: name, Cause: err}
	}
	if dst != durPath {
		if err := os.Rename(dst, durPath); err != nil {
			os.Remove(dst)
			return &vaulterrors.EncryptError{Name: name, Cause: err}
		}
	}

	delete(s.kinds, name)
	delete(s.baseline, name)

	if res, err := platform.SecureErase(src); err != nil {
		s.log.Warnf("failed to erase plaintext source %s after import: %v", src, err)
	} else if !res.Overwritten {
		s.log.Warnf("plaintext source %s was deleted without overwrite", src)
	}

	s.log.Infof("imported %s onto durable medium", name)
	return nil
}

// ListDurable enumerates sealed artifacts on the durable medium.
func (s *Store) ListDurable() ([]Artifact, error) {
	var artifacts []Artifact
	err := filepath.WalkDir(s.durable, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), DurableSuffix) {
			return nil
		}
		rel, relErr := filepath.Rel(s.durable, path)
		if relErr != nil {
			return nil
		}
		artifacts = append(artifacts, Artifact{
			Name: strings.TrimSuffix(rel, DurableSuffix),
			Kind: KindDurable,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list durable artifacts: %w", err)
	}
	return artifacts, nil
}

// IsUserData reports whether a volatile-relative name is operator data
// rather than pipeline-internal. Used by the file-sync watcher to filter
// change notifications.
func (s *Store) IsUserData(rel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isUserData(rel)
}

// isUserData filters out pipeline-internal files and, when include
// patterns are configured, files outside them.
func (s *Store) isUserData(rel string) bool {
	if kind, ok := s.kinds[rel]; ok && kind != KindPlaintext {
		return false
	}

	// Boundary classification for files the store did not create.
	base := filepath.Base(rel)
	if strings.HasSuffix(base, DurableSuffix) || strings.HasPrefix(base, ".tmp-") {
		return false
	}
	if rel == ClockFileName || strings.HasPrefix(rel, ScratchDirName+string(filepath.Separator)) {
		return false
	}

	if len(s.include) == 0 {
		return true
	}
	for _, pattern := range s.include {
		if ok, err := doublestar.Match(pattern, filepath.ToSlash(rel)); err == nil && ok {
			return true
		}
	}
	return false
}
