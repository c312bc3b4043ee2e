package workflows

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tmvault/tmvault/internal/audit"
	"github.com/tmvault/tmvault/internal/crypto"
	vaulterrors "github.com/tmvault/tmvault/internal/errors"
	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/vault"
)

// AddOptions configures the add workflow.
type AddOptions struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// DurableRoot overrides the configured durable medium directory.
	DurableRoot string

	// Files are the plaintext files to seal onto the durable medium.
	Files []string

	// Force replaces an existing durable artifact instead of reporting a
	// collision.
	Force bool

	Logger logger.Logger
}

// AddResult contains the outcome of an add operation.
type AddResult struct {
	Sealed     []string
	Collisions []string
	Failures   map[string]error
}

// Add provisions plaintext files onto the durable medium outside a
// session: each file is sealed with freshly prompted layer passphrases
// and the plaintext original is securely erased. This is how artifacts
// enter the vault in the first place.
func Add(opts AddOptions) (*AddResult, error) {
	log := opts.Logger

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DurableRoot != "" {
		cfg.Vault.DurableRoot = opts.DurableRoot
	}
	if cfg.Vault.DurableRoot == "" {
		return nil, fmt.Errorf("no durable root configured; set vault.durable_root or pass --durable")
	}
	if len(opts.Files) == 0 {
		return nil, fmt.Errorf("no files given")
	}
	for _, file := range opts.Files {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("%w: %s", vaulterrors.ErrArtifactNotFound, file)
		}
	}

	keys, err := vault.PromptKeySet(cfg.Vault.Layers, true)
	if err != nil {
		return nil, err
	}
	defer keys.Wipe()

	// Staging lives in a throwaway temp dir, not in a session volume;
	// the intermediates here are ciphertext layers, not plaintext.
	scratch, err := os.MkdirTemp("", "tmvault-add-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	cipher := crypto.NewLayeredCipher(crypto.NewSecretboxEngine(), scratch)
	store := vault.NewStore(cipher, keys, cfg.Vault.DurableRoot, "", cfg.Vault.Include, log)

	result := &AddResult{Failures: make(map[string]error)}
	for _, file := range opts.Files {
		name := filepath.Base(file)
		err := store.ImportPlaintext(file, name, opts.Force)

		var collision *vaulterrors.CollisionError
		switch {
		case err == nil:
			result.Sealed = append(result.Sealed, name)
		case errors.As(err, &collision):
			result.Collisions = append(result.Collisions, name)
		default:
			result.Failures[name] = err
		}
	}

	audit.Log(audit.Entry{
		Operation:   "add",
		Files:       result.Sealed,
		SealedCount: len(result.Sealed),
		FailedCount: len(result.Failures) + len(result.Collisions),
	})

	return result, nil
}
