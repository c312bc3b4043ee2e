package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	vaulterrors "github.com/tmvault/tmvault/internal/errors"
	"github.com/tmvault/tmvault/internal/utils"
)

// LayeredCipher applies and removes N independently-keyed cipher layers
// atomically. Layers are applied in key order 1→N when sealing and removed
// in reverse order N→1 when opening: the last layer sealed is the first
// opened.
//
// File operations stage intermediate layer outputs only inside a private
// per-call scratch directory that is removed unconditionally when the call
// returns, so a failure at any layer never leaves a partial artifact in a
// location visible to the store.
type LayeredCipher struct {
	engine     Engine
	scratchDir string
}

// NewLayeredCipher returns a cipher staging intermediates under scratchDir.
// The directory is created on first use.
func NewLayeredCipher(engine Engine, scratchDir string) *LayeredCipher {
	return &LayeredCipher{engine: engine, scratchDir: scratchDir}
}

// Seal applies all layers to plaintext in memory.
func (c *LayeredCipher) Seal(plaintext []byte, keys [][]byte) ([]byte, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}

	data := plaintext
	for i, key := range keys {
		sealed, err := c.engine.Seal(data, key)
		if err != nil {
			return nil, fmt.Errorf("seal failed at layer %d: %w", i+1, err)
		}
		data = sealed
	}

	return data, nil
}

// Open removes all layers from ciphertext in memory. A key mismatch at
// layer i returns a *KeyError with that 1-based layer index; I/O and
// framing failures are reported without a layer.
func (c *LayeredCipher) Open(ciphertext []byte, keys [][]byte) ([]byte, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}

	data := ciphertext
	for i := len(keys) - 1; i >= 0; i-- {
		opened, err := c.engine.Open(data, keys[i])
		if err != nil {
			if errors.Is(err, vaulterrors.ErrWrongKey) {
				return nil, &vaulterrors.KeyError{Layer: i + 1, Cause: err}
			}
			return nil, fmt.Errorf("open failed at layer %d: %w", i+1, err)
		}
		data = opened
	}

	return data, nil
}

// SealFile seals src into dst, staging each layer in the scratch area.
// dst must not exist; it is written atomically and verified non-empty
// before the call succeeds. The source file is left untouched; removing
// it is the caller's decision.
func (c *LayeredCipher) SealFile(src, dst string, keys [][]byte) error {
	return c.pipeFile(src, dst, keys, false)
}

// OpenFile opens src into dst with the same staging and atomicity rules
// as SealFile.
func (c *LayeredCipher) OpenFile(src, dst string, keys [][]byte) error {
	return c.pipeFile(src, dst, keys, true)
}

func (c *LayeredCipher) pipeFile(src, dst string, keys [][]byte, opening bool) error {
	if err := validateKeys(keys); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("destination %s already exists", dst)
	}

	scratch, err := c.newScratch()
	if err != nil {
		return err
	}
	// Scratch is wiped regardless of success or failure.
	defer os.RemoveAll(scratch)

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	// Run one layer at a time, parking each intermediate in scratch. Only
	// the final result ever leaves the scratch area.
	for step := 0; step < len(keys); step++ {
		layer := step + 1 // key order for seal
		if opening {
			layer = len(keys) - step // reverse order for open
		}
		key := keys[layer-1]

		var out []byte
		if opening {
			out, err = c.engine.Open(data, key)
			if err != nil {
				if errors.Is(err, vaulterrors.ErrWrongKey) {
					return &vaulterrors.KeyError{Layer: layer, Cause: err}
				}
				return fmt.Errorf("open failed at layer %d: %w", layer, err)
			}
		} else {
			out, err = c.engine.Seal(data, key)
			if err != nil {
				return fmt.Errorf("seal failed at layer %d: %w", layer, err)
			}
		}

		if step < len(keys)-1 {
			stage := filepath.Join(scratch, fmt.Sprintf("layer-%d", layer))
			if err := os.WriteFile(stage, out, 0600); err != nil {
				return fmt.Errorf("failed to stage layer %d: %w", layer, err)
			}
		}
		data = out
	}

	// Empty plaintext is legal; empty ciphertext never is, since every
	// layer adds framing.
	if !opening && len(data) == 0 {
		return vaulterrors.ErrEmptyCiphertext
	}

	if err := utils.AtomicWriteFile(dst, data, 0600); err != nil {
		return err
	}

	// Verify the destination materialized fully before reporting success.
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("destination %s did not materialize: %w", dst, err)
	}
	if !opening && info.Size() == 0 {
		os.Remove(dst)
		return vaulterrors.ErrEmptyCiphertext
	}

	return nil
}

func (c *LayeredCipher) newScratch() (string, error) {
	if err := os.MkdirAll(c.scratchDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	scratch, err := os.MkdirTemp(c.scratchDir, "stage-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch area: %w", err)
	}
	return scratch, nil
}

func validateKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return vaulterrors.ErrNoKeys
	}
	for _, key := range keys {
		if len(key) == 0 {
			return vaulterrors.ErrEmptyKey
		}
	}
	return nil
}
