package vault

import (
	"fmt"

	vaulterrors "github.com/tmvault/tmvault/internal/errors"
	"github.com/tmvault/tmvault/internal/utils"
)

// KeySet is the ordered sequence of independent layer secrets for one
// session. Keys live only in process memory, are never written to any
// persistent medium, and are wiped (best-effort) at teardown.
type KeySet struct {
	keys [][]byte
}

// NewKeySet validates and wraps layer keys. Every key must be non-empty.
func NewKeySet(keys [][]byte) (*KeySet, error) {
	if len(keys) == 0 {
		return nil, vaulterrors.ErrNoKeys
	}
	copied := make([][]byte, len(keys))
	for i, key := range keys {
		if len(key) == 0 {
			return nil, fmt.Errorf("%w (layer %d)", vaulterrors.ErrEmptyKey, i+1)
		}
		copied[i] = append([]byte(nil), key...)
	}
	return &KeySet{keys: copied}, nil
}

// PromptKeySet reads layer passphrases from the terminal without echo.
// When confirm is true each passphrase must be entered twice, for flows
// that create new ciphertext.
func PromptKeySet(layers int, confirm bool) (*KeySet, error) {
	keys := make([][]byte, 0, layers)
	for i := 1; i <= layers; i++ {
		key, err := utils.ReadPassphrase(fmt.Sprintf("Layer %d passphrase: ", i))
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return nil, fmt.Errorf("%w (layer %d)", vaulterrors.ErrEmptyKey, i)
		}
		if confirm {
			again, err := utils.ReadPassphrase(fmt.Sprintf("Layer %d passphrase (again): ", i))
			if err != nil {
				return nil, err
			}
			if string(key) != string(again) {
				utils.Scrub(key)
				utils.Scrub(again)
				return nil, fmt.Errorf("layer %d passphrases do not match", i)
			}
			utils.Scrub(again)
		}
		keys = append(keys, key)
	}
	return &KeySet{keys: keys}, nil
}

// Keys exposes the raw layer keys in order 1..N.
func (k *KeySet) Keys() [][]byte {
	return k.keys
}

// Len returns the number of layers.
func (k *KeySet) Len() int {
	return len(k.keys)
}

// Wipe zeroes all key material. The KeySet is unusable afterwards.
func (k *KeySet) Wipe() {
	for _, key := range k.keys {
		utils.Scrub(key)
	}
	k.keys = nil
}
