package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	vaulterrors "github.com/tmvault/tmvault/internal/errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// Engine is the external symmetric encryption collaborator: stateless,
// synchronous, single-shot. Seal and Open must fail closed; a wrong key
// surfaces as ErrWrongKey, distinguishable from an I/O failure.
type Engine interface {
	Seal(plaintext, key []byte) ([]byte, error)
	Open(ciphertext, key []byte) ([]byte, error)
}

// Argon2id parameters for deriving a secretbox key from a passphrase.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024 // KiB
	kdfThreads = 4
	kdfKeyLen  = 32
	saltLen    = 16
	nonceLen   = 24
)

// SecretboxEngine implements Engine with NaCl secretbox. Each layer key is
// an operator passphrase run through argon2id with a fresh random salt.
// Ciphertext layout: salt(16) || nonce(24) || box.
type SecretboxEngine struct{}

func NewSecretboxEngine() *SecretboxEngine {
	return &SecretboxEngine{}
}

func (e *SecretboxEngine) Seal(plaintext, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, vaulterrors.ErrEmptyKey
	}

	var salt [saltLen]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	boxKey := deriveKey(key, salt[:])

	out := make([]byte, 0, saltLen+nonceLen+len(plaintext)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, boxKey)

	return out, nil
}

func (e *SecretboxEngine) Open(ciphertext, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, vaulterrors.ErrEmptyKey
	}
	if len(ciphertext) < saltLen+nonceLen+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short (%d bytes)", len(ciphertext))
	}

	var salt [saltLen]byte
	copy(salt[:], ciphertext[:saltLen])

	var nonce [nonceLen]byte
	copy(nonce[:], ciphertext[saltLen:saltLen+nonceLen])

	boxKey := deriveKey(key, salt[:])

	plaintext, ok := secretbox.Open(nil, ciphertext[saltLen+nonceLen:], &nonce, boxKey)
	if !ok {
		return nil, vaulterrors.ErrWrongKey
	}

	return plaintext, nil
}

func deriveKey(passphrase, salt []byte) *[32]byte {
	derived := argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	var key [32]byte
	copy(key[:], derived)
	return &key
}
