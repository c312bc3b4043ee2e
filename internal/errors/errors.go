package errors

import (
	"errors"
	"fmt"
)

// Key errors indicate problems with the session keyset.
var (
	// ErrEmptyKey indicates a layer key was empty.
	ErrEmptyKey = errors.New("layer key must not be empty")

	// ErrWrongKey indicates ciphertext could not be opened with the given key.
	ErrWrongKey = errors.New("wrong key or corrupt ciphertext")

	// ErrNoKeys indicates an operation was attempted without a keyset.
	ErrNoKeys = errors.New("no keys provided")
)

// Medium errors indicate the durable medium or volatile volume is unusable.
var (
	// ErrMediumLost indicates the durable medium is no longer present.
	ErrMediumLost = errors.New("durable medium is no longer present")

	// ErrVolatileUnavailable indicates no RAM-backed storage could be acquired.
	ErrVolatileUnavailable = errors.New("volatile storage is unavailable")
)

// Session errors indicate problems with session lifecycle.
var (
	// ErrTimeoutExpired indicates the idle timeout elapsed.
	ErrTimeoutExpired = errors.New("idle timeout expired")

	// ErrPanicTriggered indicates the emergency trigger fired.
	ErrPanicTriggered = errors.New("panic trigger fired")

	// ErrSessionTerminated indicates the session has already been torn down.
	ErrSessionTerminated = errors.New("session has terminated")
)

// Artifact errors indicate issues with artifact discovery or state.
var (
	// ErrArtifactNotFound indicates neither form of the artifact exists.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrEmptyCiphertext indicates a seal produced no bytes, which is never valid.
	ErrEmptyCiphertext = errors.New("sealed artifact is empty")
)

// KeyError reports a decryption failure at a specific cipher layer.
// Layer is 1-based in key order, so the outermost layer of an N-layer
// artifact is layer N. A KeyError is distinguishable from an I/O failure:
// it unwraps to ErrWrongKey.
type KeyError struct {
	Layer int
	Cause error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("wrong key at layer %d: %v", e.Layer, e.Cause)
}

func (e *KeyError) Unwrap() error { return e.Cause }

// CollisionError reports that a durable artifact already exists and was
// not overwritten. Collisions are reported to the operator, never
// auto-resolved.
type CollisionError struct {
	Name string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("durable artifact %q already exists (not overwritten)", e.Name)
}

// EncryptError reports a failed seal of a named artifact.
type EncryptError struct {
	Name  string
	Cause error
}

func (e *EncryptError) Error() string {
	return fmt.Sprintf("failed to seal %q: %v", e.Name, e.Cause)
}

func (e *EncryptError) Unwrap() error { return e.Cause }

// DecryptError reports a failed open of a named artifact. Layer is the
// 1-based layer index when the failure was a key mismatch, 0 when the
// failure happened outside the cipher (I/O, truncated file).
type DecryptError struct {
	Name  string
	Layer int
	Cause error
}

func (e *DecryptError) Error() string {
	if e.Layer > 0 {
		return fmt.Sprintf("failed to open %q at layer %d: %v", e.Name, e.Layer, e.Cause)
	}
	return fmt.Sprintf("failed to open %q: %v", e.Name, e.Cause)
}

func (e *DecryptError) Unwrap() error { return e.Cause }

// EraseError reports that secure erase of a path degraded or failed.
type EraseError struct {
	Path  string
	Cause error
}

func (e *EraseError) Error() string {
	return fmt.Sprintf("failed to erase %q: %v", e.Path, e.Cause)
}

func (e *EraseError) Unwrap() error { return e.Cause }
