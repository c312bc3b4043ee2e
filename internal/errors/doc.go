// Package errors defines the error taxonomy shared across tmvault.
//
// Sentinel errors cover conditions callers branch on with errors.Is.
// Typed errors (KeyError, CollisionError, EncryptError, DecryptError,
// EraseError) carry the artifact name, failing layer, or path so that
// every user-visible pipeline failure can name what failed and where.
//
// Policy: per-artifact pipeline errors are recovered locally by the
// session controller; ErrMediumLost and ErrPanicTriggered escalate to a
// forced teardown; CollisionError is always reported and never resolved
// by overwriting.
package errors
