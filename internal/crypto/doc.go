// Package crypto provides the encryption pipeline for tmvault.
//
// # Architecture
//
// The Engine interface is the boundary to the symmetric cipher. The
// default engine uses NaCl secretbox with an argon2id-derived key:
//
//  1. Each layer key is an operator passphrase.
//  2. argon2id derives a 256-bit secretbox key with a fresh random salt.
//  3. Ciphertext is framed as salt || nonce || box, so re-sealing the
//     same plaintext produces different output (non-deterministic).
//
// LayeredCipher composes N engine invocations into a single atomic
// operation. A wrong passphrase at any layer is detected by secretbox
// authentication and reported with the failing layer index; corrupted
// plaintext is never returned.
//
// # Scratch discipline
//
// File-level operations stage everything in a private scratch directory
// and remove it unconditionally, so intermediate layer outputs never
// appear at the durable or volatile location.
package crypto
