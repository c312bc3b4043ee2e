// Package vault implements the artifact store: the mapping between each
// artifact's durable encrypted form on the storage medium and its
// decrypted counterpart in the volatile volume.
//
// # Artifact invariant
//
// At any instant at most one of {durable, volatile} reflects the
// currently-intended content of an artifact; the other is derived from it
// by the pipeline. Materializing moves content through the pipeline rather
// than copying it: decrypting removes the ciphertext from the medium,
// sealing securely erases the plaintext from the volume.
//
// # Safety rules
//
//   - MaterializeVolatile and MaterializeDurable are idempotent; repeat
//     calls are no-ops.
//   - An existing durable artifact is never overwritten implicitly. Name
//     collisions are skipped and reported as CollisionError; only the
//     explicit ForceMaterializeDurable operator path replaces ciphertext.
//   - A seal is complete only once the destination is fully written,
//     non-empty and verified; only then is the source removed.
//
// KeySet holds the ordered session passphrases, memory-only, wiped at
// teardown.
package vault
