// Package utils provides small shared helpers: terminal passphrase input,
// atomic file writes, and best-effort memory scrubbing.
package utils
