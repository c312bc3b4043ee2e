// Package platform holds the OS-facing leaves of tmvault: volatile volume
// acquisition, secure erase, device-presence probing, clipboard access and
// file-manager launching.
//
// Everything here is best-effort and reports degradations explicitly
// rather than failing the session: a non-RAM-backed volume is flagged on
// the Volume, an overwrite that degraded to a plain delete is recorded in
// the erase result. Core session logic never calls the OS directly; it
// goes through this package so tests can substitute probes.
package platform
