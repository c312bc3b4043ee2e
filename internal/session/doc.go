// Package session implements the lifecycle state machine of a decryption
// session and the watchers that guard it.
//
// A session moves INIT → SETUP → ACTIVE → TEARDOWN → TERMINATED, dipping
// into ENCRYPTING for each seal operation. Four watchers run while the
// session is ACTIVE: file-sync (detects new or modified plaintext),
// device-presence (polls the durable medium), idle-timeout (compares the
// activity clock against the configured deadline), and panic (watches the
// operator's emergency trigger file). Watchers never mutate state
// themselves; they submit events into the controller's queue and the
// controller processes them strictly in order on a single goroutine.
package session
