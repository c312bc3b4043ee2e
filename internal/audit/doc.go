// Package audit provides append-only JSONL logging of session lifecycle
// events: session open, seal passes, and teardown with its triggering
// cause. Entries carry artifact names and counts only; plaintext content,
// volatile paths and key material never reach the log.
//
// The log lives in the user data directory (e.g.
// ~/.local/share/tmvault/audit.jsonl), not on the removable medium, so a
// lost device does not take the history with it.
package audit
