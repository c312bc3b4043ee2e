// Package configs manages tmvault configuration.
//
// Configuration lives in a single TOML file under the user's config
// directory (e.g. ~/.config/tmvault/config.toml):
//
//	[vault]
//	durable_root = "/media/usb/vault"
//	layers = 3
//
//	[session]
//	idle_timeout_seconds = 600
//	panic_mode = "erase-only"
//
//	[watchers]
//	sync_interval_seconds = 5
//	presence_interval_seconds = 2
//
// Unset values fall back to defaults. Passphrases are never part of the
// configuration; they are prompted per session and held only in memory.
package configs
