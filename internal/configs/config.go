package configs

import (
	"fmt"
	"os"
	"time"
)

// Panic policies. EraseOnly destroys unsynced plaintext rather than risk
// disclosure; SealFirst runs the normal teardown ordering.
const (
	PanicModeEraseOnly = "erase-only"
	PanicModeSealFirst = "seal-first"
)

type VaultConfig struct {
	Vault    VaultSection    `toml:"vault"`
	Session  SessionSection  `toml:"session"`
	Watchers WatchersSection `toml:"watchers"`
}

type VaultSection struct {
	// DurableRoot is the directory on the removable medium holding the
	// encrypted artifacts.
	DurableRoot string `toml:"durable_root"`

	// DevicePath is the mount point checked by the presence watcher.
	// Defaults to DurableRoot when empty.
	DevicePath string `toml:"device_path"`

	// Layers is the number of independently-keyed cipher layers.
	Layers int `toml:"layers"`

	// Include restricts which volatile files are treated as user data.
	// Doublestar patterns relative to the volatile root. Empty means all.
	Include []string `toml:"include"`
}

type SessionSection struct {
	// IdleTimeoutSeconds tears the session down after operator inactivity.
	// 0 disables the idle watcher.
	IdleTimeoutSeconds int `toml:"idle_timeout_seconds"`

	// PanicMode is "erase-only" or "seal-first".
	PanicMode string `toml:"panic_mode"`

	// VolatileSizeMB is a size hint for the volatile volume.
	VolatileSizeMB int `toml:"volatile_size_mb"`
}

type WatchersSection struct {
	// SyncIntervalSeconds is the polling interval of the file-sync
	// watcher's fallback backend.
	SyncIntervalSeconds int `toml:"sync_interval_seconds"`

	// PresenceIntervalSeconds is the polling interval of the
	// device-presence watcher.
	PresenceIntervalSeconds int `toml:"presence_interval_seconds"`

	// PanicTriggerPath arms the panic watcher: creating this file forces
	// an emergency teardown. Empty leaves the panic watcher disarmed.
	PanicTriggerPath string `toml:"panic_trigger_path"`
}

// DefaultVaultConfig returns a config with the reference intervals.
func DefaultVaultConfig() *VaultConfig {
	return &VaultConfig{
		Vault: VaultSection{
			Layers: 3,
		},
		Session: SessionSection{
			IdleTimeoutSeconds: 600,
			PanicMode:          PanicModeEraseOnly,
			VolatileSizeMB:     64,
		},
		Watchers: WatchersSection{
			SyncIntervalSeconds:     5,
			PresenceIntervalSeconds: 2,
		},
	}
}

// LoadVaultConfig loads the user's vault configuration, applying defaults
// for unset values.
func LoadVaultConfig() (*VaultConfig, error) {
	return LoadVaultConfigFrom(ConfigFilePath())
}

// LoadVaultConfigFrom loads a vault configuration from an explicit path.
func LoadVaultConfigFrom(path string) (*VaultConfig, error) {
	config := DefaultVaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load vault config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveVaultConfig saves the vault configuration to the user config path.
func SaveVaultConfig(config *VaultConfig) error {
	if err := SaveTOML(ConfigFilePath(), config); err != nil {
		return fmt.Errorf("failed to save vault config: %w", err)
	}
	return nil
}

// Validate checks config invariants that would otherwise surface as
// confusing runtime failures.
func (c *VaultConfig) Validate() error {
	if c.Vault.Layers < 1 {
		return fmt.Errorf("vault.layers must be at least 1, got %d", c.Vault.Layers)
	}
	switch c.Session.PanicMode {
	case PanicModeEraseOnly, PanicModeSealFirst:
	default:
		return fmt.Errorf("session.panic_mode must be %q or %q, got %q",
			PanicModeEraseOnly, PanicModeSealFirst, c.Session.PanicMode)
	}
	if c.Watchers.SyncIntervalSeconds < 1 {
		return fmt.Errorf("watchers.sync_interval_seconds must be at least 1")
	}
	if c.Watchers.PresenceIntervalSeconds < 1 {
		return fmt.Errorf("watchers.presence_interval_seconds must be at least 1")
	}
	return nil
}

// IdleTimeout returns the idle timeout as a duration. Zero means disabled.
func (c *VaultConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutSeconds) * time.Second
}

// SyncInterval returns the file-sync polling interval.
func (c *VaultConfig) SyncInterval() time.Duration {
	return time.Duration(c.Watchers.SyncIntervalSeconds) * time.Second
}

// PresenceInterval returns the device-presence polling interval.
func (c *VaultConfig) PresenceInterval() time.Duration {
	return time.Duration(c.Watchers.PresenceIntervalSeconds) * time.Second
}

// PresencePath returns the path checked by the presence watcher.
func (c *VaultConfig) PresencePath() string {
	if c.Vault.DevicePath != "" {
		return c.Vault.DevicePath
	}
	return c.Vault.DurableRoot
}
