package workflows

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmvault/tmvault/internal/configs"
	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/platform"
	"github.com/tmvault/tmvault/internal/vault"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// DurableRoot overrides the configured durable medium directory.
	DurableRoot string

	Logger logger.Logger
}

// StatusResult describes the vault as seen from outside a session.
type StatusResult struct {
	DurableRoot    string
	DevicePresent  bool
	Artifacts      []string
	Layers         int
	IdleTimeout    int
	PanicMode      string
	PanicTrigger   string
	Configured     bool
	ConfigFilePath string
}

// Status inspects the durable medium and configuration without touching
// any keys: it lists sealed artifacts and reports device presence. No
// decryption happens here.
func Status(opts StatusOptions) (*StatusResult, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DurableRoot != "" {
		cfg.Vault.DurableRoot = opts.DurableRoot
	}

	result := &StatusResult{
		DurableRoot:  cfg.Vault.DurableRoot,
		Layers:       cfg.Vault.Layers,
		IdleTimeout:  cfg.Session.IdleTimeoutSeconds,
		PanicMode:    cfg.Session.PanicMode,
		PanicTrigger: cfg.Watchers.PanicTriggerPath,
		Configured:   cfg.Vault.DurableRoot != "",

		ConfigFilePath: configs.ConfigFilePath(),
	}

	if cfg.Vault.DurableRoot == "" {
		return result, nil
	}

	result.DevicePresent = platform.DevicePresent(cfg.PresencePath())
	if !result.DevicePresent {
		return result, nil
	}

	if _, err := os.Stat(cfg.Vault.DurableRoot); err != nil {
		return nil, fmt.Errorf("durable root %s is not accessible: %w", cfg.Vault.DurableRoot, err)
	}

	names, err := listDurableNames(cfg.Vault.DurableRoot)
	if err != nil {
		return nil, err
	}
	result.Artifacts = names

	return result, nil
}

// listDurableNames enumerates sealed artifacts without building a store:
// status never needs keys.
func listDurableNames(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), vault.DurableSuffix) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		names = append(names, strings.TrimSuffix(rel, vault.DurableSuffix))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list durable artifacts: %w", err)
	}
	return names, nil
}
