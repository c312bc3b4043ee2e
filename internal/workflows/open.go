package workflows

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmvault/tmvault/internal/configs"
	"github.com/tmvault/tmvault/internal/crypto"
	logger "github.com/tmvault/tmvault/internal/logging"
	"github.com/tmvault/tmvault/internal/platform"
	"github.com/tmvault/tmvault/internal/session"
	"github.com/tmvault/tmvault/internal/vault"
)

// OpenOptions configures the open workflow.
type OpenOptions struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// DurableRoot overrides the configured durable medium directory.
	DurableRoot string

	// IdleTimeoutSeconds overrides the configured idle timeout when >= 0.
	// -1 leaves the configured value in place.
	IdleTimeoutSeconds int

	// OpenBrowser launches the system file manager on the volatile volume
	// once the session is active.
	OpenBrowser bool

	// CopyPath copies the volatile volume path to the clipboard.
	CopyPath bool

	// OnActive is called once the volume is acquired, just before the
	// session starts blocking. Used by the CLI to tell the operator where
	// the decrypted files live.
	OnActive func(volatilePath string, ramBacked bool)

	Logger logger.Logger
}

// OpenResult contains the outcome of a completed session.
type OpenResult struct {
	SessionID    string
	VolatilePath string
	RAMBacked    bool
	Session      *session.Result
}

// Open runs a full decryption session: acquire a volatile volume, decrypt
// the durable artifacts into it, keep watch until a teardown condition,
// then seal and erase. Blocks until the session reaches TERMINATED.
// SIGINT and SIGTERM are routed into an orderly teardown, never a bare
// process exit.
func Open(ctx context.Context, opts OpenOptions) (*OpenResult, error) {
	log := opts.Logger

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DurableRoot != "" {
		cfg.Vault.DurableRoot = opts.DurableRoot
	}
	if opts.IdleTimeoutSeconds >= 0 {
		cfg.Session.IdleTimeoutSeconds = opts.IdleTimeoutSeconds
	}
	if cfg.Vault.DurableRoot == "" {
		return nil, fmt.Errorf("no durable root configured; set vault.durable_root or pass --durable")
	}
	if _, err := os.Stat(cfg.Vault.DurableRoot); err != nil {
		return nil, fmt.Errorf("durable root %s is not accessible: %w", cfg.Vault.DurableRoot, err)
	}

	keys, err := vault.PromptKeySet(cfg.Vault.Layers, false)
	if err != nil {
		return nil, err
	}

	vol, err := platform.AcquireVolatile(cfg.Session.VolatileSizeMB)
	if err != nil {
		keys.Wipe()
		return nil, err
	}
	if !vol.RAMBacked {
		log.WarnfAlways("no RAM-backed volume available; decrypted data will live on PERSISTENT storage at %s", vol.Path)
	}

	cipher := crypto.NewLayeredCipher(crypto.NewSecretboxEngine(), vault.ScratchPath(vol.Path))
	store := vault.NewStore(cipher, keys, cfg.Vault.DurableRoot, vol.Path, cfg.Vault.Include, log)

	ctrl := session.New(session.Options{
		Config: cfg,
		Store:  store,
		Keys:   keys,
		Log:    log,
		ReleaseVolume: func() error {
			return platform.ReleaseVolatile(vol)
		},
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := &OpenResult{
		SessionID:    ctrl.ID(),
		VolatilePath: vol.Path,
		RAMBacked:    vol.RAMBacked,
	}

	if opts.CopyPath {
		if err := platform.CopyToClipboard(vol.Path); err != nil {
			log.Warnf("failed to copy volume path to clipboard: %v", err)
		}
	}
	if opts.OpenBrowser {
		if err := platform.OpenFileManager(vol.Path); err != nil {
			log.Warnf("failed to open file manager: %v", err)
		}
	}
	if opts.OnActive != nil {
		opts.OnActive(vol.Path, vol.RAMBacked)
	}

	sessionResult, err := ctrl.Run(sigCtx)
	if err != nil {
		// Run failing before SETUP means nothing was decrypted; clean up
		// the volume ourselves since teardown never ran.
		keys.Wipe()
		_ = platform.ReleaseVolatile(vol)
		return nil, err
	}

	result.Session = sessionResult
	return result, nil
}

func loadConfig(path string) (*configs.VaultConfig, error) {
	if path != "" {
		return configs.LoadVaultConfigFrom(path)
	}
	return configs.LoadVaultConfig()
}
