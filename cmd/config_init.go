package cmd

import (
	"fmt"
	"os"

	"github.com/tmvault/tmvault/internal/configs"
	"github.com/tmvault/tmvault/internal/ui"

	"github.com/spf13/cobra"
)

var (
	configInitDurable string
	configInitLayers  int
	configInitTimeout int
	configInitForce   bool
)

func init() {
	configInitCmd.Flags().StringVar(&configInitDurable, "durable", "", "directory on the storage medium holding the vault")
	configInitCmd.Flags().IntVar(&configInitLayers, "layers", 3, "number of independently-keyed cipher layers")
	configInitCmd.Flags().IntVar(&configInitTimeout, "timeout", 600, "idle timeout in seconds (0 disables)")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
	ConfigCmd.AddCommand(configInitCmd)
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration",
	Long: `Writes a configuration file with the reference defaults, optionally
customized by flags.

Examples:
  # Point the vault at a USB stick with the defaults
  tmvault config init --durable /media/usb/vault

  # Single layer, no idle timeout
  tmvault config init --durable /media/usb/vault --layers 1 --timeout 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config init command")

		path := configs.ConfigFilePath()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			fmt.Printf("%s Config already exists at %s\n", ui.Error.Sprint("✗"), ui.Path.Sprint(path))
			fmt.Printf("%s Re-run with %s to overwrite it\n", ui.Info.Sprint("→"), ui.Code.Sprint("--force"))
			return nil
		}

		cfg := configs.DefaultVaultConfig()
		cfg.Vault.DurableRoot = configInitDurable
		cfg.Vault.Layers = configInitLayers
		cfg.Session.IdleTimeoutSeconds = configInitTimeout

		if err := cfg.Validate(); err != nil {
			return ConfigLogger.ErrorfAndReturn("Invalid configuration: %v", err)
		}
		if err := configs.SaveVaultConfig(cfg); err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to save configuration: %v", err)
		}

		fmt.Printf("%s Wrote configuration to %s\n", ui.Success.Sprint("✓"), ui.Path.Sprint(path))
		if cfg.Vault.DurableRoot == "" {
			fmt.Printf("%s No durable root set; edit the config or pass %s when opening\n",
				ui.Warning.Sprint("⚠"), ui.Code.Sprint("--durable"))
		}
		return nil
	},
}
