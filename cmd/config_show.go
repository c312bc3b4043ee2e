package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tmvault/tmvault/internal/configs"
	"github.com/tmvault/tmvault/internal/ui"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the effective vault configuration: the config file merged
over the reference defaults.

Examples:
  tmvault config show
  tmvault config show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config show command")

		cfg, err := configs.LoadVaultConfig()
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}

		path := configs.ConfigFilePath()
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("%s Config file: %s\n\n", ui.Info.Sprint("→"), ui.Path.Sprint(path))
		} else {
			fmt.Printf("%s No config file at %s, showing defaults\n\n", ui.Warning.Sprint("⚠"), ui.Path.Sprint(path))
		}

		if configShowJSON {
			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return ConfigLogger.ErrorfAndReturn("Failed to render configuration: %v", err)
			}
			fmt.Println(string(out))
			return nil
		}

		if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to render configuration: %v", err)
		}
		return nil
	},
}
