package cmd

import (
	"fmt"

	"github.com/tmvault/tmvault/internal/ui"
	"github.com/tmvault/tmvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	statusConfigPath  string
	statusDurableRoot string
)

// StatusCmd inspects the vault without opening a session.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vault's state without decrypting anything",
	Long: `Shows whether the storage medium is present, which artifacts it holds,
and the effective session configuration. No passphrases are needed and no
decryption happens.

Examples:
  # Check the configured vault
  tmvault status

  # Check a specific medium
  tmvault status --durable /media/usb/vault`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		spinner, cleanup := startSpinner("Checking vault status...", verbose)
		defer cleanup()

		result, err := workflows.Status(workflows.StatusOptions{
			ConfigPath:  statusConfigPath,
			DurableRoot: statusDurableRoot,
			Logger:      Logger,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to check vault status: %v", err)
		}

		if !result.Configured {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " No vault configured\n" +
				ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tmvault config init") + " first"
			return nil
		}

		finalMessage := ""
		if result.DevicePresent {
			finalMessage += ui.Success.Sprint("✓") + " Storage medium present at " + ui.Path.Sprint(result.DurableRoot) + "\n"
			finalMessage += fmt.Sprintf("%s %d sealed artifact(s)\n", ui.Info.Sprint("→"), len(result.Artifacts))
			for _, name := range result.Artifacts {
				finalMessage += "    " + name + "\n"
			}
		} else {
			finalMessage += ui.Error.Sprint("✗") + " Storage medium not present at " + ui.Path.Sprint(result.DurableRoot) + "\n"
		}

		finalMessage += fmt.Sprintf("%s Layers: %d\n", ui.Info.Sprint("→"), result.Layers)
		if result.IdleTimeout > 0 {
			finalMessage += fmt.Sprintf("%s Idle timeout: %ds\n", ui.Info.Sprint("→"), result.IdleTimeout)
		} else {
			finalMessage += ui.Info.Sprint("→") + " Idle timeout: " + ui.Muted.Sprint("disabled") + "\n"
		}
		finalMessage += fmt.Sprintf("%s Panic mode: %s\n", ui.Info.Sprint("→"), result.PanicMode)
		if result.PanicTrigger != "" {
			finalMessage += fmt.Sprintf("%s Panic trigger: %s\n", ui.Info.Sprint("→"), ui.Path.Sprint(result.PanicTrigger))
		}

		spinner.FinalMSG = finalMessage
		return nil
	},
}

func init() {
	addVerbosityFlags(StatusCmd)
	StatusCmd.Flags().StringVar(&statusConfigPath, "config", "", "path to an alternate config file")
	StatusCmd.Flags().StringVar(&statusDurableRoot, "durable", "", "directory on the storage medium holding the vault")
}
