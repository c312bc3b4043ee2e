package cmd

import (
	"fmt"

	"github.com/tmvault/tmvault/internal/ui"
	"github.com/tmvault/tmvault/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	openConfigPath  string
	openDurableRoot string
	openIdleTimeout int
	openBrowser     bool
	openCopyPath    bool
)

// OpenCmd starts a decryption session and blocks until teardown.
var OpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a decryption session",
	Long: `Opens a decryption session: decrypts the vault's artifacts into a
RAM-backed volume and keeps them there for the life of the session.

The session ends (and every decrypted byte is sealed and destroyed) when:
  - the storage device is removed
  - the idle timeout expires
  - the panic trigger file is created
  - you press Ctrl+C

Examples:
  # Open a session with the configured vault
  tmvault open

  # Open a specific medium with a 5 minute idle timeout
  tmvault open --durable /media/usb/vault --timeout 300

  # Open and launch the file manager on the decrypted volume
  tmvault open --browse`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting open command")

		fmt.Println()
		banner := figure.NewColorFigure("tmvault", "alligator2", "cyan", true)
		banner.Print()
		fmt.Println()

		result, err := workflows.Open(cmd.Context(), workflows.OpenOptions{
			ConfigPath:         openConfigPath,
			DurableRoot:        openDurableRoot,
			IdleTimeoutSeconds: openIdleTimeout,
			OpenBrowser:        openBrowser,
			CopyPath:           openCopyPath,
			OnActive: func(path string, ramBacked bool) {
				fmt.Printf("%s Session active. Decrypted files: %s\n", ui.Success.Sprint("✓"), ui.Path.Sprint(path))
				if !ramBacked {
					fmt.Printf("%s Volume is NOT RAM-backed; decrypted data is on persistent storage\n", ui.Error.Sprint("✗"))
				}
				fmt.Printf("%s Press %s to end the session\n\n", ui.Info.Sprint("→"), ui.Code.Sprint("Ctrl+C"))
			},
			Logger: Logger,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open session: %v", err)
		}

		printSessionSummary(result)
		return nil
	},
}

func init() {
	addVerbosityFlags(OpenCmd)
	OpenCmd.Flags().StringVar(&openConfigPath, "config", "", "path to an alternate config file")
	OpenCmd.Flags().StringVar(&openDurableRoot, "durable", "", "directory on the storage medium holding the vault")
	OpenCmd.Flags().IntVar(&openIdleTimeout, "timeout", -1, "idle timeout in seconds (0 disables, -1 uses the configured value)")
	OpenCmd.Flags().BoolVar(&openBrowser, "browse", false, "open the file manager on the decrypted volume")
	OpenCmd.Flags().BoolVar(&openCopyPath, "copy-path", false, "copy the decrypted volume path to the clipboard")
}

func printSessionSummary(result *workflows.OpenResult) {
	s := result.Session

	shortID := result.SessionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	fmt.Println()
	fmt.Printf("%s Session %s ended: %s\n", ui.Success.Sprint("✓"), ui.Muted.Sprint(shortID), s.Cause)

	if s.PanicEraseOnly {
		fmt.Printf("%s Panic policy destroyed unsynced changes without re-sealing\n", ui.Error.Sprint("✗"))
	} else {
		fmt.Printf("%s Sealed %d artifact(s) back onto the medium\n", ui.Info.Sprint("→"), len(s.Sealed))
	}
	for name, err := range s.SealFailures {
		fmt.Printf("%s Failed to seal %s: %v\n", ui.Error.Sprint("✗"), ui.Highlight.Sprint(name), err)
	}

	fmt.Printf("%s Erased %d file(s) from the volatile volume\n", ui.Info.Sprint("→"), s.Erase.Files)
	if len(s.Erase.Degraded) > 0 {
		fmt.Printf("%s %d file(s) were deleted without overwrite\n", ui.Warning.Sprint("⚠"), len(s.Erase.Degraded))
	}
}
