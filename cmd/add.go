package cmd

import (
	"fmt"

	"github.com/tmvault/tmvault/internal/ui"
	"github.com/tmvault/tmvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	addConfigPath  string
	addDurableRoot string
	addForce       bool
)

// AddCmd seals plaintext files into the vault outside a session.
var AddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Seal files into the vault",
	Long: `Seals plaintext files onto the storage medium and securely erases the
originals. You will be prompted for each layer passphrase twice.

An artifact that already exists in the vault is never overwritten unless
--force is given.

Examples:
  # Add two files to the configured vault
  tmvault add notes.txt keys.txt

  # Replace an existing artifact after changing passphrases
  tmvault add --force notes.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting add command with %d file(s)", len(args))

		result, err := workflows.Add(workflows.AddOptions{
			ConfigPath:  addConfigPath,
			DurableRoot: addDurableRoot,
			Files:       args,
			Force:       addForce,
			Logger:      Logger,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to add files: %v", err)
		}

		// No spinner here: the workflow prompts for passphrases and a
		// spinner would fight the terminal.
		for _, name := range result.Sealed {
			fmt.Printf("%s Sealed %s\n", ui.Success.Sprint("✓"), ui.Highlight.Sprint(name))
		}
		for _, name := range result.Collisions {
			fmt.Printf("%s %s already exists in the vault\n", ui.Error.Sprint("✗"), ui.Highlight.Sprint(name))
			fmt.Printf("%s Re-run with %s to replace it\n", ui.Info.Sprint("→"), ui.Code.Sprint("--force"))
		}
		for name, ferr := range result.Failures {
			fmt.Printf("%s Failed to seal %s: %v\n", ui.Error.Sprint("✗"), ui.Highlight.Sprint(name), ferr)
		}

		return nil
	},
}

func init() {
	addVerbosityFlags(AddCmd)
	AddCmd.Flags().StringVar(&addConfigPath, "config", "", "path to an alternate config file")
	AddCmd.Flags().StringVar(&addDurableRoot, "durable", "", "directory on the storage medium holding the vault")
	AddCmd.Flags().BoolVarP(&addForce, "force", "f", false, "replace artifacts that already exist in the vault")
}
