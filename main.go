package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmvault/tmvault/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "tmvault",
	Short: "tmvault - Ephemeral decryption sessions for removable storage.",
	Long: `tmvault keeps your encrypted files on a removable medium and decrypts
them only into RAM, only for the life of a session.

While a session is open, tmvault watches for new or modified files and
seals them back onto the medium automatically. The session ends, and every
decrypted byte is destroyed, when the medium is removed, the idle timeout
expires, the panic trigger fires, or you ask it to.

Usage:
  tmvault <command> [flags]

Available Commands:
  open       Open a decryption session
  add        Seal files into the vault
  status     Inspect the vault without decrypting
  config     Manage configuration

Run 'tmvault help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to tmvault! Run 'tmvault --help' to see available commands.")
	},
}

func main() {
	rootCmd.AddCommand(cmd.OpenCmd)
	rootCmd.AddCommand(cmd.AddCmd)
	rootCmd.AddCommand(cmd.StatusCmd)
	rootCmd.AddCommand(cmd.ConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
