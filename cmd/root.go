// Package cmd implements the tidewhale CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🐳"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "tidewhale",
	Short: logo + " tidewhale — Telegram LLM chat bot",
	Long:  logo + " tidewhale — a Telegram bot with LLM chat mode and a currency converter",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}
