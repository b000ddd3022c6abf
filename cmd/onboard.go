package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidewhale/tidewhale/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	fmt.Printf("\n%s tidewhale is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your Telegram bot token to %s\n", cfgPath)
	fmt.Println("     Get one from @BotFather")
	fmt.Printf("  2. Add your OpenRouter API key\n")
	fmt.Println("     Get one at: https://openrouter.ai/keys")
	fmt.Println("  3. Start the bot: tidewhale run")
	return nil
}
