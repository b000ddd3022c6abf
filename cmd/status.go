package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidewhale/tidewhale/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tidewhale status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s tidewhale Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	tokenMark := "(not set)"
	if cfg.Telegram.Token != "" {
		tokenMark = "✓"
	}
	keyMark := "(not set)"
	if cfg.LLM.APIKey != "" {
		keyMark = "✓"
	}

	fmt.Printf("Telegram:  %s\n", tokenMark)
	fmt.Printf("LLM key:   %s\n", keyMark)
	fmt.Printf("Model:     %s\n", cfg.LLM.Model)
	fmt.Printf("History:   %s (max %d messages, ttl %s)\n",
		cfg.History.Backend, cfg.History.MaxMessages, cfg.History.TTL())
	if cfg.History.Backend == "redis" {
		fmt.Printf("Redis:     %s\n", cfg.History.RedisAddr)
	}
	return nil
}
