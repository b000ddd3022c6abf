package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tidewhale/tidewhale/internal/config"
	"github.com/tidewhale/tidewhale/internal/dependency"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tidewhale bot",
	RunE:  runBot,
}

func runBot(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram bot token not configured — edit %s or set TELEGRAM_BOT_TOKEN", config.ConfigPath())
	}

	fmt.Printf("%s Starting tidewhale...\n", logo)

	c, err := dependency.New(cfg)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	defer c.Close()

	if enabled := c.ChannelManager().EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.Controller().Run(gctx) })
	g.Go(func() error { return c.ChannelManager().StartAll(gctx) })
	g.Go(func() error { return runRatesRefresh(gctx, cfg, c) })

	fmt.Printf("%s Bot running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "bot error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}

// runRatesRefresh warms the exchange-rate cache once, then refreshes it on
// the configured schedule until ctx is cancelled.
func runRatesRefresh(ctx context.Context, cfg *config.Config, c *dependency.Container) error {
	svc := c.RatesService()
	go svc.RefreshAll(ctx)

	sched := cfg.Rates.RefreshSchedule
	if sched == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	cr := cron.New()
	if _, err := cr.AddFunc(sched, func() { svc.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("invalid rates refresh schedule %q: %w", sched, err)
	}
	cr.Start()
	defer cr.Stop()

	<-ctx.Done()
	return ctx.Err()
}
