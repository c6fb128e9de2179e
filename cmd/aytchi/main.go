package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bahromoov/aytchi/internal/config"
	"github.com/bahromoov/aytchi/internal/gateway"
)

const version = "0.3.0"

const (
	// maxStartAttempts bounds the reconnect loop: a crashed run is
	// restarted with linearly growing delays, then given up on.
	maxStartAttempts = 5
	startRetryDelay  = 5 * time.Second
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aytchi",
	Short: "aytchi - conversational Telegram relay",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the relay until interrupted",
	RunE:  runRelay,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aytchi %s\n", version)
	},
}

func runRelay(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	// Credential problems are fatal immediately; only runtime crashes go
	// through the reconnect loop.
	if err := cfg.Validate(); err != nil {
		return err
	}
	return runWithReconnect(cmd.Context(), cfg)
}

func runWithReconnect(ctx context.Context, cfg *config.Config) error {
	var lastErr error
	for attempt := 1; attempt <= maxStartAttempts; attempt++ {
		g, err := gateway.New(cfg)
		if err == nil {
			err = g.Run(ctx)
			if err == nil {
				return nil
			}
		}
		lastErr = err
		log.Printf("[main] attempt %d/%d failed: %v", attempt, maxStartAttempts, err)
		if attempt < maxStartAttempts {
			time.Sleep(reconnectDelay(attempt))
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxStartAttempts, lastErr)
}

// reconnectDelay grows linearly with the attempt number.
func reconnectDelay(attempt int) time.Duration {
	return startRetryDelay * time.Duration(attempt)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.aytchi/config.json)")
	rootCmd.AddCommand(runCmd, initCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
