// Package cmd implements the CLI commands for SmartReader using Cobra.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/smartreader/core/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Global flag variables.
var (
	flagConfig    string
	flagVerbose   bool
	flagLogFormat string
	flagRenderer  string
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "smartreader",
	Short: "SmartReader: read any web page or PDF as clean Markdown",
	Long: `SmartReader fetches a URL, decides whether it is a web page or a PDF,
renders JavaScript where needed, keeps the main content and returns it as
Markdown together with title, authors, publication date and references.

Usage:
  smartreader read <url> [flags]
  smartreader mcp [--http ADDR]`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: console or json")
	rootCmd.PersistentFlags().StringVar(&flagRenderer, "renderer", "", "Page renderer: rod, chromedp or http (http runs no scripts and never truncates; it waits for the whole page until --timeout)")
}

// setup loads .env, the config file and SMARTREADER_* variables, applies
// flag overrides and configures logging.
func setup(cmd *cobra.Command, _ []string) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if flagVerbose {
		c.Log.Level = "debug"
	}
	if flagLogFormat != "" {
		c.Log.Format = flagLogFormat
	}
	if flagRenderer != "" {
		c.Render.Backend = flagRenderer
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	configureLogging(c.Log)
	log.Debug().Str("config", flagConfig).Str("renderer", c.Render.Backend).Msg("configuration loaded")
	return nil
}

func configureLogging(lc config.LogConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
