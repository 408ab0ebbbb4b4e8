package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageview/internal/config"
	"github.com/jackzampolin/pageview/internal/home"
	"github.com/jackzampolin/pageview/internal/output"
	"github.com/jackzampolin/pageview/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	password     string
)

var rootCmd = &cobra.Command{
	Use:   "pageview",
	Short: "Headless document viewer with viewport-driven rendering and search",
	Long: `Pageview opens PDF documents from disk or http(s) URLs and drives them the
way an embedded viewer would: pages render incrementally around a scrolling
viewport, distant pages are evicted, and text search highlights matches.

Commands:
  - info:   open a document and print its layout
  - search: list the matches of a term
  - render: write page images into the home directory
  - view:   interactive session over stdin`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pageview/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pageview home directory (default: ~/.pageview)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&password, "password", "", "password for protected documents",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := output.ParseFormat(outputFormat); err != nil {
			return err
		}
		output.SetFormat(outputFormat)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(viewCmd)
}

// environment is what document commands share: the home directory, the
// loaded configuration and a logger built from it.
type environment struct {
	home   *home.Dir
	config *config.Manager
	logger *slog.Logger
}

func loadEnvironment() (*environment, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	mgr, err := config.NewManager(cfgFile, h.Path(), bootstrap)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(mgr.Get(), os.Stderr)
	slog.SetDefault(logger)
	if f := mgr.File(); f != "" {
		logger.Debug("using config file", "file", f)
	}
	return &environment{home: h, config: mgr, logger: logger}, nil
}

// newLogger builds the CLI logger from the log section.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
