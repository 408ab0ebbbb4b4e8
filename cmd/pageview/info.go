package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageview/internal/metrics"
	"github.com/jackzampolin/pageview/internal/output"
	"github.com/jackzampolin/pageview/internal/viewer"
)

// infoResult is printed by the info command.
type infoResult struct {
	Location string                         `json:"location" yaml:"location"`
	Viewer   viewer.Snapshot                `json:"viewer" yaml:"viewer"`
	Metrics  map[metrics.Op]metrics.Summary `json:"metrics" yaml:"metrics"`
}

var infoCmd = &cobra.Command{
	Use:   "info <file|url>",
	Short: "Open a document and print its layout",
	Long: `Open a document and print the viewer state after loading: page sizes and
offsets at the initial scale, zoom levels and load metrics.

Examples:
  pageview info report.pdf
  pageview info https://example.com/paper.pdf -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		s, err := startSession(ctx, env.config.Get(), env.logger, sessionOptions{password: flagPassword(password)})
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.viewer.Open(ctx, args[0]); err != nil {
			return err
		}
		snap, err := s.viewer.Snapshot(ctx)
		if err != nil {
			return err
		}
		return output.Write(infoResult{
			Location: args[0],
			Viewer:   snap,
			Metrics:  s.metrics.Breakdown(metrics.Filter{}),
		})
	},
}
