package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageview/internal/metrics"
	"github.com/jackzampolin/pageview/internal/output"
	"github.com/jackzampolin/pageview/internal/zoom"
)

var (
	renderScale  string
	renderPages  string
	renderOutDir string
	renderFormat string
)

// renderedPage is one written image.
type renderedPage struct {
	Page   int    `json:"page" yaml:"page"`
	Path   string `json:"path" yaml:"path"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// renderResult is printed by the render command.
type renderResult struct {
	Scale   float64         `json:"scale" yaml:"scale"`
	Pages   []renderedPage  `json:"pages" yaml:"pages"`
	Renders metrics.Summary `json:"renders" yaml:"renders"`
}

var renderCmd = &cobra.Command{
	Use:   "render <file|url>",
	Short: "Write page images",
	Long: `Render pages at a scale and write them as images, by default into
~/.pageview/renders/<document>/page_NNNN.png.

Examples:
  pageview render report.pdf
  pageview render report.pdf --pages 1-3,7 --scale 2
  pageview render report.pdf --scale fit_width --format tiff --out ./pages`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		location := args[0]

		enc, err := encoderFor(renderFormat)
		if err != nil {
			return err
		}
		scale, err := zoom.Parse(renderScale)
		if err != nil {
			return err
		}

		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		outDir := renderOutDir
		if outDir == "" {
			if err := env.home.EnsureDocumentRendersDir(location); err != nil {
				return err
			}
			outDir = env.home.DocumentRendersDir(location)
		} else if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		s, err := startSession(ctx, env.config.Get(), env.logger, sessionOptions{password: flagPassword(password)})
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.viewer.Open(ctx, location); err != nil {
			return err
		}
		res, err := renderPagesTo(ctx, s, scale, renderPages, outDir, strings.ToLower(renderFormat), enc)
		if err != nil {
			return err
		}
		return output.Write(res)
	},
}

func renderPagesTo(ctx context.Context, s *session, scale zoom.Scale, sel, dir, ext string, enc imageEncoder) (renderResult, error) {
	if err := s.viewer.ZoomTo(ctx, scale); err != nil {
		return renderResult{}, err
	}
	lvl, err := s.viewer.ZoomLevel(ctx)
	if err != nil {
		return renderResult{}, err
	}
	n, err := s.viewer.NumPages(ctx)
	if err != nil {
		return renderResult{}, err
	}
	pages, err := parsePages(sel, n)
	if err != nil {
		return renderResult{}, err
	}

	res := renderResult{Scale: lvl.Scale, Pages: make([]renderedPage, 0, len(pages))}
	for _, p := range pages {
		img, err := s.viewer.PageImage(ctx, p)
		if err != nil {
			return renderResult{}, fmt.Errorf("page %d: %w", p, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("page_%04d.%s", p, ext))
		if err := writeImage(path, img, enc); err != nil {
			return renderResult{}, err
		}
		b := img.Bounds()
		res.Pages = append(res.Pages, renderedPage{Page: p, Path: path, Width: b.Dx(), Height: b.Dy()})
		s.logger.Debug("page written", "page", p, "path", path)
	}
	res.Renders = s.metrics.Summary(metrics.Filter{Op: metrics.OpRender})
	return res, nil
}

func init() {
	renderCmd.Flags().StringVar(&renderScale, "scale", "1", "zoom: a factor, a percentage, fit_width or fit_page")
	renderCmd.Flags().StringVar(&renderPages, "pages", "all", "pages to render, e.g. 1-3,7")
	renderCmd.Flags().StringVar(&renderOutDir, "out", "", "output directory (default: home renders directory)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "png", "image format: png, bmp or tiff")
}
