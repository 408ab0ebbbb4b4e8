package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/pageview/internal/fetch"
	"github.com/jackzampolin/pageview/internal/viewer"
	"github.com/jackzampolin/pageview/internal/zoom"
)

// Config holds pageview configuration.
// Stored at: ./config.yaml or ~/.pageview/config.yaml
type Config struct {
	Viewer ViewerCfg `mapstructure:"viewer" yaml:"viewer" json:"viewer"`
	Fetch  FetchCfg  `mapstructure:"fetch" yaml:"fetch" json:"fetch"`
	Log    LogCfg    `mapstructure:"log" yaml:"log" json:"log"`
}

// ViewerCfg configures the viewer core.
type ViewerCfg struct {
	InitialScale    string  `mapstructure:"initial_scale" yaml:"initial_scale" json:"initial_scale"` // "fit_width", "fit_page" or a factor
	TextLayer       bool    `mapstructure:"text_layer" yaml:"text_layer" json:"text_layer"`
	EvictDistance   int     `mapstructure:"evict_distance" yaml:"evict_distance" json:"evict_distance"`
	Prefetch        bool    `mapstructure:"prefetch" yaml:"prefetch" json:"prefetch"`
	PageGap         float64 `mapstructure:"page_gap" yaml:"page_gap" json:"page_gap"`
	FitMargin       float64 `mapstructure:"fit_margin" yaml:"fit_margin" json:"fit_margin"`
	LoadConcurrency int     `mapstructure:"load_concurrency" yaml:"load_concurrency" json:"load_concurrency"`
	ContainerWidth  float64 `mapstructure:"container_width" yaml:"container_width" json:"container_width"`
	ContainerHeight float64 `mapstructure:"container_height" yaml:"container_height" json:"container_height"`
}

// FetchCfg configures document downloads.
type FetchCfg struct {
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries     int               `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	RetryDelayMS   int               `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms" json:"retry_delay_ms"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers" json:"headers"` // values support ${ENV_VAR} syntax
}

// LogCfg configures the CLI logger.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Viewer: ViewerCfg{
			InitialScale:    zoom.FitWidthName,
			TextLayer:       true,
			EvictDistance:   5,
			Prefetch:        true,
			PageGap:         10,
			FitMargin:       20,
			LoadConcurrency: viewer.DefaultLoadConcurrency,
			ContainerWidth:  1024,
			ContainerHeight: 768,
		},
		Fetch: FetchCfg{
			TimeoutSeconds: 60,
			MaxRetries:     3,
			RetryDelayMS:   500,
			Headers:        map[string]string{},
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// ViewerSettings converts the viewer section to viewer.Settings. An
// unparsable initial scale is reported and replaced by fit width.
func (c *Config) ViewerSettings() (viewer.Settings, error) {
	st := viewer.Settings{
		InitialScale:    zoom.FitWidth,
		TextLayer:       c.Viewer.TextLayer,
		EvictDistance:   c.Viewer.EvictDistance,
		Prefetch:        c.Viewer.Prefetch,
		PageGap:         c.Viewer.PageGap,
		FitMargin:       c.Viewer.FitMargin,
		LoadConcurrency: c.Viewer.LoadConcurrency,
	}
	if c.Viewer.InitialScale == "" {
		return st, nil
	}
	s, err := zoom.Parse(c.Viewer.InitialScale)
	if err != nil {
		return st, fmt.Errorf("viewer.initial_scale: %w", err)
	}
	st.InitialScale = s
	return st, nil
}

// Container returns the configured container size.
func (c *Config) Container() zoom.Size {
	return zoom.Size{Width: c.Viewer.ContainerWidth, Height: c.Viewer.ContainerHeight}
}

// FetchConfig converts the fetch section to fetch.Config, resolving
// ${ENV_VAR} references in header values.
func (c *Config) FetchConfig(logger *slog.Logger) fetch.Config {
	headers := make(map[string]string, len(c.Fetch.Headers))
	for k, v := range c.Fetch.Headers {
		headers[k] = ResolveEnvVars(v)
	}
	return fetch.Config{
		Timeout:    time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		MaxRetries: c.Fetch.MaxRetries,
		RetryDelay: time.Duration(c.Fetch.RetryDelayMS) * time.Millisecond,
		Headers:    headers,
		Logger:     logger,
	}
}

// LogLevel parses the log level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
