package config

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/spf13/viper"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry is a single configuration key with its default.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every configuration key with its default value.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Viewer
		// ===================
		{
			Key:         "viewer.initial_scale",
			Value:       d.Viewer.InitialScale,
			Description: "Scale for newly opened documents: fit_width, fit_page or a factor",
		},
		{
			Key:         "viewer.text_layer",
			Value:       d.Viewer.TextLayer,
			Description: "Load page text for search and highlights",
		},
		{
			Key:         "viewer.evict_distance",
			Value:       d.Viewer.EvictDistance,
			Description: "Pages further than this from the current page are cleared",
		},
		{
			Key:         "viewer.prefetch",
			Value:       d.Viewer.Prefetch,
			Description: "Render one page past the visible window in the scroll direction",
		},
		{
			Key:         "viewer.page_gap",
			Value:       d.Viewer.PageGap,
			Description: "Vertical gap between pages in pixels",
		},
		{
			Key:         "viewer.fit_margin",
			Value:       d.Viewer.FitMargin,
			Description: "Margin subtracted from the container before fit scales are computed",
		},
		{
			Key:         "viewer.load_concurrency",
			Value:       d.Viewer.LoadConcurrency,
			Description: "Pages whose metadata is loaded in parallel",
		},
		{
			Key:         "viewer.container_width",
			Value:       d.Viewer.ContainerWidth,
			Description: "Container width in pixels",
		},
		{
			Key:         "viewer.container_height",
			Value:       d.Viewer.ContainerHeight,
			Description: "Container height in pixels",
		},

		// ===================
		// Fetch
		// ===================
		{
			Key:         "fetch.timeout_seconds",
			Value:       d.Fetch.TimeoutSeconds,
			Description: "HTTP timeout in seconds per download attempt",
		},
		{
			Key:         "fetch.max_retries",
			Value:       d.Fetch.MaxRetries,
			Description: "Retries after a failed download attempt",
		},
		{
			Key:         "fetch.retry_delay_ms",
			Value:       d.Fetch.RetryDelayMS,
			Description: "Base delay between retries in milliseconds, doubled per retry",
		},
		{
			Key:         "fetch.headers",
			Value:       d.Fetch.Headers,
			Description: "Headers sent with every download (values support ${ENV_VAR})",
		},

		// ===================
		// Logging
		// ===================
		{
			Key:         "log.level",
			Value:       d.Log.Level,
			Description: "Log level: debug, info, warn or error",
		},
		{
			Key:         "log.format",
			Value:       d.Log.Format,
			Description: "Log format: text or json",
		},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ResetToDefault resets a config key on v to its default value.
// Returns ErrNoDefault if no default exists for the key.
func ResetToDefault(v *viper.Viper, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	def := GetDefault(key)
	if def == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	v.Set(key, def.Value)
	return nil
}

// setDefaults registers every default entry on v.
func setDefaults(v *viper.Viper) {
	for _, entry := range DefaultEntries() {
		v.SetDefault(entry.Key, entry.Value)
	}
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}
