// Package output writes structured CLI output as YAML or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Default is the default output format.
var Default Format = FormatYAML

// globalFormat is set by the root command's --output flag.
var globalFormat Format = FormatYAML

// ParseFormat converts a flag value to a Format.
func ParseFormat(format string) (Format, error) {
	switch format {
	case "json":
		return FormatJSON, nil
	case "yaml", "":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

// SetFormat sets the global output format. Unknown values select Default.
func SetFormat(format string) {
	f, err := ParseFormat(format)
	if err != nil {
		f = Default
	}
	globalFormat = f
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// Write writes data to stdout in the configured format.
func Write(data any) error {
	return WriteTo(os.Stdout, globalFormat, data)
}

// WriteTo writes data to the given writer in the specified format.
func WriteTo(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
