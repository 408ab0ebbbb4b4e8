package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema bounds the values a config file may carry.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "viewer": {
      "type": "object",
      "properties": {
        "initial_scale": {"type": "string", "pattern": "^(fit_width|fit_page|[0-9]*\\.?[0-9]+)$"},
        "text_layer": {"type": "boolean"},
        "evict_distance": {"type": "integer", "minimum": 1},
        "prefetch": {"type": "boolean"},
        "page_gap": {"type": "number", "minimum": 0},
        "fit_margin": {"type": "number", "minimum": 0},
        "load_concurrency": {"type": "integer", "minimum": 1, "maximum": 256},
        "container_width": {"type": "number", "exclusiveMinimum": 0},
        "container_height": {"type": "number", "exclusiveMinimum": 0}
      }
    },
    "fetch": {
      "type": "object",
      "properties": {
        "timeout_seconds": {"type": "integer", "minimum": 1},
        "max_retries": {"type": "integer", "minimum": 0, "maximum": 20},
        "retry_delay_ms": {"type": "integer", "minimum": 0},
        "headers": {
          "type": ["object", "null"],
          "additionalProperties": {"type": "string"}
        }
      }
    },
    "log": {
      "type": "object",
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "warning", "error", "DEBUG", "INFO", "WARN", "ERROR"]},
        "format": {"enum": ["text", "json"]}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.json", strings.NewReader(configSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to load config schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("config.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile config schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks c against the config schema.
func (c *Config) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config for validation: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
