package flatjson

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format names a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// DecodeConfig reads a Config from data. Keys absent from data keep their
// DefaultConfig values.
func DecodeConfig(data []byte, format Format) (Config, error) {
	cfg := DefaultConfig()
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatTOML:
		err = toml.Unmarshal(data, &cfg)
	case FormatJSON:
		err = json.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("flatjson: unsupported config format %q", format)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("flatjson: decode %s config: %w", format, err)
	}
	if cfg.IndentStep < -1 {
		return DefaultConfig(), fmt.Errorf("flatjson: indent_step must be -1 or more, got %d", cfg.IndentStep)
	}
	return cfg, nil
}

// LoadConfigFile reads a Config from path, choosing the format by extension
// (.yaml, .yml, .toml or .json).
func LoadConfigFile(path string) (Config, error) {
	format, err := formatFor(path)
	if err != nil {
		return DefaultConfig(), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("flatjson: read config: %w", err)
	}
	return DecodeConfig(data, format)
}

func formatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("flatjson: cannot infer config format from %q", path)
}
