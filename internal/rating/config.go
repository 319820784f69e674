package rating

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML rating policy. Keys missing from the file keep
// their DefaultConfig value; an empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read rating config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML rating policy over the defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	defaults := cfg.KFactors
	cfg.KFactors = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse rating config: %w", err)
	}
	// k_factors may name only some formats.
	if cfg.KFactors == nil {
		cfg.KFactors = defaults
	} else {
		for f, k := range defaults {
			if _, ok := cfg.KFactors[f]; !ok {
				cfg.KFactors[f] = k
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid rating config: %w", err)
	}
	log.Info("Loaded rating policy", "scale", cfg.Scale, "margin_weight", cfg.MarginWeight, "bootstrap", cfg.Bootstrap.Strategy)
	return cfg, nil
}
