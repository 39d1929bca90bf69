package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the optional qstore.yaml maintenance config. Values act
// as defaults for the corresponding flags; flags win when both are set.
type FileConfig struct {
	DB                 string `yaml:"db"`
	DocumentTTL        string `yaml:"document_ttl"` // Go duration string, e.g. "24h"
	CheckpointInterval int    `yaml:"checkpoint_interval"`
}

// LoadFileConfig reads and parses a YAML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

// TTL parses the document_ttl duration. Empty means no TTL.
func (c FileConfig) TTL() (time.Duration, error) {
	if c.DocumentTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.DocumentTTL)
	if err != nil {
		return 0, fmt.Errorf("parse document_ttl: %w", err)
	}
	return d, nil
}
