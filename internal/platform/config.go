package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the shape of a strata.yaml project file.
type FileConfig struct {
	Dir      string `yaml:"dir"`
	Tag      string `yaml:"tag"`
	Format   string `yaml:"format"`
	ReadOnly bool   `yaml:"read_only"`
}

// LoadConfig reads a strata.yaml file. A missing file yields an empty config.
func LoadConfig(path string) (FileConfig, error) {
	var cfg FileConfig

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts the file settings into engine options.
func (c FileConfig) Options() []Option {
	var opts []Option
	if c.Tag != "" {
		opts = append(opts, WithTag(c.Tag))
	}
	if c.Format != "" {
		ext := c.Format
		if ext[0] != '.' {
			ext = "." + ext
		}
		opts = append(opts, WithFormat(ext))
	}
	if c.ReadOnly {
		opts = append(opts, WithReadOnly(true))
	}
	return opts
}
