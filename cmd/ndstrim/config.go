package main

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"example.com/ndstrim/internal/trimmer"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	Extension   string    `yaml:"extension"`
	InPlace     bool      `yaml:"inplace"`
	Concurrency int       `yaml:"concurrency"`
	Logs        logConfig `yaml:"logs"`
}

// loadConfig reads the optional YAML config; an empty path yields defaults.
// Command-line flags that were set explicitly override it.
func loadConfig(path string) (config, error) {
	var cfg config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.Extension == "" {
		cfg.Extension = trimmer.DefaultExtension
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 50
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}
