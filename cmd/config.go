// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries defaults merged under command-line flags. Flags
// always win; the config only fills values the user left unset.
type Config struct {
	Language string `yaml:"language"`
	Output   string `yaml:"output"`
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
}

const defaultConfigFile = ".bakelite.yaml"

// loadConfig reads the config file named by --config, or the default
// file when present. A missing default file is not an error.
func loadConfig() (*Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return &Config{}, nil
		}
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func fallback(flag, cfgVal string) string {
	if flag != "" {
		return flag
	}
	return cfgVal
}
