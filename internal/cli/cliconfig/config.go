// Package cliconfig persists the CLI's client-side settings, such as which
// server to talk to, in ~/.hooky/config.yaml.
package cliconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const DefaultServerURL = "http://localhost:8600"

type Config struct {
	ServerURL string `yaml:"server_url"`
	path      string
}

func Default() *Config {
	return &Config{ServerURL: DefaultServerURL}
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	cfgFile := filepath.Join(home, ".hooky", "config.yaml")

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".hooky", "config.yaml")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}
