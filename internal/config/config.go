package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Capture CaptureConfig `mapstructure:"capture"`
	Reaper  ReaperConfig  `mapstructure:"reaper"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	BaseURL     string        `mapstructure:"base_url"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout must stay zero: live streams hold their response open
	// indefinitely and a server-wide write deadline would sever them.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	Enabled     bool          `mapstructure:"enabled"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type CaptureConfig struct {
	MaxBodySize int64 `mapstructure:"max_body_size"`
}

type ReaperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8600)
	v.SetDefault("server.base_url", "http://localhost:8600")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("capture.max_body_size", 1048576)
	v.SetDefault("reaper.interval", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hooky")
		v.AddConfigPath("/etc/hooky")
	}

	// Environment variables override
	v.SetEnvPrefix("HOOKY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
