// Package config loads client-side settings: config file first, then
// SCREENLOG_* environment variables on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL   string `mapstructure:"base_url"`
	WSURL     string `mapstructure:"ws_url"`
	DataDir   string `mapstructure:"data_dir"`
	CachePath string `mapstructure:"cache_path"`
	Slot      string `mapstructure:"slot"`
	LogLevel  string `mapstructure:"log_level"`
}

// Load reads screenlog.yaml from ~/.screenlog or the working directory.
// A missing file is fine; defaults and environment cover everything.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("screenlog")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".screenlog"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCREENLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("ws_url", "ws://localhost:8080/ws")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("slot", "screenlog_profile")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(cfg.DataDir, "titles.cache")
	}

	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".screenlog")
}
