package engine

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the on-disk YAML shape for an Engine: where its data file
// lives and how many frames its buffer pool should carry.
type Config struct {
	Home struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"home"`
	BufferPool struct {
		Frames int `mapstructure:"frames"`
	} `mapstructure:"buffer_pool"`
}

// DefaultConfig returns the configuration a fresh database started against
// dir would use absent a config file.
func DefaultConfig(dir string) *Config {
	cfg := &Config{}
	cfg.Home.Dir = dir
	cfg.BufferPool.Frames = 64
	return cfg
}

// LoadConfig reads a YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Home.Dir == "" {
		return nil, fmt.Errorf("config: home.dir is required")
	}
	if cfg.BufferPool.Frames <= 0 {
		cfg.BufferPool.Frames = DefaultConfig(cfg.Home.Dir).BufferPool.Frames
	}
	return cfg, nil
}
