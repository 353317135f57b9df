package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the simulator configuration.
type Config struct {
	// Main memory
	RAMLines     int `yaml:"ramLines"`
	RAMBlockSize int `yaml:"ramBlockSize"` // words/line
	RAMWordSize  int `yaml:"ramWordSize"`  // bytes/word
	RAMLatency   int `yaml:"ramLatency"`   // cycles

	// L1 cache
	CacheLines         int `yaml:"cacheLines"` // line-slots
	CacheBlockSize     int `yaml:"cacheBlockSize"`
	CacheAssociativity int `yaml:"cacheAssociativity"`
	CacheLatency       int `yaml:"cacheLatency"`

	// HTTP control surface
	ListenAddr string `yaml:"listenAddr"`

	// Program loaded at startup, assembled and flashed at address 0. Empty
	// means the simulator starts blank and waits for POST /flash.
	ProgramPath string `yaml:"programPath"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfig checks if the configuration is valid.
func validateConfig(cfg *Config) error {
	if cfg.RAMLines <= 0 || cfg.RAMBlockSize <= 0 || cfg.RAMWordSize <= 0 {
		return fmt.Errorf("RAM dimensions must be positive")
	}
	if cfg.RAMLatency <= 0 {
		return fmt.Errorf("RAM latency must be positive")
	}
	if cfg.CacheLines <= 0 || cfg.CacheBlockSize <= 0 {
		return fmt.Errorf("cache dimensions must be positive")
	}
	if cfg.CacheAssociativity <= 0 || cfg.CacheLines%cfg.CacheAssociativity != 0 {
		return fmt.Errorf("cache associativity must evenly divide the line count")
	}
	if cfg.CacheLatency <= 0 {
		return fmt.Errorf("cache latency must be positive")
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}

// DefaultConfig returns the stock sizing: RAM 65536 lines x 16 words x
// 4-byte word at latency 5; L1 16384 line-slots, block_size 16, word_size
// 4, latency 1, 2-way.
func DefaultConfig() *Config {
	return &Config{
		RAMLines:     65536,
		RAMBlockSize: 16,
		RAMWordSize:  4,
		RAMLatency:   5,

		CacheLines:         16384,
		CacheBlockSize:     16,
		CacheAssociativity: 2,
		CacheLatency:       1,

		ListenAddr: ":8080",
	}
}
