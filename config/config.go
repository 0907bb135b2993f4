package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete terminal configuration.
type Config struct {
	Account     AccountConfig      `json:"account" yaml:"account"`
	Simulation  SimulationConfig   `json:"simulation" yaml:"simulation"`
	Instruments []InstrumentConfig `json:"instruments,omitempty" yaml:"instruments,omitempty"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
	Server      ServerConfig       `json:"server" yaml:"server"`
}

// AccountConfig sets up the session account.
type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// SimulationConfig contains the constants fixed at engine construction.
// Durations are strings like "600ms" or "1m".
type SimulationConfig struct {
	TickInterval string `json:"tick_interval" yaml:"tick_interval"`
	BarDuration  string `json:"bar_duration" yaml:"bar_duration"`
	HistoryDepth int    `json:"history_depth" yaml:"history_depth"`
	BookDepth    int    `json:"book_depth" yaml:"book_depth"`
	Seed         int64  `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 means time-seeded
}

// InstrumentConfig overrides the built-in instrument set when present.
type InstrumentConfig struct {
	Symbol      string  `json:"symbol" yaml:"symbol"`
	BasePrice   float64 `json:"base_price" yaml:"base_price"`
	MaxLeverage int     `json:"max_leverage" yaml:"max_leverage"`
	TickSize    float64 `json:"tick_size" yaml:"tick_size"`
}

// JournalConfig selects the session journal backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig configures the snapshot API server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

func (s SimulationConfig) TickIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(s.TickInterval)
}

func (s SimulationConfig) BarDurationDuration() (time.Duration, error) {
	return time.ParseDuration(s.BarDuration)
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing the format by
// extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if d, err := c.Simulation.TickIntervalDuration(); err != nil || d <= 0 {
		return fmt.Errorf("simulation.tick_interval must be a positive duration")
	}
	if d, err := c.Simulation.BarDurationDuration(); err != nil || d <= 0 {
		return fmt.Errorf("simulation.bar_duration must be a positive duration")
	}
	if c.Simulation.HistoryDepth <= 0 {
		return fmt.Errorf("simulation.history_depth must be positive")
	}
	if c.Simulation.BookDepth <= 0 {
		return fmt.Errorf("simulation.book_depth must be positive")
	}
	for i, in := range c.Instruments {
		if in.Symbol == "" {
			return fmt.Errorf("instruments[%d].symbol is required", i)
		}
		if in.BasePrice <= 0 {
			return fmt.Errorf("instrument %s: base_price must be positive", in.Symbol)
		}
		if in.MaxLeverage < 1 {
			return fmt.Errorf("instrument %s: max_leverage must be >= 1", in.Symbol)
		}
		if in.TickSize <= 0 {
			return fmt.Errorf("instrument %s: tick_size must be positive", in.Symbol)
		}
	}
	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USD",
			Balance:  10000,
		},
		Simulation: SimulationConfig{
			TickInterval: "600ms",
			BarDuration:  "1m",
			HistoryDepth: 80,
			BookDepth:    8,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Server: ServerConfig{
			Addr: ":8089",
		},
	}
}
