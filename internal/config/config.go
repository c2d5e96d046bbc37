package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Simulation    SimulationConfig    `toml:"simulation"`
	Visualization VisualizationConfig `toml:"visualization"`
	Logging       LoggingConfig       `toml:"logging"`
}

type SimulationConfig struct {
	WorldFile  string  `toml:"world_file" env:"FLATSIM_WORLD_FILE"`
	StepSize   float64 `toml:"step_size" env:"FLATSIM_STEP_SIZE"`     // seconds per physics step
	UpdateRate float64 `toml:"update_rate" env:"FLATSIM_UPDATE_RATE"` // wall-clock steps per second
}

type VisualizationConfig struct {
	Enabled    bool    `toml:"enabled" env:"FLATSIM_VIZ_ENABLED"`
	UpdateRate float64 `toml:"update_rate" env:"FLATSIM_VIZ_UPDATE_RATE"` // publishes per second
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"FLATSIM_LOG_LEVEL"`
	Format string `toml:"format" env:"FLATSIM_LOG_FORMAT"` // "json" or "console"
}

// Load reads the toml file at path and applies environment overrides on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.WorldFile == "" {
		return fmt.Errorf("simulation.world_file is required")
	}
	if c.Simulation.StepSize <= 0 {
		return fmt.Errorf("simulation.step_size must be positive")
	}
	if c.Simulation.UpdateRate <= 0 {
		return fmt.Errorf("simulation.update_rate must be positive")
	}
	if c.Visualization.Enabled && c.Visualization.UpdateRate <= 0 {
		return fmt.Errorf("visualization.update_rate must be positive")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			StepSize:   1.0 / 200.0,
			UpdateRate: 200,
		},
		Visualization: VisualizationConfig{
			Enabled:    false,
			UpdateRate: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
