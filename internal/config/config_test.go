package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flatsim.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
world_file = "worlds/arena.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Simulation.WorldFile != "worlds/arena.yaml" {
		t.Fatalf("world_file = %q", cfg.Simulation.WorldFile)
	}
	if cfg.Simulation.StepSize != 1.0/200.0 {
		t.Fatalf("step_size = %v, want default 1/200", cfg.Simulation.StepSize)
	}
	if cfg.Simulation.UpdateRate != 200 {
		t.Fatalf("update_rate = %v, want default 200", cfg.Simulation.UpdateRate)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Visualization.Enabled {
		t.Fatal("visualization should default to disabled")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[simulation]
world_file = "worlds/arena.yaml"
step_size = 0.01
`)
	t.Setenv("FLATSIM_STEP_SIZE", "0.02")
	t.Setenv("FLATSIM_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Simulation.StepSize != 0.02 {
		t.Fatalf("step_size = %v, want env override 0.02", cfg.Simulation.StepSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"missing world_file", `
[simulation]
step_size = 0.01
`},
		{"negative step_size", `
[simulation]
world_file = "w.yaml"
step_size = -1.0
`},
		{"zero update_rate", `
[simulation]
world_file = "w.yaml"
update_rate = 0
`},
		{"viz enabled with bad rate", `
[simulation]
world_file = "w.yaml"

[visualization]
enabled = true
update_rate = -5
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.toml)); err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load() succeeded for missing file")
	}
}
