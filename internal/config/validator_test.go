package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("default config must validate, got: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"zero cell length", func(c *Config) { c.Sim.CellLengthM = -1 }, "cell_length_m"},
		{"negative v_max", func(c *Config) { c.Sim.VMax = -3 }, "v_max"},
		{"p_slow too high", func(c *Config) { c.Sim.PSlow = 1.5 }, "p_slow"},
		{"p_slow negative", func(c *Config) { c.Sim.PSlow = -0.2 }, "p_slow"},
		{"bad mode", func(c *Config) { c.Spawn.Mode = "chaos" }, "spawn.mode"},
		{"density out of range", func(c *Config) { c.Spawn.Density = 1.2 }, "density"},
		{"od without matrix", func(c *Config) {
			c.Spawn.Mode = ModeOD
			c.Spawn.Zones = "zones.json"
		}, "od_matrix"},
		{"od without zones", func(c *Config) {
			c.Spawn.Mode = ModeOD
			c.Spawn.ODMatrix = "od.json"
		}, "zones"},
		{"od bad scale", func(c *Config) {
			c.Spawn.Mode = ModeOD
			c.Spawn.ODMatrix = "od.json"
			c.Spawn.Zones = "zones.json"
			c.Spawn.Scale = -1
		}, "scale"},
		{"no steps", func(c *Config) { c.Run.Steps = -1 }, "steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Sim.CellLengthM = 0
	cfg.Sim.PSlow = 2
	cfg.Spawn.Density = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, sub := range []string{"cell_length_m", "p_slow", "density"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("aggregated error missing %q: %v", sub, err)
		}
	}
}
