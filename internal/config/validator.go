package config

import (
	"fmt"
	"strings"
)

// Validate checks all parameter ranges and the spawn-mode invariants,
// collecting every problem into a single error so a bad config is fixed in
// one round trip. Configuration errors always reject before any
// simulation state is built.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Sim.CellLengthM <= 0 {
		errs = append(errs, fmt.Sprintf("sim.cell_length_m must be positive, got %g", cfg.Sim.CellLengthM))
	}
	if cfg.Sim.VMax < 0 {
		errs = append(errs, fmt.Sprintf("sim.v_max must be non-negative, got %d", cfg.Sim.VMax))
	}
	if cfg.Sim.PSlow < 0 || cfg.Sim.PSlow > 1 {
		errs = append(errs, fmt.Sprintf("sim.p_slow must be in [0,1], got %g", cfg.Sim.PSlow))
	}
	if cfg.Sim.DecideWorkers < 1 {
		errs = append(errs, fmt.Sprintf("sim.decide_workers must be at least 1, got %d", cfg.Sim.DecideWorkers))
	}

	switch cfg.Spawn.Mode {
	case ModeDensity:
		if cfg.Spawn.Density < 0 || cfg.Spawn.Density > 1 {
			errs = append(errs, fmt.Sprintf("spawn.density must be in [0,1], got %g", cfg.Spawn.Density))
		}
	case ModeOD:
		if cfg.Spawn.ODMatrix == "" {
			errs = append(errs, "spawn.od_matrix is required in od mode")
		}
		if cfg.Spawn.Zones == "" {
			errs = append(errs, "spawn.zones is required in od mode")
		}
		if cfg.Spawn.Scale <= 0 {
			errs = append(errs, fmt.Sprintf("spawn.scale must be positive, got %g", cfg.Spawn.Scale))
		}
	default:
		errs = append(errs, fmt.Sprintf("spawn.mode must be %q or %q, got %q", ModeDensity, ModeOD, cfg.Spawn.Mode))
	}

	if cfg.Run.Steps < 1 {
		errs = append(errs, fmt.Sprintf("run.steps must be at least 1, got %d", cfg.Run.Steps))
	}
	if cfg.Run.SnapshotEvery < 0 {
		errs = append(errs, fmt.Sprintf("run.snapshot_every must be non-negative, got %d", cfg.Run.SnapshotEvery))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
