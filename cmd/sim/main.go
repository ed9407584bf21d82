// Command sim runs a traffic simulation in batch mode: it loads a street
// network, a YAML config, and (in OD mode) a demand matrix, executes the
// configured number of ticks, and writes a JSON run log to stdout.
//
// A comma-separated -densities list runs one independent simulation per
// density with the same seed, for parameter sweeps.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mgiordano/gridlock/internal/config"
	"github.com/mgiordano/gridlock/internal/od"
	"github.com/mgiordano/gridlock/internal/roadnet"
	"github.com/mgiordano/gridlock/internal/sim"
	"github.com/mgiordano/gridlock/internal/stats"
)

// runLog is the JSON document emitted for one simulation.
type runLog struct {
	Config    config.Config      `json:"config"`
	Spawn     sim.SpawnReport    `json:"spawn"`
	Ticks     []stats.Tick       `json:"ticks"`
	Snapshots []tickSnapshot     `json:"snapshots,omitempty"`
	Final     []sim.VehicleState `json:"final_state"`
	Summary   stats.Summary      `json:"summary"`
}

type tickSnapshot struct {
	Step     int                `json:"step"`
	Vehicles []sim.VehicleState `json:"vehicles"`
}

func main() {
	cfgPath := flag.String("config", "configs/sim.yaml", "Path to simulation YAML config")
	graphPath := flag.String("graph", "data/network.json", "Path to street network JSON")
	steps := flag.Int("steps", 0, "Override run.steps")
	seed := flag.Uint64("seed", 0, "Override sim.seed")
	seedSet := false
	densities := flag.String("densities", "", "Comma-separated density sweep (density mode only)")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := *loader.Config()
	if *steps > 0 {
		cfg.Run.Steps = *steps
	}
	if seedSet {
		cfg.Sim.Seed = *seed
	}
	if err := config.Validate(&cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	network, err := roadnet.ReadFile(*graphPath)
	if err != nil {
		slog.Error("failed to load street network", "err", err)
		os.Exit(1)
	}

	// Stop cleanly between ticks on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweep, err := parseSweep(*densities)
	if err != nil {
		slog.Error("bad -densities", "err", err)
		os.Exit(1)
	}

	var logs []runLog
	if len(sweep) == 0 {
		lg, err := runOne(ctx, cfg, network)
		if err != nil {
			slog.Error("simulation failed", "err", err)
			os.Exit(1)
		}
		logs = append(logs, lg)
	} else {
		if cfg.Spawn.Mode != config.ModeDensity {
			slog.Error("-densities requires spawn.mode=density")
			os.Exit(1)
		}
		for _, d := range sweep {
			c := cfg
			c.Spawn.Density = d
			lg, err := runOne(ctx, c, network)
			if err != nil {
				slog.Error("simulation failed", "density", d, "err", err)
				os.Exit(1)
			}
			logs = append(logs, lg)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	var out any = logs[0]
	if len(logs) > 1 {
		out = logs
	}
	if err := enc.Encode(out); err != nil {
		slog.Error("failed to write run log", "err", err)
		os.Exit(1)
	}
}

// runOne executes a single independent simulation to completion.
func runOne(ctx context.Context, cfg config.Config, network roadnet.NetworkData) (runLog, error) {
	grid, err := roadnet.NewCellGrid(network, cfg.Sim.CellLengthM)
	if err != nil {
		return runLog{}, err
	}
	eng, err := sim.NewEngine(grid, sim.Params{
		VMax:          cfg.Sim.VMax,
		PSlow:         cfg.Sim.PSlow,
		Seed:          cfg.Sim.Seed,
		DecideWorkers: cfg.Sim.DecideWorkers,
	})
	if err != nil {
		return runLog{}, err
	}
	defer eng.Close()

	var report sim.SpawnReport
	switch cfg.Spawn.Mode {
	case config.ModeDensity:
		n, err := eng.SpawnByDensity(cfg.Spawn.Density)
		if err != nil {
			return runLog{}, err
		}
		report.Spawned = n
	case config.ModeOD:
		matrix, err := od.ReadMatrixFile(cfg.Spawn.ODMatrix)
		if err != nil {
			return runLog{}, err
		}
		zones, err := od.ReadZonesFile(cfg.Spawn.Zones)
		if err != nil {
			return runLog{}, err
		}
		report, err = eng.SpawnFromOD(matrix, zones, cfg.Spawn.Scale)
		if err != nil {
			return runLog{}, err
		}
		for _, sk := range report.Skipped {
			slog.Warn("od pair skipped", "origin", sk.Origin, "destination", sk.Dest, "reason", sk.Reason)
		}
	}
	slog.Info("simulation start", "mode", cfg.Spawn.Mode, "vehicles", report.Spawned,
		"cells", grid.TotalCells(), "steps", cfg.Run.Steps, "seed", cfg.Sim.Seed)

	lg := runLog{Config: cfg, Spawn: report}
	every := cfg.Run.SnapshotEvery
	err = eng.Run(ctx, cfg.Run.Steps, func(step int, snap []sim.VehicleState) {
		if every > 0 && step%every == 0 {
			lg.Snapshots = append(lg.Snapshots, tickSnapshot{Step: step, Vehicles: snap})
		}
	})
	if err != nil && ctx.Err() == nil {
		return runLog{}, err
	}

	lg.Ticks = eng.Stats().Ticks()
	lg.Final = eng.Snapshot()
	lg.Summary = eng.Stats().Summarize()
	slog.Info("simulation done", "ticks", lg.Summary.Steps,
		"active", lg.Summary.Active, "completed_trips", lg.Summary.CompletedTrips)
	return lg, nil
}

func parseSweep(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse density %q: %w", p, err)
		}
		out = append(out, d)
	}
	return out, nil
}
