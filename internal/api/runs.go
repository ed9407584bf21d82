package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mgiordano/gridlock/internal/config"
	"github.com/mgiordano/gridlock/internal/metrics"
	"github.com/mgiordano/gridlock/internal/od"
	"github.com/mgiordano/gridlock/internal/roadnet"
	"github.com/mgiordano/gridlock/internal/sim"
	"github.com/mgiordano/gridlock/internal/stats"
)

// RunState is the lifecycle phase of one simulation run.
type RunState string

const (
	RunRunning   RunState = "running"
	RunDone      RunState = "done"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// Run is one in-process simulation with its own engine and goroutine.
type Run struct {
	id     string
	eng    *sim.Engine
	cancel context.CancelFunc

	mu         sync.RWMutex
	state      RunState
	errMsg     string
	startedAt  time.Time
	finishedAt time.Time
	snapshot   []sim.VehicleState
	report     sim.SpawnReport
	steps      int
}

// RunInfo is the JSON view of a run.
type RunInfo struct {
	ID         string          `json:"run_id"`
	State      RunState        `json:"state"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Steps      int             `json:"steps"`
	Spawn      sim.SpawnReport `json:"spawn"`
	Summary    stats.Summary   `json:"summary"`
}

func (r *Run) info() RunInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := RunInfo{
		ID:        r.id,
		State:     r.state,
		Error:     r.errMsg,
		StartedAt: r.startedAt,
		Steps:     r.steps,
		Spawn:     r.report,
		Summary:   r.eng.Stats().Summarize(),
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		info.FinishedAt = &t
	}
	return info
}

// Snapshot returns the latest committed tick snapshot.
func (r *Run) Snapshot() []sim.VehicleState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// StartRequest carries per-run overrides on top of the loaded config.
type StartRequest struct {
	Steps   *int     `json:"steps,omitempty"`
	Seed    *uint64  `json:"seed,omitempty"`
	Mode    *string  `json:"mode,omitempty"`
	Density *float64 `json:"density,omitempty"`
	Scale   *float64 `json:"scale,omitempty"`
}

// Manager owns all runs. Every run is an independent simulation context,
// so any number may execute concurrently.
type Manager struct {
	network roadnet.NetworkData
	loader  *config.Loader

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewManager creates a Manager over a fixed street network.
func NewManager(network roadnet.NetworkData, loader *config.Loader) *Manager {
	return &Manager{network: network, loader: loader, runs: make(map[string]*Run)}
}

// startError distinguishes caller mistakes from server faults.
type startError struct {
	status int
	err    error
}

func (e *startError) Error() string { return e.err.Error() }

// Start validates the effective config, builds the grid and engine, spawns
// the fleet, and launches the run goroutine.
func (m *Manager) Start(req StartRequest) (RunInfo, error) {
	cfg := *m.loader.Config() // copy; overrides never touch the loaded config
	if req.Steps != nil {
		cfg.Run.Steps = *req.Steps
	}
	if req.Seed != nil {
		cfg.Sim.Seed = *req.Seed
	}
	if req.Mode != nil {
		cfg.Spawn.Mode = *req.Mode
	}
	if req.Density != nil {
		cfg.Spawn.Density = *req.Density
	}
	if req.Scale != nil {
		cfg.Spawn.Scale = *req.Scale
	}
	if err := config.Validate(&cfg); err != nil {
		return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
	}

	grid, err := roadnet.NewCellGrid(m.network, cfg.Sim.CellLengthM)
	if err != nil {
		return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
	}
	eng, err := sim.NewEngine(grid, sim.Params{
		VMax:          cfg.Sim.VMax,
		PSlow:         cfg.Sim.PSlow,
		Seed:          cfg.Sim.Seed,
		DecideWorkers: cfg.Sim.DecideWorkers,
	})
	if err != nil {
		return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
	}

	var report sim.SpawnReport
	switch cfg.Spawn.Mode {
	case config.ModeDensity:
		n, err := eng.SpawnByDensity(cfg.Spawn.Density)
		if err != nil {
			return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
		}
		report.Spawned = n
	case config.ModeOD:
		matrix, err := od.ReadMatrixFile(cfg.Spawn.ODMatrix)
		if err != nil {
			return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
		}
		zones, err := od.ReadZonesFile(cfg.Spawn.Zones)
		if err != nil {
			return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
		}
		report, err = eng.SpawnFromOD(matrix, zones, cfg.Spawn.Scale)
		if err != nil {
			return RunInfo{}, &startError{status: http.StatusUnprocessableEntity, err: err}
		}
		for _, sk := range report.Skipped {
			slog.Warn("od pair skipped", "origin", sk.Origin, "destination", sk.Dest, "reason", sk.Reason)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &Run{
		id:        uuid.New().String(),
		eng:       eng,
		cancel:    cancel,
		state:     RunRunning,
		startedAt: time.Now(),
		snapshot:  eng.Snapshot(),
		report:    report,
		steps:     cfg.Run.Steps,
	}

	m.mu.Lock()
	m.runs[run.id] = run
	m.mu.Unlock()

	metrics.RunsStarted.Inc()
	slog.Info("run started", "run_id", run.id, "mode", cfg.Spawn.Mode,
		"vehicles", report.Spawned, "steps", cfg.Run.Steps, "seed", cfg.Sim.Seed)

	go run.loop(ctx, cfg.Run.Steps)
	return run.info(), nil
}

func (r *Run) loop(ctx context.Context, steps int) {
	defer r.eng.Close()

	err := r.eng.Run(ctx, steps, func(step int, snap []sim.VehicleState) {
		r.mu.Lock()
		r.snapshot = snap
		r.mu.Unlock()
		if last, ok := r.eng.Stats().Last(); ok {
			metrics.ActiveVehicles.WithLabelValues(r.id).Set(float64(last.Active))
			metrics.AvgVelocity.WithLabelValues(r.id).Set(last.AvgVelocity)
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishedAt = time.Now()
	switch {
	case err == nil:
		r.state = RunDone
	case errors.Is(err, context.Canceled):
		r.state = RunCancelled
	default:
		// A fatal engine error: surface it, state is preserved for diagnosis.
		r.state = RunFailed
		r.errMsg = err.Error()
		slog.Error("run failed", "run_id", r.id, "err", err)
	}
}

// Get returns a run by ID.
func (m *Manager) Get(id string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	return r, ok
}

// List returns info for all runs, newest first.
func (m *Manager) List() []RunInfo {
	m.mu.RLock()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].startedAt.After(runs[j].startedAt) })
	out := make([]RunInfo, len(runs))
	for i, r := range runs {
		out[i] = r.info()
	}
	return out
}

// Cancel requests a clean stop between ticks.
func (m *Manager) Cancel(id string) error {
	r, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	r.cancel()
	return nil
}
