package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/mgiordano/gridlock/internal/metrics"
	"github.com/mgiordano/gridlock/internal/roadnet"
	"github.com/mgiordano/gridlock/internal/stats"
)

// ErrParams reports invalid engine parameters. Parameter errors are
// rejected before any simulation state exists.
var ErrParams = errors.New("invalid engine parameters")

// Params are the Nagel-Schreckenberg model parameters for one engine.
type Params struct {
	VMax  int     // maximum velocity in cells per tick, ≥ 0
	PSlow float64 // per-vehicle per-tick random slow-down probability, in [0,1]
	Seed  uint64  // PRNG seed; identical seeds reproduce identical runs
	// DecideWorkers sizes the decide-phase pool. ≤ 1 runs it inline.
	DecideWorkers int
}

// VehicleState is one row of a per-tick output snapshot.
type VehicleState struct {
	ID       VehicleID     `json:"vehicle_id"`
	Edge     roadnet.EdgeID `json:"edge_id"`
	Position int           `json:"position"`
	Velocity int           `json:"velocity"`
}

// Engine advances a simulation in discrete synchronous ticks. One Engine
// is one independent simulation context: nothing is shared between
// engines, so parameter sweeps can run many in a single process.
//
// Each tick is a strict two-phase barrier. The decide phase computes every
// vehicle's next velocity from the previous committed state only; the
// commit phase then applies all movements sequentially in ascending
// vehicle ID order. Decisions never observe partial updates, so results do
// not depend on iteration order, and commit ties at intersection entry
// cells resolve to the lowest ID.
type Engine struct {
	grid *roadnet.CellGrid
	reg  *Registry
	occ  *Occupancy
	rng  *rand.Rand
	prm  Params
	coll *stats.Collector
	pool *decidePool

	clock int

	// decide-phase scratch, reused across ticks
	decided []int
	slowed  []bool
}

// NewEngine validates prm and builds an empty engine over grid.
func NewEngine(grid *roadnet.CellGrid, prm Params) (*Engine, error) {
	if prm.VMax < 0 {
		return nil, fmt.Errorf("%w: v_max %d", ErrParams, prm.VMax)
	}
	if prm.PSlow < 0 || prm.PSlow > 1 {
		return nil, fmt.Errorf("%w: p_slow %g", ErrParams, prm.PSlow)
	}
	if prm.DecideWorkers < 1 {
		prm.DecideWorkers = 1
	}
	return &Engine{
		grid: grid,
		reg:  NewRegistry(),
		occ:  NewOccupancy(grid),
		rng:  rand.New(rand.NewPCG(prm.Seed, prm.Seed^0x9e3779b97f4a7c15)),
		prm:  prm,
		coll: stats.NewCollector(),
		pool: newDecidePool(prm.DecideWorkers),
	}, nil
}

// Grid returns the cell grid the engine runs on.
func (e *Engine) Grid() *roadnet.CellGrid { return e.grid }

// Clock returns the number of committed ticks.
func (e *Engine) Clock() int { return e.clock }

// ActiveCount returns the number of vehicles currently on the grid.
func (e *Engine) ActiveCount() int { return e.reg.Len() }

// Stats returns the collector; it is safe to read concurrently with Run.
func (e *Engine) Stats() *stats.Collector { return e.coll }

// Close releases the decide pool.
func (e *Engine) Close() { e.pool.close() }

// Snapshot returns the committed state of every vehicle, ascending ID.
func (e *Engine) Snapshot() []VehicleState {
	return lo.Map(e.reg.Ordered(), func(v *Vehicle, _ int) VehicleState {
		return VehicleState{
			ID:       v.ID,
			Edge:     e.grid.EdgeID(v.Edge),
			Position: v.Pos,
			Velocity: v.Vel,
		}
	})
}

// Step commits one simulation tick. A non-nil error means an internal
// invariant was violated; the engine must not be stepped again.
func (e *Engine) Step() error {
	// The commit phase removes completed vehicles from the registry, so
	// work on a stable copy of the ordered list.
	vehicles := append([]*Vehicle(nil), e.reg.Ordered()...)
	n := len(vehicles)

	if cap(e.decided) < n {
		e.decided = make([]int, n)
		e.slowed = make([]bool, n)
	}
	decided, slowed := e.decided[:n], e.slowed[:n]

	// Random draws happen here, sequentially in ascending ID order, so the
	// stream is identical no matter how the decide phase is parallelised.
	for i := range vehicles {
		slowed[i] = e.rng.Float64() < e.prm.PSlow
	}

	// Decide phase: pure reads of the previous committed state.
	e.pool.dispatch(n, func(i int) {
		v := vehicles[i]
		next := v.Vel + 1
		if next > e.prm.VMax {
			next = e.prm.VMax
		}
		if gap, _ := e.occ.GapAhead(v.Edge, v.Pos); gap < next {
			next = gap
		}
		if slowed[i] && next > 0 {
			next--
		}
		decided[i] = next
	})

	// Commit phase: sequential, ascending ID.
	throughput := make(map[string]int)
	var completed []stats.Trip

	for i, v := range vehicles {
		vel := decided[i]
		cells := e.grid.CellCount(v.Edge)
		raw := v.Pos + vel

		if raw < cells {
			if err := e.occ.Move(v.Edge, v.Pos, v.Edge, raw, v.ID); err != nil {
				return e.diagnose(err, v)
			}
			v.Pos, v.Vel = raw, vel
			continue
		}

		// Edge exhausted: cells of motion left beyond the last cell.
		overflow := raw - (cells - 1) - 1

		var next int
		hasNext := false
		switch v.Mode {
		case RouteFixed:
			if len(v.Route) == 0 {
				// Destination reached: the vehicle leaves the grid.
				e.occ.Remove(v.Edge, v.Pos)
				e.reg.Remove(v.ID)
				trip := stats.Trip{
					Vehicle:       int(v.ID),
					OriginStep:    v.OriginStep,
					CompletedStep: e.clock + 1,
					TravelTime:    e.clock + 1 - v.OriginStep,
				}
				completed = append(completed, trip)
				throughput[e.grid.EdgeID(v.Edge)]++
				metrics.TripsCompleted.Inc()
				metrics.TripTravelTime.Observe(float64(trip.TravelTime))
				continue
			}
			next, hasNext = v.Route[0], true
		case RouteFree:
			if outs := e.grid.Outgoing(e.grid.ToNode(v.Edge)); len(outs) > 0 {
				next, hasNext = outs[e.rng.IntN(len(outs))], true
			}
		}

		if !hasNext {
			// Dead end: clamp to the last cell and stop.
			if err := e.halt(v, cells-1); err != nil {
				return e.diagnose(err, v)
			}
			continue
		}

		target := overflow
		if last := e.grid.CellCount(next) - 1; target > last {
			target = last // conservative multi-edge traversal clamp
		}
		if _, taken := e.occ.VehicleAt(next, target); taken {
			// Entry conflict: a lower-ID vehicle claimed the cell this
			// tick, or it is simply occupied. Yield and wait at the end
			// of the current edge.
			if err := e.halt(v, cells-1); err != nil {
				return e.diagnose(err, v)
			}
			continue
		}

		if err := e.occ.Move(v.Edge, v.Pos, next, target, v.ID); err != nil {
			return e.diagnose(err, v)
		}
		throughput[e.grid.EdgeID(v.Edge)]++
		v.Edge, v.Pos, v.Vel = next, target, vel
		if v.Mode == RouteFixed {
			v.Route = v.Route[1:]
		}
	}

	e.clock++
	metrics.TicksCommitted.Inc()

	active := e.reg.Len()
	avg := 0.0
	if active > 0 {
		avg = float64(lo.SumBy(e.reg.Ordered(), func(v *Vehicle) int { return v.Vel })) / float64(active)
	}
	e.coll.Record(stats.Tick{
		Step:        e.clock,
		Active:      active,
		AvgVelocity: avg,
		Throughput:  throughput,
		Completed:   completed,
	})
	return nil
}

// halt parks v at cell pos of its current edge with zero velocity.
func (e *Engine) halt(v *Vehicle, pos int) error {
	if err := e.occ.Move(v.Edge, v.Pos, v.Edge, pos, v.ID); err != nil {
		return err
	}
	v.Pos, v.Vel = pos, 0
	return nil
}

// diagnose wraps a fatal commit error with the full vehicle state, since a
// collision at commit time means the decide phase under-computed a gap.
func (e *Engine) diagnose(err error, v *Vehicle) error {
	return fmt.Errorf("tick %d, vehicle %d on edge %q cell %d vel %d: %w",
		e.clock, v.ID, e.grid.EdgeID(v.Edge), v.Pos, v.Vel, err)
}

// Run commits up to steps ticks, stopping cleanly between ticks when ctx
// is cancelled. onTick, if non-nil, observes each committed step with a
// fresh snapshot; it runs on the calling goroutine between ticks.
func (e *Engine) Run(ctx context.Context, steps int, onTick func(step int, snap []VehicleState)) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := e.Step(); err != nil {
			return err
		}
		if onTick != nil {
			onTick(e.clock, e.Snapshot())
		}
	}
	return nil
}
