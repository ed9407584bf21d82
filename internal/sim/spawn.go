package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/mgiordano/gridlock/internal/metrics"
	"github.com/mgiordano/gridlock/internal/od"
	"github.com/mgiordano/gridlock/internal/roadnet"
)

// ErrDensity reports a spawn density outside [0,1].
var ErrDensity = errors.New("density must be in [0,1]")

// SkippedPair is an OD pair that could not produce trips. A skip is a
// data-quality condition, never a simulation failure.
type SkippedPair struct {
	Origin string `json:"origin"`
	Dest   string `json:"destination"`
	Reason string `json:"reason"`
}

// SpawnReport summarises an OD spawn.
type SpawnReport struct {
	Spawned int           `json:"spawned"`
	Dropped int           `json:"dropped"` // route found but first edge full
	Skipped []SkippedPair `json:"skipped,omitempty"`
}

// SpawnByDensity fills a fraction of the grid's cells with free-routed,
// stationary vehicles at uniformly random collision-free positions.
// The placed count is round(density × total cells), exactly.
func (e *Engine) SpawnByDensity(density float64) (int, error) {
	if density < 0 || density > 1 {
		return 0, fmt.Errorf("%w: got %g", ErrDensity, density)
	}
	total := e.grid.TotalCells()
	target := int(math.Round(density * float64(total)))
	if target == 0 {
		return 0, nil
	}

	// Prefix sums turn a uniform draw over the global cell space into an
	// (edge, position) pair, so long edges get their fair share.
	prefix := make([]int, e.grid.NumEdges()+1)
	for i := 0; i < e.grid.NumEdges(); i++ {
		prefix[i+1] = prefix[i] + e.grid.CellCount(i)
	}
	locate := func(c int) (int, int) {
		lo, hi := 0, len(prefix)-1
		for lo+1 < hi {
			mid := (lo + hi) / 2
			if prefix[mid] <= c {
				lo = mid
			} else {
				hi = mid
			}
		}
		return lo, c - prefix[lo]
	}

	placed := 0
	for attempts := 0; placed < target && attempts < target*20; attempts++ {
		edge, pos := locate(e.rng.IntN(total))
		if _, taken := e.occ.VehicleAt(edge, pos); taken {
			continue
		}
		e.place(edge, pos)
		placed++
	}
	// Rejection sampling stalls near density 1; fill the remainder with a
	// deterministic sweep so the target count always holds.
	for edge := 0; edge < e.grid.NumEdges() && placed < target; edge++ {
		for pos := 0; pos < e.grid.CellCount(edge) && placed < target; pos++ {
			if _, taken := e.occ.VehicleAt(edge, pos); taken {
				continue
			}
			e.place(edge, pos)
			placed++
		}
	}

	e.coll.AddSpawned(placed)
	metrics.VehiclesSpawned.Add(float64(placed))
	return placed, nil
}

func (e *Engine) place(edge, pos int) {
	v := e.reg.Create(edge, pos, 0, RouteFree, nil, e.clock)
	// The cell was just checked free; a failure here is an engine bug.
	if err := e.occ.Place(edge, pos, v.ID); err != nil {
		panic(err)
	}
}

// SpawnFromOD converts a demand matrix into fixed-route vehicles. Each
// (origin, destination) pair contributes round(demand × scale) vehicles
// following the shortest path between the zones' representative nodes.
// Pairs without a route, with an unknown zone or node, or whose zones
// coincide are skipped and reported. Zone and pair iteration is sorted,
// so identical inputs spawn identical fleets.
func (e *Engine) SpawnFromOD(matrix od.Matrix, zones od.ZoneNodes, scale float64) (SpawnReport, error) {
	if scale < 0 {
		return SpawnReport{}, fmt.Errorf("%w: scale %g", ErrParams, scale)
	}

	var report SpawnReport
	skip := func(origin, dest, reason string) {
		report.Skipped = append(report.Skipped, SkippedPair{Origin: origin, Dest: dest, Reason: reason})
		metrics.ODPairsSkipped.Inc()
	}

	for _, origin := range matrix.Origins() {
		for _, dest := range matrix.Destinations(origin) {
			count := int(math.Round(matrix[origin][dest] * scale))
			if count <= 0 {
				continue
			}

			src, err := e.resolveZone(zones, origin)
			if err != nil {
				skip(origin, dest, err.Error())
				continue
			}
			dst, err := e.resolveZone(zones, dest)
			if err != nil {
				skip(origin, dest, err.Error())
				continue
			}

			route, err := e.grid.ShortestRoute(src, dst)
			if err != nil {
				skip(origin, dest, err.Error())
				continue
			}
			if len(route) == 0 {
				skip(origin, dest, "origin and destination share a node")
				continue
			}

			for i := 0; i < count; i++ {
				if !e.placeTrip(route) {
					report.Dropped += count - i
					break
				}
				report.Spawned++
			}
		}
	}

	e.coll.AddSpawned(report.Spawned)
	metrics.VehiclesSpawned.Add(float64(report.Spawned))
	return report, nil
}

func (e *Engine) resolveZone(zones od.ZoneNodes, zone string) (int, error) {
	z, ok := zones[zone]
	if !ok {
		return 0, fmt.Errorf("zone %q has no representative node", zone)
	}
	n, err := e.grid.ResolveNode(roadnet.NodeID(z.Node))
	if err != nil {
		return 0, fmt.Errorf("zone %q: %w", zone, err)
	}
	return n, nil
}

// placeTrip puts one vehicle on the lowest free cell of the route's first
// edge. Cell 0 is preferred; when earlier spawns already hold the entry
// cells the vehicle queues further along. Returns false if the edge is
// full.
func (e *Engine) placeTrip(route []int) bool {
	first := route[0]
	for pos := 0; pos < e.grid.CellCount(first); pos++ {
		if _, taken := e.occ.VehicleAt(first, pos); taken {
			continue
		}
		rest := append([]int(nil), route[1:]...)
		v := e.reg.Create(first, pos, 0, RouteFixed, rest, e.clock)
		if err := e.occ.Place(first, pos, v.ID); err != nil {
			panic(err)
		}
		return true
	}
	return false
}
