package sim

import (
	"errors"
	"testing"

	"github.com/mgiordano/gridlock/internal/od"
	"github.com/mgiordano/gridlock/internal/roadnet"
)

func TestSpawnByDensity_Count(t *testing.T) {
	tests := []struct {
		density float64
		want    int // of 46 total cells in the ring grid
	}{
		{0, 0},
		{0.25, 12}, // round(11.5)
		{0.5, 23},
		{1, 46},
	}
	for _, tt := range tests {
		e := newTestEngine(t, ringGrid(t), Params{VMax: 5, Seed: 3})
		got, err := e.SpawnByDensity(tt.density)
		if err != nil {
			t.Fatalf("SpawnByDensity(%g): %v", tt.density, err)
		}
		if got != tt.want {
			t.Errorf("SpawnByDensity(%g) = %d, want %d", tt.density, got, tt.want)
		}
		if e.ActiveCount() != got {
			t.Errorf("registry has %d vehicles, spawner reported %d", e.ActiveCount(), got)
		}
	}
}

func TestSpawnByDensity_RangeRejected(t *testing.T) {
	e := newTestEngine(t, ringGrid(t), Params{VMax: 5})
	for _, d := range []float64{-0.1, 1.01} {
		if _, err := e.SpawnByDensity(d); !errors.Is(err, ErrDensity) {
			t.Errorf("SpawnByDensity(%g) err = %v, want ErrDensity", d, err)
		}
	}
}

func TestSpawnByDensity_FullGridStillSteps(t *testing.T) {
	e := newTestEngine(t, ringGrid(t), Params{VMax: 5, PSlow: 0.2, Seed: 11})
	n, err := e.SpawnByDensity(1)
	if err != nil {
		t.Fatalf("SpawnByDensity: %v", err)
	}
	for i := 0; i < 20; i++ {
		if err := e.Step(); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
	}
	if e.ActiveCount() != n {
		t.Errorf("count changed: %d -> %d", n, e.ActiveCount())
	}
}

func odTestGrid(t *testing.T) *roadnet.CellGrid {
	t.Helper()
	// "x" is an isolated node: nothing reaches it.
	g, err := roadnet.NewCellGrid(roadnet.NetworkData{
		Nodes: []roadnet.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "x"}},
		Edges: []roadnet.Edge{
			{ID: "ab", From: "a", To: "b", Length: 30},
			{ID: "bc", From: "b", To: "c", Length: 30},
		},
	}, 7.5)
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	return g
}

func TestSpawnFromOD(t *testing.T) {
	e := newTestEngine(t, odTestGrid(t), Params{VMax: 5})
	matrix := od.Matrix{
		"Z1": {"Z2": 3, "ZX": 5}, // ZX is unreachable
		"ZU": {"Z2": 1},          // ZU has no zone entry
	}
	zones := od.ZoneNodes{
		"Z1": {Node: "a"},
		"Z2": {Node: "c"},
		"ZX": {Node: "x"},
	}

	report, err := e.SpawnFromOD(matrix, zones, 1)
	if err != nil {
		t.Fatalf("SpawnFromOD: %v", err)
	}
	if report.Spawned != 3 {
		t.Errorf("spawned = %d, want 3", report.Spawned)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %d pairs, want 2 (unreachable + unknown zone)", len(report.Skipped))
	}
	if e.ActiveCount() != 3 {
		t.Errorf("active = %d, want 3", e.ActiveCount())
	}

	// All three queue from cell 0 up the route's first edge.
	ab, _ := e.grid.ResolveEdge("ab")
	for pos := 0; pos < 3; pos++ {
		if _, ok := e.occ.VehicleAt(ab, pos); !ok {
			t.Errorf("expected a queued vehicle at ab cell %d", pos)
		}
	}
}

func TestSpawnFromOD_Scale(t *testing.T) {
	e := newTestEngine(t, odTestGrid(t), Params{VMax: 5})
	matrix := od.Matrix{"Z1": {"Z2": 240}}
	zones := od.ZoneNodes{"Z1": {Node: "a"}, "Z2": {Node: "c"}}

	report, err := e.SpawnFromOD(matrix, zones, 0.01)
	if err != nil {
		t.Fatalf("SpawnFromOD: %v", err)
	}
	if report.Spawned != 2 {
		t.Errorf("spawned = %d, want round(240 × 0.01) = 2", report.Spawned)
	}
}

func TestSpawnFromOD_FirstEdgeOverflowDropped(t *testing.T) {
	e := newTestEngine(t, odTestGrid(t), Params{VMax: 5})
	// ab has 4 cells; demand asks for 6 vehicles.
	matrix := od.Matrix{"Z1": {"Z2": 6}}
	zones := od.ZoneNodes{"Z1": {Node: "a"}, "Z2": {Node: "c"}}

	report, err := e.SpawnFromOD(matrix, zones, 1)
	if err != nil {
		t.Fatalf("SpawnFromOD: %v", err)
	}
	if report.Spawned != 4 || report.Dropped != 2 {
		t.Errorf("spawned=%d dropped=%d, want 4 and 2", report.Spawned, report.Dropped)
	}
}

// spawned = active + completed holds at every tick of an OD run.
func TestSpawnFromOD_Accounting(t *testing.T) {
	e := newTestEngine(t, odTestGrid(t), Params{VMax: 5, PSlow: 0.1, Seed: 5})
	matrix := od.Matrix{"Z1": {"Z2": 4}}
	zones := od.ZoneNodes{"Z1": {Node: "a"}, "Z2": {Node: "c"}}

	report, err := e.SpawnFromOD(matrix, zones, 1)
	if err != nil {
		t.Fatalf("SpawnFromOD: %v", err)
	}

	for tick := 1; tick <= 80; tick++ {
		if err := e.Step(); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		active := e.ActiveCount()
		completed := e.Stats().CompletedCount()
		if active+completed != report.Spawned {
			t.Fatalf("tick %d: active %d + completed %d != spawned %d",
				tick, active, completed, report.Spawned)
		}
	}
	if e.ActiveCount() != 0 {
		t.Errorf("all trips should finish within 80 ticks, %d still active", e.ActiveCount())
	}
}
