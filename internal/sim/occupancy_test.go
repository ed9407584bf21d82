package sim

import (
	"errors"
	"testing"

	"github.com/mgiordano/gridlock/internal/roadnet"
)

func singleEdgeGrid(t *testing.T, cells int) *roadnet.CellGrid {
	t.Helper()
	g, err := roadnet.NewCellGrid(roadnet.NetworkData{
		Nodes: []roadnet.Node{{ID: "a"}, {ID: "b"}},
		Edges: []roadnet.Edge{{ID: "ab", From: "a", To: "b", Length: float64(cells) * 7.5}},
	}, 7.5)
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	return g
}

func TestGapAhead_ToVehicle(t *testing.T) {
	g := singleEdgeGrid(t, 10)
	occ := NewOccupancy(g)

	if err := occ.Place(0, 9, 1); err != nil {
		t.Fatalf("Place: %v", err)
	}
	gap, kind := occ.GapAhead(0, 5)
	if kind != GapToVehicle {
		t.Errorf("kind = %v, want GapToVehicle", kind)
	}
	if gap != 3 {
		t.Errorf("gap = %d, want 3 (cells between 5 and 9)", gap)
	}

	// Bumper to bumper: zero cells between.
	if err := occ.Place(0, 6, 2); err != nil {
		t.Fatalf("Place: %v", err)
	}
	gap, kind = occ.GapAhead(0, 5)
	if kind != GapToVehicle || gap != 0 {
		t.Errorf("gap = %d kind = %v, want 0 GapToVehicle", gap, kind)
	}
}

func TestGapAhead_ToEdgeEnd(t *testing.T) {
	g := singleEdgeGrid(t, 10)
	occ := NewOccupancy(g)

	gap, kind := occ.GapAhead(0, 6)
	if kind != GapToEdgeEnd {
		t.Errorf("kind = %v, want GapToEdgeEnd", kind)
	}
	if gap != 4 {
		t.Errorf("gap = %d, want 4 (spending it crosses the boundary)", gap)
	}

	// A vehicle behind never bounds the gap.
	if err := occ.Place(0, 2, 1); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if gap, kind = occ.GapAhead(0, 6); kind != GapToEdgeEnd || gap != 4 {
		t.Errorf("gap = %d kind = %v, want 4 GapToEdgeEnd", gap, kind)
	}
}

func TestPlace_Collision(t *testing.T) {
	g := singleEdgeGrid(t, 10)
	occ := NewOccupancy(g)

	if err := occ.Place(0, 4, 1); err != nil {
		t.Fatalf("Place: %v", err)
	}
	err := occ.Place(0, 4, 2)
	if !errors.Is(err, ErrCollision) {
		t.Fatalf("double place: err = %v, want ErrCollision", err)
	}
}

func TestMove(t *testing.T) {
	g := singleEdgeGrid(t, 10)
	occ := NewOccupancy(g)

	if err := occ.Place(0, 2, 7); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := occ.Move(0, 2, 0, 5, 7); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, ok := occ.VehicleAt(0, 2); ok {
		t.Error("old cell still occupied after move")
	}
	if id, ok := occ.VehicleAt(0, 5); !ok || id != 7 {
		t.Errorf("VehicleAt(0,5) = %v %v, want 7 true", id, ok)
	}

	// No-op move to the same cell.
	if err := occ.Move(0, 5, 0, 5, 7); err != nil {
		t.Fatalf("self move: %v", err)
	}
	if id, _ := occ.VehicleAt(0, 5); id != 7 {
		t.Error("self move must keep the cell")
	}
}
