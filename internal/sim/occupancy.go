package sim

import (
	"errors"
	"fmt"

	"github.com/mgiordano/gridlock/internal/roadnet"
)

// ErrCollision reports an attempt to place two vehicles in the same cell.
// It always indicates an engine defect (a decide phase that under-computed
// a gap), never a recoverable traffic condition, so runs halt on it.
var ErrCollision = errors.New("cell collision")

// GapKind tells what bounds a forward gap query.
type GapKind uint8

const (
	// GapToVehicle: another vehicle occupies a cell ahead on the same
	// edge; distance is the number of empty cells between the two.
	GapToVehicle GapKind = iota
	// GapToEdgeEnd: the edge ahead is clear; distance counts the cells
	// up to and including the step across the edge boundary, so a
	// vehicle spending the full gap ends up entering the next edge.
	GapToEdgeEnd
)

// Occupancy is the sparse cell→vehicle index, one map per edge. It must
// agree with every vehicle's (edge, pos) outside the commit phase.
type Occupancy struct {
	grid  *roadnet.CellGrid
	cells []map[int]VehicleID // edge index → occupied cell → vehicle
}

// NewOccupancy returns an empty index over grid.
func NewOccupancy(grid *roadnet.CellGrid) *Occupancy {
	return &Occupancy{
		grid:  grid,
		cells: make([]map[int]VehicleID, grid.NumEdges()),
	}
}

// VehicleAt returns the vehicle occupying (edge, pos), if any.
func (o *Occupancy) VehicleAt(edge, pos int) (VehicleID, bool) {
	id, ok := o.cells[edge][pos]
	return id, ok
}

// Count returns the number of vehicles on edge.
func (o *Occupancy) Count(edge int) int { return len(o.cells[edge]) }

// GapAhead reports how far a vehicle at (edge, pos) can advance. With a
// vehicle ahead the distance is the empty cells between them (minimum 0);
// with a clear edge it is the cells remaining through the edge boundary,
// so braking to the gap treats an impending intersection exactly like an
// obstacle and a routing decision is made before any cell of the next
// edge is claimed.
func (o *Occupancy) GapAhead(edge, pos int) (int, GapKind) {
	nearest := -1
	for p := range o.cells[edge] {
		if p > pos && (nearest < 0 || p < nearest) {
			nearest = p
		}
	}
	if nearest >= 0 {
		return nearest - pos - 1, GapToVehicle
	}
	return o.grid.CellCount(edge) - pos, GapToEdgeEnd
}

// Place claims (edge, pos) for id. Commit phase only.
func (o *Occupancy) Place(edge, pos int, id VehicleID) error {
	if other, taken := o.cells[edge][pos]; taken {
		return fmt.Errorf("%w: edge %q cell %d held by vehicle %d, wanted by %d",
			ErrCollision, o.grid.EdgeID(edge), pos, other, id)
	}
	if o.cells[edge] == nil {
		o.cells[edge] = make(map[int]VehicleID)
	}
	o.cells[edge][pos] = id
	return nil
}

// Remove releases (edge, pos). Commit phase only.
func (o *Occupancy) Remove(edge, pos int) {
	delete(o.cells[edge], pos)
}

// Move relocates id from (edge, pos) to (toEdge, toPos) atomically with
// respect to the index. Commit phase only.
func (o *Occupancy) Move(edge, pos, toEdge, toPos int, id VehicleID) error {
	if edge == toEdge && pos == toPos {
		return nil
	}
	if err := o.Place(toEdge, toPos, id); err != nil {
		return err
	}
	o.Remove(edge, pos)
	return nil
}
