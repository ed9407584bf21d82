// Package sim implements the Nagel-Schreckenberg cellular-automaton engine
// over a discretised street network: vehicle state, cell occupancy, the
// two-phase synchronous tick, and vehicle spawning.
package sim

import "sort"

// VehicleID identifies one vehicle for the lifetime of a simulation.
// IDs are assigned monotonically and never reused.
type VehicleID int

// RouteMode discriminates how a vehicle chooses its next edge at an
// intersection.
type RouteMode uint8

const (
	// RouteFree picks uniformly at random among outgoing edges. Free
	// vehicles live forever.
	RouteFree RouteMode = iota
	// RouteFixed follows a precomputed shortest-path route and leaves
	// the simulation when the route is exhausted.
	RouteFixed
)

// Vehicle is one car on the grid. Position and velocity are in cells and
// cells-per-tick. Only the engine's commit phase mutates a Vehicle.
type Vehicle struct {
	ID   VehicleID
	Edge int // edge index in the cell grid
	Pos  int // 0 ≤ Pos < CellCount(Edge)
	Vel  int // 0 ≤ Vel ≤ v_max

	Mode RouteMode
	// Route holds the edges not yet entered, front first. Empty at an
	// edge transition means the destination is reached. Fixed mode only.
	Route []int
	// OriginStep is the clock value at spawn, used for travel times.
	OriginStep int
}

// Registry owns all active vehicles. Iteration order is ascending ID,
// which is what keeps commit-phase tie-breaking deterministic.
type Registry struct {
	byID  map[VehicleID]*Vehicle
	order []*Vehicle // ascending ID
	next  VehicleID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[VehicleID]*Vehicle)}
}

// Create allocates a vehicle with the next free ID and registers it.
func (r *Registry) Create(edge, pos, vel int, mode RouteMode, route []int, originStep int) *Vehicle {
	v := &Vehicle{
		ID:         r.next,
		Edge:       edge,
		Pos:        pos,
		Vel:        vel,
		Mode:       mode,
		Route:      route,
		OriginStep: originStep,
	}
	r.next++
	r.byID[v.ID] = v
	r.order = append(r.order, v) // IDs are monotonic, append keeps order
	return v
}

// Get returns a vehicle by ID, or nil.
func (r *Registry) Get(id VehicleID) *Vehicle { return r.byID[id] }

// Remove unregisters a vehicle (trip completion).
func (r *Registry) Remove(id VehicleID) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	i := sort.Search(len(r.order), func(i int) bool { return r.order[i].ID >= id })
	if i < len(r.order) && r.order[i].ID == id {
		r.order = append(r.order[:i], r.order[i+1:]...)
	}
}

// Len returns the number of active vehicles.
func (r *Registry) Len() int { return len(r.order) }

// Ordered returns the active vehicles in ascending ID order. The slice is
// owned by the registry; callers must not retain it across mutations.
func (r *Registry) Ordered() []*Vehicle { return r.order }
