// Package stats aggregates per-tick simulation observations. It is a pure
// read-side collector: nothing here feeds back into the engine.
package stats

import (
	"sync"

	"github.com/samber/lo"
)

// Trip records one completed fixed-route journey.
type Trip struct {
	Vehicle       int `json:"vehicle_id"`
	OriginStep    int `json:"origin_step"`
	CompletedStep int `json:"completed_step"`
	TravelTime    int `json:"travel_time"` // ticks
}

// Tick is the aggregate view of one committed simulation step.
type Tick struct {
	Step        int            `json:"step"`
	Active      int            `json:"active_vehicles"`
	AvgVelocity float64        `json:"avg_velocity"`
	Throughput  map[string]int `json:"throughput,omitempty"` // edge id → vehicles that left it this tick
	Completed   []Trip         `json:"completed,omitempty"`
}

// Summary condenses a whole run.
type Summary struct {
	Steps          int     `json:"steps"`
	Active         int     `json:"active_vehicles"`
	Spawned        int     `json:"spawned"`
	CompletedTrips int     `json:"completed_trips"`
	AvgVelocity    float64 `json:"avg_velocity"`      // over all ticks
	MeanTravelTime float64 `json:"mean_travel_time"`  // ticks; 0 if no trips
}

// Collector accumulates tick records. It is safe for one writer (the run
// goroutine) and any number of concurrent readers.
type Collector struct {
	mu      sync.RWMutex
	ticks   []Tick
	trips   []Trip
	spawned int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

// AddSpawned notes n vehicles entering the simulation.
func (c *Collector) AddSpawned(n int) {
	c.mu.Lock()
	c.spawned += n
	c.mu.Unlock()
}

// Record appends one committed tick.
func (c *Collector) Record(t Tick) {
	c.mu.Lock()
	c.ticks = append(c.ticks, t)
	c.trips = append(c.trips, t.Completed...)
	c.mu.Unlock()
}

// Ticks returns a copy of all tick records.
func (c *Collector) Ticks() []Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tick, len(c.ticks))
	copy(out, c.ticks)
	return out
}

// Trips returns a copy of all completed-trip records, in completion order.
func (c *Collector) Trips() []Trip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Trip, len(c.trips))
	copy(out, c.trips)
	return out
}

// Last returns the most recent tick record.
func (c *Collector) Last() (Tick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.ticks) == 0 {
		return Tick{}, false
	}
	return c.ticks[len(c.ticks)-1], true
}

// Spawned returns the total number of vehicles ever spawned.
func (c *Collector) Spawned() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.spawned
}

// CompletedCount returns the number of completed trips so far.
func (c *Collector) CompletedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trips)
}

// Summarize condenses the collected series.
func (c *Collector) Summarize() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{
		Steps:          len(c.ticks),
		Spawned:        c.spawned,
		CompletedTrips: len(c.trips),
	}
	if len(c.ticks) > 0 {
		s.Active = c.ticks[len(c.ticks)-1].Active
		s.AvgVelocity = lo.SumBy(c.ticks, func(t Tick) float64 { return t.AvgVelocity }) / float64(len(c.ticks))
	}
	if len(c.trips) > 0 {
		s.MeanTravelTime = float64(lo.SumBy(c.trips, func(t Trip) int { return t.TravelTime })) / float64(len(c.trips))
	}
	return s
}
