package stats

import "testing"

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.AddSpawned(5)
	c.Record(Tick{Step: 1, Active: 5, AvgVelocity: 2})
	c.Record(Tick{Step: 2, Active: 4, AvgVelocity: 4, Completed: []Trip{
		{Vehicle: 3, OriginStep: 0, CompletedStep: 2, TravelTime: 2},
	}})

	if got := c.CompletedCount(); got != 1 {
		t.Errorf("CompletedCount = %d, want 1", got)
	}
	if got := c.Spawned(); got != 5 {
		t.Errorf("Spawned = %d, want 5", got)
	}
	last, ok := c.Last()
	if !ok || last.Step != 2 {
		t.Errorf("Last = %+v %v, want step 2", last, ok)
	}

	s := c.Summarize()
	if s.Steps != 2 || s.Active != 4 || s.Spawned != 5 || s.CompletedTrips != 1 {
		t.Errorf("Summarize = %+v", s)
	}
	if s.AvgVelocity != 3 {
		t.Errorf("AvgVelocity = %g, want mean(2,4) = 3", s.AvgVelocity)
	}
	if s.MeanTravelTime != 2 {
		t.Errorf("MeanTravelTime = %g, want 2", s.MeanTravelTime)
	}
}

func TestCollector_Empty(t *testing.T) {
	c := NewCollector()
	if _, ok := c.Last(); ok {
		t.Error("Last on empty collector must report false")
	}
	s := c.Summarize()
	if s.Steps != 0 || s.AvgVelocity != 0 || s.MeanTravelTime != 0 {
		t.Errorf("Summarize on empty = %+v", s)
	}
}
