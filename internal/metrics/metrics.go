package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridlock_ticks_committed_total",
		Help: "Total number of fully committed simulation ticks across all runs.",
	})

	VehiclesSpawned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridlock_vehicles_spawned_total",
		Help: "Total number of vehicles placed on the grid.",
	})

	TripsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridlock_trips_completed_total",
		Help: "Total number of fixed-route trips that reached their destination.",
	})

	ODPairsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridlock_od_pairs_skipped_total",
		Help: "Total number of OD pairs skipped because no route exists.",
	})

	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridlock_runs_started_total",
		Help: "Total number of simulation runs started.",
	})

	ActiveVehicles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridlock_active_vehicles",
		Help: "Vehicles currently on the grid, labelled by run ID.",
	}, []string{"run_id"})

	AvgVelocity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridlock_avg_velocity_cells",
		Help: "Average vehicle velocity (cells per tick) of the latest tick, labelled by run ID.",
	}, []string{"run_id"})

	TripTravelTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridlock_trip_travel_time_ticks",
		Help:    "Travel time of completed trips in ticks.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
