package config

// Config is the top-level YAML structure.
type Config struct {
	Sim   SimConf   `yaml:"sim"`
	Spawn SpawnConf `yaml:"spawn"`
	Run   RunConf   `yaml:"run"`
}

// SimConf holds the Nagel-Schreckenberg model parameters.
type SimConf struct {
	CellLengthM   float64 `yaml:"cell_length_m"` // > 0; 7.5 ≈ one car
	VMax          int     `yaml:"v_max"`         // cells per tick, ≥ 0
	PSlow         float64 `yaml:"p_slow"`        // random slow-down probability, [0,1]
	Seed          uint64  `yaml:"seed"`
	DecideWorkers int     `yaml:"decide_workers"`
}

// SpawnConf selects exactly one of the two initialisation modes.
type SpawnConf struct {
	Mode    string  `yaml:"mode"`    // "density" or "od"
	Density float64 `yaml:"density"` // fraction of cells occupied, [0,1]

	// OD mode inputs.
	ODMatrix string  `yaml:"od_matrix"` // path to demand matrix JSON
	Zones    string  `yaml:"zones"`     // path to zone → node JSON
	Scale    float64 `yaml:"scale"`     // demand → vehicle count factor
}

// RunConf controls how long and how verbosely a run executes.
type RunConf struct {
	Steps         int `yaml:"steps"`
	SnapshotEvery int `yaml:"snapshot_every"` // 0 disables per-tick snapshots
}

// Spawn mode names.
const (
	ModeDensity = "density"
	ModeOD      = "od"
)
