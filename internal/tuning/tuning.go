// Package tuning loads the engine tunables from YAML. One file, loaded at
// startup; everything the balance team may want to turn lives here.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds all engine constants that are configuration, not code.
type Tuning struct {
	GridN         int     `yaml:"grid_n"`
	Seed          int64   `yaml:"seed"`
	BaseLandValue float64 `yaml:"base_land_value"`

	TickIntervalMs int `yaml:"tick_interval_ms"`
	TicksPerDay    int `yaml:"ticks_per_day"`

	HousingDensity      float64 `yaml:"housing_density"`       // residents per housing unit
	MaxNetworkDistance  int     `yaml:"max_network_distance"`  // supplier search bound (hops)
	PopulationThreshold int     `yaml:"population_threshold"`  // livability gate (residents)
	MultiplierFloor     float64 `yaml:"multiplier_floor"`      // global multiplier saturation floor
	DensityCap          float64 `yaml:"density_cap"`           // housing scarcity rent cap
	CoreNeedsFloor      float64 `yaml:"core_needs_floor"`      // minimum-operation floor
	RepairCostFactor    float64 `yaml:"repair_cost_factor"`    // × (maintenance − base)
	ConditionDecayScale float64 `yaml:"condition_decay_scale"` // per-tick condition loss scale
	RoadDecayPerTick    float64 `yaml:"road_decay_per_tick"`

	DirtyBuildRadius    int `yaml:"dirty_build_radius"`
	LivabilityRadiusCap int `yaml:"livability_radius_cap"`

	PerResidentJobs       float64 `yaml:"per_resident_jobs"` // labor participation
	PerResidentFood       float64 `yaml:"per_resident_food"`
	PerResidentEducation  float64 `yaml:"per_resident_education"`
	PerResidentHealthcare float64 `yaml:"per_resident_healthcare"`

	APIPort int    `yaml:"api_port"`
	DBPath  string `yaml:"db_path"`
}

// Default returns the shipped balance values.
func Default() Tuning {
	return Tuning{
		GridN:          32,
		Seed:           42,
		BaseLandValue:  1000,
		TickIntervalMs: 1000,
		TicksPerDay:    24,

		HousingDensity:      2.0,
		MaxNetworkDistance:  12,
		PopulationThreshold: 100,
		MultiplierFloor:     0.5,
		DensityCap:          1.5,
		CoreNeedsFloor:      0.05,
		RepairCostFactor:    200,
		ConditionDecayScale: 0.001,
		RoadDecayPerTick:    0.0002,

		DirtyBuildRadius:    3,
		LivabilityRadiusCap: 5,

		PerResidentJobs:       0.6,
		PerResidentFood:       1.0,
		PerResidentEducation:  0.3,
		PerResidentHealthcare: 0.2,

		APIPort: 8080,
		DBPath:  "data/citygrid.db",
	}
}

// Load reads tuning from a YAML file, starting from defaults so absent
// keys keep their shipped values.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
