package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/grid"
)

// PerformanceSnapshot is the derived, cached result of one building's
// recompute. Snapshots are recomputed, never hand-edited; the dirty region
// cache decides when. A building under construction always has an empty
// NeedSatisfaction map and zero revenue.
type PerformanceSnapshot struct {
	BuildingID uuid.UUID     `json:"building_id"`
	Loc        grid.Location `json:"loc"`
	TypeID     string        `json:"type_id"`

	NeedSatisfaction map[catalog.ResourceCategory]float64 `json:"need_satisfaction,omitempty"`

	CoreNeeds            float64 `json:"core_needs"`            // floored mean of satisfaction ratios
	LivabilityMultiplier float64 `json:"livability_multiplier"` // ∈ [0.6, 1.4]
	GlobalMultiplier     float64 `json:"global_multiplier"`     // ∈ (0, 1]
	Performance          float64 `json:"performance"`           // core × livability
	ConditionFactor      float64 `json:"condition_factor"`

	Revenue     float64 `json:"revenue"`
	Maintenance float64 `json:"maintenance"`
	RepairCost  float64 `json:"repair_cost"`
	NetIncome   float64 `json:"net_income"`

	UnderConstruction bool    `json:"under_construction"`
	Progress          float64 `json:"progress,omitempty"`
	ComputedTick      uint64  `json:"computed_tick"`
}
