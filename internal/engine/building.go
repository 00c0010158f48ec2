// Building instances and their lifecycle:
// UnderConstruction → Operational ⇄ Repaired → Demolished.
package engine

import (
	"math"

	"github.com/google/uuid"

	"github.com/talgya/citygrid/internal/grid"
)

// BuildingInstance is one placed building. Parcels reference instances by
// ID, never by pointer, so ownership stays acyclic.
type BuildingInstance struct {
	ID      uuid.UUID     `json:"id"`
	TypeID  string        `json:"type_id"`
	Loc     grid.Location `json:"loc"`
	OwnerID string        `json:"owner_id,omitempty"`

	Age       uint64  `json:"age"`       // ticks since completion
	Condition float64 `json:"condition"` // 1 = new, decays toward 0

	UnderConstruction bool    `json:"under_construction"`
	Progress          float64 `json:"progress"` // construction progress in [0,1]
}

// NewBuilding creates a building at the start of construction.
func NewBuilding(typeID string, loc grid.Location, ownerID string) *BuildingInstance {
	return &BuildingInstance{
		ID:                uuid.New(),
		TypeID:            typeID,
		Loc:               loc,
		OwnerID:           ownerID,
		Condition:         1.0,
		UnderConstruction: true,
	}
}

// AdvanceConstruction moves construction forward one tick and reports
// whether the building just completed. Zero construction days completes
// immediately.
func (b *BuildingInstance) AdvanceConstruction(constructionDays int) bool {
	if !b.UnderConstruction {
		return false
	}
	if constructionDays <= 0 {
		b.complete()
		return true
	}
	b.Progress += 1.0 / float64(constructionDays)
	if b.Progress >= 1.0 {
		b.complete()
		return true
	}
	return false
}

// Complete forces completion, e.g. from an authoritative server mutation.
func (b *BuildingInstance) Complete() bool {
	if !b.UnderConstruction {
		return false
	}
	b.complete()
	return true
}

func (b *BuildingInstance) complete() {
	b.UnderConstruction = false
	b.Progress = 1.0
	b.Age = 0
	b.Condition = 1.0
}

// Decay ages the building by one tick. Condition loss scales with the
// type's decay rate; both bounds of [0,1] hold by construction.
func (b *BuildingInstance) Decay(decayRatePercent, scale float64) {
	b.Age++
	b.Condition -= decayRatePercent / 100.0 * scale
	if b.Condition < 0 {
		b.Condition = 0
	}
}

// Repair resets condition to new but leaves age untouched, so maintenance
// immediately recomputes from age alone. The clock is not rewound: repair
// removes accumulated decay penalty, nothing else.
func (b *BuildingInstance) Repair() {
	b.Condition = 1.0
}

// Maintenance returns the compound-growth upkeep for a building of the
// given age: base × (1 + rate/100)^age, exactly. Older under-repaired
// buildings become disproportionately costly.
func Maintenance(base, decayRatePercent float64, age uint64) float64 {
	return base * math.Pow(1.0+decayRatePercent/100.0, float64(age))
}

// RepairCost prices a repair from the gap between current and base
// maintenance.
func RepairCost(factor, currentMaintenance, baseMaintenance float64) float64 {
	cost := factor * (currentMaintenance - baseMaintenance)
	if cost < 0 {
		return 0
	}
	return cost
}
