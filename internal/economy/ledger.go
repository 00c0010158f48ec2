// Package economy provides the city-wide supply/demand ledger and the
// global multipliers derived from it.
package economy

import (
	"github.com/talgya/citygrid/internal/catalog"
)

// Contribution is one operational building's catalog profile plus its
// estimated resident demand. The ledger never sees building identity.
type Contribution struct {
	Type      *catalog.BuildingType
	Residents float64 // housingProvided × housingDensity; 0 for non-housing
}

// Totals holds city-wide supply and demand per resource category.
type Totals struct {
	Supply map[catalog.ResourceCategory]float64 `json:"supply"`
	Demand map[catalog.ResourceCategory]float64 `json:"demand"`
}

// Ratio returns supply over demand for a category with a guarded
// denominator, so zero demand never divides by zero.
func (t Totals) Ratio(cat catalog.ResourceCategory) float64 {
	d := t.Demand[cat]
	if d < 1 {
		d = 1
	}
	return t.Supply[cat] / d
}

// PerResidentDemand scales a housing building's network requirements by
// its estimated resident count. Jobs use a labor participation factor.
type PerResidentDemand map[catalog.ResourceCategory]float64

// DefaultPerResidentDemand mirrors the engine's core-needs scaling.
func DefaultPerResidentDemand() PerResidentDemand {
	return PerResidentDemand{
		catalog.Jobs:       0.6,
		catalog.Food:       1.0,
		catalog.Education:  0.3,
		catalog.Healthcare: 0.2,
	}
}

// Aggregate computes city-wide totals from all operational buildings.
// Supply comes from catalog provision; demand comes from catalog direct
// requirements plus resident-scaled demand for housing. Iteration over the
// canonical category order keeps float accumulation order-independent of
// map layout.
func Aggregate(contribs []Contribution, perResident PerResidentDemand) Totals {
	t := Totals{
		Supply: make(map[catalog.ResourceCategory]float64, len(catalog.ResourceCategories)),
		Demand: make(map[catalog.ResourceCategory]float64, len(catalog.ResourceCategories)),
	}
	for _, cat := range catalog.ResourceCategories {
		t.Supply[cat] = 0
		t.Demand[cat] = 0
	}

	for _, c := range contribs {
		for _, cat := range catalog.ResourceCategories {
			t.Supply[cat] += c.Type.Resources.Provided[cat]
			t.Demand[cat] += c.Type.Resources.Required[cat]
			if c.Residents > 0 {
				t.Demand[cat] += c.Residents * perResident[cat]
			}
		}
		// Every offered job is a worker who needs a home somewhere in
		// the city, so jobs provided feed housing demand.
		t.Demand[catalog.Housing] += c.Type.Resources.Provided[catalog.Jobs]
	}
	return t
}

// GlobalMultiplier maps a supply/demand ratio to a multiplier in (0,1]:
// monotonically increasing in surplus, decreasing in deficit, and
// saturating outside the [floor, 1.0] band. Surplus beyond balance earns
// nothing extra; deficit bottoms out at the floor rather than zero.
func GlobalMultiplier(ratio, floor float64) float64 {
	if ratio >= 1 {
		return 1
	}
	if ratio < floor {
		return floor
	}
	return ratio
}

// Multipliers computes the global multiplier for every category.
func Multipliers(t Totals, floor float64) map[catalog.ResourceCategory]float64 {
	out := make(map[catalog.ResourceCategory]float64, len(catalog.ResourceCategories))
	for _, cat := range catalog.ResourceCategories {
		out[cat] = GlobalMultiplier(t.Ratio(cat), floor)
	}
	return out
}

// WorstMultiplier returns the minimum multiplier across the categories a
// building depends on — the worst-bottleneck rule: a citywide energy
// shortage throttles a fully-staffed factory just as much as a local one.
// Buildings depending on nothing get 1.0.
func WorstMultiplier(multipliers map[catalog.ResourceCategory]float64, depends []catalog.ResourceCategory) float64 {
	worst := 1.0
	for _, cat := range depends {
		if m, ok := multipliers[cat]; ok && m < worst {
			worst = m
		}
	}
	return worst
}

// DensityMultiplier raises housing revenue under citywide housing
// scarcity: demand over supply, clamped to [1, cap]. Non-housing callers
// pass through 1.0 at the engine level.
func DensityMultiplier(t Totals, cap float64) float64 {
	supply := t.Supply[catalog.Housing]
	if supply < 1 {
		supply = 1
	}
	m := t.Demand[catalog.Housing] / supply
	if m < 1 {
		return 1
	}
	if m > cap {
		return cap
	}
	return m
}
