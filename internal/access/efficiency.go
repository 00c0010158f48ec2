// Package access computes distance- and efficiency-discounted resource
// supply over the road and transit network.
package access

import (
	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/roads"
)

// roadEfficiency maps road class × resource category to a per-hop
// efficiency in [0,1]. Data-driven so new categories never touch the
// traversal code. Highways excel at bulk flows (goods, energy); local
// streets favor walkable categories; arterials sit in between.
var roadEfficiency = map[roads.RoadType]map[catalog.ResourceCategory]float64{
	roads.RoadLocal: {
		catalog.Jobs:       1.0,
		catalog.Energy:     0.7,
		catalog.Education:  0.95,
		catalog.Food:       0.85,
		catalog.Housing:    1.0,
		catalog.Healthcare: 0.95,
	},
	roads.RoadArterial: {
		catalog.Jobs:       0.9,
		catalog.Energy:     0.85,
		catalog.Education:  0.85,
		catalog.Food:       0.95,
		catalog.Housing:    0.9,
		catalog.Healthcare: 0.9,
	},
	roads.RoadHighway: {
		catalog.Jobs:       0.8,
		catalog.Energy:     1.0,
		catalog.Education:  0.7,
		catalog.Food:       1.0,
		catalog.Housing:    0.8,
		catalog.Healthcare: 0.8,
	},
}

// transitEfficiency maps transit mode × resource category. Subways excel
// at moving people (jobs, education, healthcare) and nothing else; buses
// are a weaker general people-mover.
var transitEfficiency = map[roads.TransitMode]map[catalog.ResourceCategory]float64{
	roads.ModeBus: {
		catalog.Jobs:       0.85,
		catalog.Education:  0.85,
		catalog.Healthcare: 0.8,
	},
	roads.ModeSubway: {
		catalog.Jobs:       1.0,
		catalog.Education:  0.95,
		catalog.Healthcare: 0.9,
	},
}

// RoadEfficiency returns the per-hop efficiency for a road class carrying
// a resource category. Unknown pairs carry nothing.
func RoadEfficiency(t roads.RoadType, cat catalog.ResourceCategory) float64 {
	return roadEfficiency[t][cat]
}

// TransitEfficiency returns the per-hop efficiency for a transit mode
// carrying a resource category.
func TransitEfficiency(m roads.TransitMode, cat catalog.ResourceCategory) float64 {
	return transitEfficiency[m][cat]
}

// DistancePenalty discounts a supplier by graph distance, floored at 10%
// so the farthest still-reachable supplier is never discounted to zero.
// Applied at the call site, not inside traversal.
func DistancePenalty(distance, maxDistance int) float64 {
	if maxDistance <= 0 {
		return 0.1
	}
	p := 1.0 - float64(distance)/float64(maxDistance)
	if p < 0.1 {
		p = 0.1
	}
	return p
}
