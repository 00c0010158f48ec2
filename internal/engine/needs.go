// Per-building performance recompute: core needs, livability, and the
// assembled snapshot.
package engine

import (
	"github.com/talgya/citygrid/internal/access"
	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/economy"
	"github.com/talgya/citygrid/internal/grid"
	"github.com/talgya/citygrid/internal/livability"
)

// networkResolved reports whether a category is satisfied via the road
// network rather than immediate adjacency. Housing resolves its residents'
// jobs, food, education, and healthcare through the network; everything
// else (energy hookups, workers walking from next door) is local.
func networkResolved(bt *catalog.BuildingType, cat catalog.ResourceCategory) bool {
	if !bt.IsHousing() {
		return false
	}
	switch cat {
	case catalog.Jobs, catalog.Food, catalog.Education, catalog.Healthcare:
		return true
	}
	return false
}

// requiredAmount returns how much of a category a building needs. Housing
// network categories scale from the estimated resident count; all other
// requirements come straight from the catalog profile.
func (s *Simulation) requiredAmount(bt *catalog.BuildingType, cat catalog.ResourceCategory) float64 {
	if networkResolved(bt, cat) {
		residents := bt.HousingProvided() * s.tun.HousingDensity
		return residents * s.perResidentDemand()[cat]
	}
	return bt.Resources.Required[cat]
}

// dependsOn lists the categories a building draws on, in canonical order.
// Feeds the worst-bottleneck global multiplier.
func (s *Simulation) dependsOn(bt *catalog.BuildingType) []catalog.ResourceCategory {
	var out []catalog.ResourceCategory
	for _, cat := range catalog.ResourceCategories {
		if s.requiredAmount(bt, cat) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// computeCoreNeeds resolves every required category and averages the
// clamped satisfaction ratios. Local categories sum adjacent provision;
// network categories go through the accessibility engine with the
// distance penalty applied here, at the call site. A building with no
// requirements is fully self-sufficient; nothing is ever fully shut down
// below the minimum-operation floor.
func (s *Simulation) computeCoreNeeds(b *BuildingInstance, bt *catalog.BuildingType) (map[catalog.ResourceCategory]float64, float64) {
	needSat := make(map[catalog.ResourceCategory]float64)
	sum := 0.0
	n := 0

	for _, cat := range catalog.ResourceCategories {
		required := s.requiredAmount(bt, cat)
		if required <= 0 {
			continue
		}

		var supplied float64
		if networkResolved(bt, cat) {
			suppliers := s.Access.FindSuppliers(b.Loc, cat, s.tun.MaxNetworkDistance)
			supplied = access.EffectiveSupply(suppliers, s.tun.MaxNetworkDistance)
		} else {
			supplied = s.adjacentSupply(b.Loc, cat)
		}

		ratio := supplied / required
		if ratio > 1 {
			ratio = 1
		}
		needSat[cat] = ratio
		sum += ratio
		n++
	}

	if n == 0 {
		return needSat, 1.0
	}
	core := sum / float64(n)
	if core < s.tun.CoreNeedsFloor {
		core = s.tun.CoreNeedsFloor
	}
	return needSat, core
}

// adjacentSupply sums provision of the given category from operational
// buildings on the 8 surrounding cells.
func (s *Simulation) adjacentSupply(loc grid.Location, cat catalog.ResourceCategory) float64 {
	total := 0.0
	for _, n := range s.Grid.Neighbors8(loc) {
		total += s.supplyAt(n, cat)
	}
	return total
}

// computeLivability evaluates the attenuated neighbor field at the
// building's parcel and converts it to the bounded multiplier.
func (s *Simulation) computeLivability(loc grid.Location) float64 {
	scanR := s.cat.MaxAnyLivabilityRadius()
	var neighbors []livability.Neighbor
	for _, l := range s.Grid.Within(loc, scanR) {
		b, ok := s.buildings[l]
		if !ok || b.UnderConstruction {
			continue
		}
		bt, err := s.cat.Get(b.TypeID)
		if err != nil {
			continue
		}
		btCopy := bt
		neighbors = append(neighbors, livability.Neighbor{Loc: l, Type: &btCopy})
	}

	scores := livability.Scores(loc, neighbors)
	net := livability.NetScore(scores)
	return livability.Multiplier(net, s.population, s.tun.PopulationThreshold)
}

// refresh recomputes the building's snapshot. Expensive factors (needs,
// livability) recompute only when their dirty flag is set; the economic
// assembly always runs because age, condition, and the global ledger move
// every tick. Caller holds the simulation lock.
func (s *Simulation) refresh(b *BuildingInstance) {
	bt, err := s.cat.Get(b.TypeID)
	if err != nil {
		return
	}

	snap := &PerformanceSnapshot{
		BuildingID:        b.ID,
		Loc:               b.Loc,
		TypeID:            b.TypeID,
		ConditionFactor:   b.Condition,
		UnderConstruction: b.UnderConstruction,
		Progress:          b.Progress,
		ComputedTick:      s.lastTick,
	}

	if b.UnderConstruction {
		// Not operating: no needs, no revenue, no upkeep yet.
		s.snapshots[b.Loc] = snap
		s.dirty.ClearNeeds(b.Loc)
		s.dirty.ClearLivability(b.Loc)
		return
	}

	f, ok := s.factors[b.Loc]
	if !ok {
		f = &cachedFactors{}
		s.factors[b.Loc] = f
	}
	if f.needSat == nil || s.dirty.NeedsDirty(b.Loc) {
		f.needSat, f.coreNeeds = s.computeCoreNeeds(b, &bt)
		s.dirty.ClearNeeds(b.Loc)
	}
	if f.livMult == 0 || s.dirty.LivabilityDirty(b.Loc) {
		f.livMult = s.computeLivability(b.Loc)
		s.dirty.ClearLivability(b.Loc)
	}

	global := economy.WorstMultiplier(s.multipliers, s.dependsOn(&bt))
	density := 1.0
	if bt.IsHousing() {
		density = s.densityMult
	}

	perf := f.coreNeeds * f.livMult
	base := bt.Economics.MaintenanceCost
	maint := Maintenance(base, bt.Economics.DecayRatePercent, b.Age)

	snap.NeedSatisfaction = f.needSat
	snap.CoreNeeds = f.coreNeeds
	snap.LivabilityMultiplier = f.livMult
	snap.GlobalMultiplier = global
	snap.Performance = perf
	snap.Revenue = bt.Economics.MaxRevenue * perf * b.Condition * global * density
	snap.Maintenance = maint
	snap.RepairCost = RepairCost(s.tun.RepairCostFactor, maint, base)
	snap.NetIncome = snap.Revenue - snap.Maintenance

	s.snapshots[b.Loc] = snap
}
