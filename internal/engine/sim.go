// Simulation ties the grid, road network, and performance engines together
// and owns all mutable city state.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/citygrid/internal/access"
	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/economy"
	"github.com/talgya/citygrid/internal/grid"
	"github.com/talgya/citygrid/internal/roads"
	"github.com/talgya/citygrid/internal/tuning"
)

// Event is a notable occurrence in the city.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "building", "road", "economy"
}

// RoadOp selects a road mutation.
type RoadOp uint8

const (
	RoadAdd RoadOp = iota
	RoadRemove
)

// BuildingOp selects a building mutation.
type BuildingOp uint8

const (
	BuildingPlace BuildingOp = iota
	BuildingDemolish
	BuildingComplete
	BuildingRepair
)

// cachedFactors are the expensive per-building results that survive between
// ticks until the dirty region cache invalidates them.
type cachedFactors struct {
	needSat   map[catalog.ResourceCategory]float64
	coreNeeds float64
	livMult   float64
}

// Simulation holds the complete city state. All exported methods serialize
// through one mutex: mutations apply atomically before the next recompute
// pass, and the engine never observes a half-applied mutation.
type Simulation struct {
	mu sync.RWMutex

	tun tuning.Tuning
	cat *catalog.Catalog

	Grid   *grid.Grid
	Net    *roads.Network
	Access *access.Engine

	buildings map[grid.Location]*BuildingInstance
	byID      map[uuid.UUID]grid.Location

	factors   map[grid.Location]*cachedFactors
	snapshots map[grid.Location]*PerformanceSnapshot
	dirty     *DirtyRegionCache

	totals      economy.Totals
	multipliers map[catalog.ResourceCategory]float64
	densityMult float64
	population  int
	popGateOpen bool

	Events   []Event
	lastTick uint64
}

// NewSimulation creates a simulation over a prepared grid and catalog.
func NewSimulation(tun tuning.Tuning, cat *catalog.Catalog, g *grid.Grid) *Simulation {
	s := &Simulation{
		tun:         tun,
		cat:         cat,
		Grid:        g,
		Net:         roads.NewNetwork(g.N),
		buildings:   make(map[grid.Location]*BuildingInstance),
		byID:        make(map[uuid.UUID]grid.Location),
		factors:     make(map[grid.Location]*cachedFactors),
		snapshots:   make(map[grid.Location]*PerformanceSnapshot),
		dirty:       NewDirtyRegionCache(),
		densityMult: 1.0,
	}
	s.Access = access.NewEngine(s.Net, s.supplyAt)
	s.aggregate()
	return s
}

// Restore installs persisted state into a fresh simulation: buildings,
// road segments, transit routes, and the tick counter. Everything is
// marked dirty so the first pass recomputes all snapshots.
func (s *Simulation) Restore(buildings []*BuildingInstance, segments []*roads.RoadSegment, routes []*roads.TransitRoute, tick uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick
	for _, seg := range segments {
		if err := s.Net.AddSegment(seg.Key, seg.Type, seg.BuiltAt); err != nil {
			return fmt.Errorf("restore segment: %w", err)
		}
		restored := s.Net.Segment(seg.Key)
		restored.Condition = seg.Condition
		restored.TrafficLoad = seg.TrafficLoad
	}
	for _, r := range routes {
		s.Net.AddRoute(r)
	}
	for _, b := range buildings {
		parcel, err := s.Grid.Parcel(b.Loc)
		if err != nil {
			return fmt.Errorf("restore building: %w", err)
		}
		s.buildings[b.Loc] = b
		s.byID[b.ID] = b.Loc
		id := b.ID
		parcel.BuildingID = &id
		parcel.OwnerID = b.OwnerID
		s.markMutation(b.Loc)
	}
	s.aggregate()
	return nil
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// Tuning returns the simulation tunables.
func (s *Simulation) Tuning() tuning.Tuning { return s.tun }

// Catalog returns the loaded building catalog.
func (s *Simulation) Catalog() *catalog.Catalog { return s.cat }

// Population returns the estimated city-wide resident count.
func (s *Simulation) Population() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.population
}

// Totals returns the city-wide supply/demand ledger from the last pass.
func (s *Simulation) Totals() economy.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// Multipliers returns the per-category global multipliers from the last
// aggregation pass.
func (s *Simulation) Multipliers() map[catalog.ResourceCategory]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[catalog.ResourceCategory]float64, len(s.multipliers))
	for k, v := range s.multipliers {
		out[k] = v
	}
	return out
}

// DensityMultiplier returns the housing scarcity rent multiplier.
func (s *Simulation) DensityMultiplier() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.densityMult
}

// Buildings returns all building instances sorted by location.
func (s *Simulation) Buildings() []*BuildingInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedBuildings()
}

func (s *Simulation) sortedBuildings() []*BuildingInstance {
	out := make([]*BuildingInstance, 0, len(s.buildings))
	for _, b := range s.buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Loc.Row != out[j].Loc.Row {
			return out[i].Loc.Row < out[j].Loc.Row
		}
		return out[i].Loc.Col < out[j].Loc.Col
	})
	return out
}

// BuildingAt returns the building on a parcel, or nil.
func (s *Simulation) BuildingAt(loc grid.Location) *BuildingInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buildings[loc]
}

// ── Mutations ─────────────────────────────────────────────────────────

// ApplyRoadChange adds or removes a road segment. Out-of-bounds segments
// are an explicit error; removing a missing segment is a tolerated no-op.
func (s *Simulation) ApplyRoadChange(key roads.EdgeKey, t roads.RoadType, op RoadOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case RoadAdd:
		if err := s.Net.AddSegment(key, t, s.lastTick); err != nil {
			return err
		}
		s.record("road", fmt.Sprintf("%s road built at (%d,%d)", t.Name(), key.Row, key.Col))
	case RoadRemove:
		if !s.Net.RemoveSegment(key) {
			slog.Warn("road remove on missing segment", "row", key.Row, "col", key.Col)
			return nil
		}
		s.record("road", fmt.Sprintf("road removed at (%d,%d)", key.Row, key.Col))
	}

	for _, fl := range roads.FlankingParcels(key) {
		if s.Grid.InBounds(fl) {
			s.markMutation(fl)
		}
	}
	return nil
}

// AddTransitRoute registers a transit overlay route.
func (s *Simulation) AddTransitRoute(r *roads.TransitRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Net.AddRoute(r)
	for _, stop := range r.Stops {
		if s.Grid.InBounds(stop) {
			s.markMutation(stop)
		}
	}
	s.record("road", fmt.Sprintf("%s route %s opened with %d stops", r.Mode.Name(), r.ID, len(r.Stops)))
}

// RemoveTransitRoute removes a transit route. Missing routes are a no-op.
func (s *Simulation) RemoveTransitRoute(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.routeByID(id); ok && s.Net.RemoveRoute(id) {
		for _, stop := range r.Stops {
			if s.Grid.InBounds(stop) {
				s.markMutation(stop)
			}
		}
		s.record("road", fmt.Sprintf("route %s closed", id))
	}
}

func (s *Simulation) routeByID(id string) (*roads.TransitRoute, bool) {
	for _, r := range s.Net.Routes() {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// ApplyBuilding applies a building mutation at loc. typeID and ownerID are
// only read for BuildingPlace. Unknown building types are a logged no-op
// at runtime (the catalog already validated at load); malformed mutations
// (demolishing an empty parcel, repairing nothing) are tolerated no-ops.
func (s *Simulation) ApplyBuilding(loc grid.Location, op BuildingOp, typeID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parcel, err := s.Grid.Parcel(loc)
	if err != nil {
		return err
	}

	switch op {
	case BuildingPlace:
		if parcel.BuildingID != nil {
			slog.Warn("place on occupied parcel", "loc", loc.String())
			return nil
		}
		bt, err := s.cat.Get(typeID)
		if err != nil {
			slog.Warn("place with unknown building type", "type", typeID, "loc", loc.String())
			return nil
		}
		b := NewBuilding(typeID, loc, ownerID)
		s.buildings[loc] = b
		s.byID[b.ID] = loc
		id := b.ID
		parcel.BuildingID = &id
		parcel.OwnerID = ownerID
		s.record("building", fmt.Sprintf("%s under construction at %s", bt.ID, loc))

	case BuildingDemolish:
		b, ok := s.buildings[loc]
		if !ok {
			slog.Warn("demolish on empty parcel", "loc", loc.String())
			return nil
		}
		delete(s.buildings, loc)
		delete(s.byID, b.ID)
		delete(s.factors, loc)
		delete(s.snapshots, loc)
		parcel.BuildingID = nil
		s.record("building", fmt.Sprintf("%s demolished at %s", b.TypeID, loc))

	case BuildingComplete:
		b, ok := s.buildings[loc]
		if !ok || !b.Complete() {
			return nil
		}
		s.record("building", fmt.Sprintf("%s completed at %s", b.TypeID, loc))

	case BuildingRepair:
		b, ok := s.buildings[loc]
		if !ok || b.UnderConstruction {
			return nil
		}
		b.Repair()
		s.record("building", fmt.Sprintf("%s repaired at %s", b.TypeID, loc))
	}

	s.markMutation(loc)
	return nil
}

// markMutation marks the dirty region around a mutated parcel: radius
// R_build for core needs and the catalog's max attenuation radius (capped)
// for livability.
func (s *Simulation) markMutation(center grid.Location) {
	livR := s.cat.MaxAnyLivabilityRadius()
	if livR > s.tun.LivabilityRadiusCap {
		livR = s.tun.LivabilityRadiusCap
	}
	s.dirty.MarkRegion(s.Grid, center, s.tun.DirtyBuildRadius, livR)
}

func (s *Simulation) record(category, description string) {
	s.Events = append(s.Events, Event{
		Tick:        s.lastTick,
		Description: description,
		Category:    category,
	})
}

// ── Tick ──────────────────────────────────────────────────────────────

// AdvanceTick runs one full engine pass: building lifecycle, road wear,
// city-wide aggregation, then recompute of dirty buildings. Buildings are
// always visited in location order so float accumulation is reproducible.
func (s *Simulation) AdvanceTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick++
	ordered := s.sortedBuildings()

	// Lifecycle: construction progress, then aging and decay.
	for _, b := range ordered {
		bt, err := s.cat.Get(b.TypeID)
		if err != nil {
			continue
		}
		if b.UnderConstruction {
			if b.AdvanceConstruction(bt.Economics.ConstructionDays) {
				s.record("building", fmt.Sprintf("%s completed at %s", b.TypeID, b.Loc))
				// A building coming online changes supply in its region.
				s.markMutation(b.Loc)
			}
			continue
		}
		b.Decay(bt.Economics.DecayRatePercent, s.tun.ConditionDecayScale)
		// Operational buildings generate trips on their bordering segments.
		s.Net.AddTraffic(b.Loc, 1)
	}

	s.Net.DecayConditions(s.tun.RoadDecayPerTick)
	s.aggregate()

	// Recompute pass: expensive factors only where dirty, cheap economic
	// assembly for everyone (age and condition move every tick).
	for _, b := range ordered {
		s.refresh(b)
	}

	// Trim old events to prevent unbounded growth (keep last 1000).
	if len(s.Events) > 1000 {
		s.Events = s.Events[len(s.Events)-1000:]
	}
}

// aggregate rebuilds the city-wide ledger, global multipliers, density
// multiplier, and population estimate. O(buildings), run once per tick and
// after structural mutations via the tick boundary.
func (s *Simulation) aggregate() {
	ordered := s.sortedBuildings()
	contribs := make([]economy.Contribution, 0, len(ordered))
	pop := 0.0

	for _, b := range ordered {
		if b.UnderConstruction {
			continue
		}
		bt, err := s.cat.Get(b.TypeID)
		if err != nil {
			continue
		}
		residents := 0.0
		if bt.IsHousing() {
			residents = bt.HousingProvided() * s.tun.HousingDensity
			pop += residents
		}
		btCopy := bt
		contribs = append(contribs, economy.Contribution{Type: &btCopy, Residents: residents})
	}

	s.totals = economy.Aggregate(contribs, s.perResidentDemand())
	s.multipliers = economy.Multipliers(s.totals, s.tun.MultiplierFloor)
	s.densityMult = economy.DensityMultiplier(s.totals, s.tun.DensityCap)
	s.population = int(pop)

	gateOpen := s.population > s.tun.PopulationThreshold
	if gateOpen != s.popGateOpen {
		// The livability formula changes city-wide when the gate flips.
		locs := make([]grid.Location, 0, len(s.buildings))
		for loc := range s.buildings {
			locs = append(locs, loc)
		}
		s.dirty.MarkAllLivability(locs)
		s.popGateOpen = gateOpen
	}
}

func (s *Simulation) perResidentDemand() economy.PerResidentDemand {
	return economy.PerResidentDemand{
		catalog.Jobs:       s.tun.PerResidentJobs,
		catalog.Food:       s.tun.PerResidentFood,
		catalog.Education:  s.tun.PerResidentEducation,
		catalog.Healthcare: s.tun.PerResidentHealthcare,
	}
}

// ── Queries ───────────────────────────────────────────────────────────

// Snapshot returns the performance snapshot for the building at loc, or
// nil when the parcel is empty. Dirty buildings are recomputed on read;
// clean buildings return the cached snapshot unchanged.
func (s *Simulation) Snapshot(loc grid.Location) *PerformanceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buildings[loc]
	if !ok {
		return nil
	}
	if s.dirty.NeedsDirty(loc) || s.dirty.LivabilityDirty(loc) || s.snapshots[loc] == nil {
		s.refresh(b)
	}
	return s.snapshots[loc]
}

// Snapshots returns all cached snapshots sorted by location, refreshing
// dirty entries first.
func (s *Simulation) Snapshots() []*PerformanceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := s.sortedBuildings()
	out := make([]*PerformanceSnapshot, 0, len(ordered))
	for _, b := range ordered {
		if s.dirty.NeedsDirty(b.Loc) || s.dirty.LivabilityDirty(b.Loc) || s.snapshots[b.Loc] == nil {
			s.refresh(b)
		}
		out = append(out, s.snapshots[b.Loc])
	}
	return out
}

// QueryConnectivity answers a road connectivity query between two parcels.
// Total over the grid: out-of-bounds locations report not connected.
func (s *Simulation) QueryConnectivity(a, b grid.Location) roads.ConnectivityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Net.Connected(a, b)
}

// QueryAccessibility lists reachable suppliers of a resource category for
// UI tooltips and placement checks.
func (s *Simulation) QueryAccessibility(loc grid.Location, cat catalog.ResourceCategory, maxDistance int) []access.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxDistance <= 0 {
		maxDistance = s.tun.MaxNetworkDistance
	}
	return s.Access.FindSuppliers(loc, cat, maxDistance)
}

// supplyAt feeds the accessibility engine: operational buildings supply
// what their catalog entry provides.
func (s *Simulation) supplyAt(loc grid.Location, cat catalog.ResourceCategory) float64 {
	b, ok := s.buildings[loc]
	if !ok || b.UnderConstruction {
		return 0
	}
	bt, err := s.cat.Get(b.TypeID)
	if err != nil {
		return 0
	}
	return bt.Resources.Provided[cat]
}
