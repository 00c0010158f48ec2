package engine

import (
	"github.com/talgya/citygrid/internal/grid"
)

// DirtyRegionCache tracks which parcels need recomputation after a
// mutation. Needs and livability invalidate independently because their
// effect radii differ. A parcel not marked dirty keeps its cached factors
// unchanged.
type DirtyRegionCache struct {
	needs      map[grid.Location]bool
	livability map[grid.Location]bool
}

// NewDirtyRegionCache creates an empty cache.
func NewDirtyRegionCache() *DirtyRegionCache {
	return &DirtyRegionCache{
		needs:      make(map[grid.Location]bool),
		livability: make(map[grid.Location]bool),
	}
}

// MarkRegion marks every parcel within buildRadius of center dirty for
// core-needs recompute and every parcel within livRadius dirty for
// livability recompute.
func (d *DirtyRegionCache) MarkRegion(g *grid.Grid, center grid.Location, buildRadius, livRadius int) {
	for _, loc := range g.Within(center, buildRadius) {
		d.needs[loc] = true
	}
	for _, loc := range g.Within(center, livRadius) {
		d.livability[loc] = true
	}
}

// MarkAllLivability marks every parcel with a building dirty for
// livability. Used when the population gate flips, which changes the
// multiplier formula city-wide.
func (d *DirtyRegionCache) MarkAllLivability(locs []grid.Location) {
	for _, loc := range locs {
		d.livability[loc] = true
	}
}

// NeedsDirty reports whether core needs at loc are stale.
func (d *DirtyRegionCache) NeedsDirty(loc grid.Location) bool {
	return d.needs[loc]
}

// LivabilityDirty reports whether livability at loc is stale.
func (d *DirtyRegionCache) LivabilityDirty(loc grid.Location) bool {
	return d.livability[loc]
}

// ClearNeeds marks core needs at loc fresh.
func (d *DirtyRegionCache) ClearNeeds(loc grid.Location) {
	delete(d.needs, loc)
}

// ClearLivability marks livability at loc fresh.
func (d *DirtyRegionCache) ClearLivability(loc grid.Location) {
	delete(d.livability, loc)
}

// Pending returns how many parcels are dirty for either recompute.
func (d *DirtyRegionCache) Pending() int {
	n := len(d.needs)
	for loc := range d.livability {
		if !d.needs[loc] {
			n++
		}
	}
	return n
}
