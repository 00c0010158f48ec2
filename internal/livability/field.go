// Package livability computes the spatially-attenuated neighborhood score
// that modulates building performance. Six independent categories; no
// cross-category coupling.
package livability

import (
	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/grid"
)

// Neighbor is a placed building near the target parcel, including any
// building on the target parcel itself.
type Neighbor struct {
	Loc  grid.Location
	Type *catalog.BuildingType
}

// Multiplier bounds.
const (
	MinMultiplier = 0.6
	MaxMultiplier = 1.4
)

// Scores accumulates each category's net effect at a target parcel.
// Every neighbor contributes impact × attenuation(d) where attenuation is
// linear falloff over that building type's own radius for the category:
// max(0, 1 - d/radius), with Chebyshev grid distance.
func Scores(at grid.Location, neighbors []Neighbor) map[catalog.LivabilityCategory]float64 {
	out := make(map[catalog.LivabilityCategory]float64, len(catalog.LivabilityCategories))
	for _, cat := range catalog.LivabilityCategories {
		out[cat] = 0
	}

	for _, n := range neighbors {
		d := grid.Chebyshev(at, n.Loc)
		for _, cat := range catalog.LivabilityCategories {
			eff, ok := n.Type.Livability[cat]
			if !ok || eff.Radius <= 0 || d > eff.Radius {
				continue
			}
			att := 1.0 - float64(d)/float64(eff.Radius)
			if att < 0 {
				att = 0
			}
			out[cat] += eff.Impact * att
		}
	}
	return out
}

// NetScore sums the six category scores in canonical order. Signed and
// unbounded in principle; practically bounded by catalog values and density.
func NetScore(scores map[catalog.LivabilityCategory]float64) float64 {
	total := 0.0
	for _, cat := range catalog.LivabilityCategories {
		total += scores[cat]
	}
	return total
}

// Multiplier converts a net score to the performance multiplier, clamped to
// [0.6, 1.4]. Below the population threshold livability is fixed at 1.0:
// quality of life only matters once a city has residents to care about it.
func Multiplier(netScore float64, population, threshold int) float64 {
	if population <= threshold {
		return 1.0
	}
	m := 1.0 + netScore/100.0*0.4
	if m < MinMultiplier {
		return MinMultiplier
	}
	if m > MaxMultiplier {
		return MaxMultiplier
	}
	return m
}
