package livability

import (
	"math"
	"testing"

	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/grid"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func typeWith(effects map[catalog.LivabilityCategory]catalog.LivabilityEffect) *catalog.BuildingType {
	return &catalog.BuildingType{ID: "t", Category: "leisure", Livability: effects}
}

func TestScoresLinearAttenuation(t *testing.T) {
	park := typeWith(map[catalog.LivabilityCategory]catalog.LivabilityEffect{
		catalog.Environment: {Impact: 12, Radius: 4},
	})
	at := grid.Location{Row: 5, Col: 5}

	cases := []struct {
		loc  grid.Location
		want float64
	}{
		{grid.Location{Row: 5, Col: 5}, 12},      // distance 0, full impact
		{grid.Location{Row: 5, Col: 7}, 6},       // distance 2 of radius 4
		{grid.Location{Row: 8, Col: 8}, 12 * 0.25}, // Chebyshev distance 3
		{grid.Location{Row: 5, Col: 9}, 0},       // at the radius, fully attenuated
		{grid.Location{Row: 0, Col: 0}, 0},       // beyond the radius
	}
	for _, c := range cases {
		scores := Scores(at, []Neighbor{{Loc: c.loc, Type: park}})
		if got := scores[catalog.Environment]; !almost(got, c.want) {
			t.Errorf("neighbor at %v: score = %f, want %f", c.loc, got, c.want)
		}
	}
}

func TestScoresAccumulateSigned(t *testing.T) {
	park := typeWith(map[catalog.LivabilityCategory]catalog.LivabilityEffect{
		catalog.Environment: {Impact: 12, Radius: 4},
	})
	factory := typeWith(map[catalog.LivabilityCategory]catalog.LivabilityEffect{
		catalog.Environment: {Impact: -10, Radius: 4},
		catalog.Noise:       {Impact: -8, Radius: 3},
	})
	at := grid.Location{Row: 5, Col: 5}
	neighbors := []Neighbor{
		{Loc: grid.Location{Row: 5, Col: 6}, Type: park},    // d=1: 12×0.75 = 9
		{Loc: grid.Location{Row: 5, Col: 4}, Type: factory}, // d=1: -10×0.75, noise -8×(2/3)
	}

	scores := Scores(at, neighbors)
	if !almost(scores[catalog.Environment], 9-7.5) {
		t.Errorf("environment = %f, want 1.5", scores[catalog.Environment])
	}
	if !almost(scores[catalog.Noise], -8*(2.0/3.0)) {
		t.Errorf("noise = %f", scores[catalog.Noise])
	}

	net := NetScore(scores)
	if !almost(net, 1.5-8*(2.0/3.0)) {
		t.Errorf("net = %f", net)
	}
}

func TestMultiplierClampAndGate(t *testing.T) {
	// Below the population threshold livability is inert.
	if got := Multiplier(-500, 50, 100); got != 1.0 {
		t.Errorf("gated multiplier = %f, want 1.0", got)
	}
	if got := Multiplier(80, 100, 100); got != 1.0 {
		t.Errorf("multiplier at threshold = %f, want 1.0 (gate is strict)", got)
	}

	// Above the threshold: 1 + net/100 × 0.4, clamped to [0.6, 1.4].
	if got := Multiplier(0, 200, 100); !almost(got, 1.0) {
		t.Errorf("neutral multiplier = %f", got)
	}
	if got := Multiplier(50, 200, 100); !almost(got, 1.2) {
		t.Errorf("multiplier(50) = %f, want 1.2", got)
	}
	if got := Multiplier(-50, 200, 100); !almost(got, 0.8) {
		t.Errorf("multiplier(-50) = %f, want 0.8", got)
	}
	if got := Multiplier(500, 200, 100); got != MaxMultiplier {
		t.Errorf("multiplier(500) = %f, want clamp at %f", got, MaxMultiplier)
	}
	if got := Multiplier(-500, 200, 100); got != MinMultiplier {
		t.Errorf("multiplier(-500) = %f, want clamp at %f", got, MinMultiplier)
	}
}
