// Land value surface generation using layered simplex noise.
// Values are deterministic from the seed so a regenerated world matches
// a persisted one exactly.
package grid

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	N             int     // Grid size (N×N parcels)
	Seed          int64   // Random seed (0 = random)
	BaseLandValue float64 // Mean parcel value before noise shaping
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		N:             32,
		Seed:          0,
		BaseLandValue: 1000,
	}
}

// Generate creates a grid with an initial land value estimate per parcel.
// Land value follows a multi-octave noise field scaled around the base value,
// so desirable and cheap districts emerge without hand-placement.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	noise := opensimplex.NewNormalized(seed)
	g := New(cfg.N)

	for r := 0; r < cfg.N; r++ {
		for c := 0; c < cfg.N; c++ {
			x := float64(c)
			y := float64(r)
			v := octaveNoise(noise, x, y, 4, 0.08, 0.5)

			p := &g.parcels[r*cfg.N+c]
			// Noise in [0,1] maps to [0.5, 1.5] × base.
			p.LandValue = cfg.BaseLandValue * (0.5 + v)
		}
	}
	return g
}

// octaveNoise samples multi-octave noise for natural-looking variation.
// Each octave doubles frequency and scales amplitude by persistence.
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, baseFreq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	freq := baseFreq

	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}

	return total / maxValue
}
