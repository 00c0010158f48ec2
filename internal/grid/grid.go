// Package grid provides the N×N parcel grid and spatial primitives.
// Uses (row, col) coordinates with row 0 at the top edge.
package grid

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidLocation reports coordinates outside the grid. Callers get an
// explicit error rather than a silently clamped location.
var ErrInvalidLocation = errors.New("location out of bounds")

// Location addresses a parcel by row and column.
type Location struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String returns "(row,col)".
func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.Row, l.Col)
}

// Chebyshev returns the chessboard distance between two locations: the number
// of king moves, so diagonal neighbors are distance 1.
func Chebyshev(a, b Location) int {
	dr := a.Row - b.Row
	if dr < 0 {
		dr = -dr
	}
	dc := a.Col - b.Col
	if dc < 0 {
		dc = -dc
	}
	if dc > dr {
		return dc
	}
	return dr
}

// Parcel is a single cell of the city grid. It stores ownership and land
// value; any building on it is referenced by ID, never by pointer.
type Parcel struct {
	Loc        Location   `json:"loc"`
	BuildingID *uuid.UUID `json:"building_id,omitempty"`
	OwnerID    string     `json:"owner_id,omitempty"`
	PaidPrice  float64    `json:"paid_price"`
	LandValue  float64    `json:"land_value"`
}

// Grid holds the complete N×N parcel array. Parcels are created at world
// init and mutated in place; they are never destroyed.
type Grid struct {
	N       int `json:"n"`
	parcels []Parcel
}

// New creates a grid of n×n empty parcels.
func New(n int) *Grid {
	g := &Grid{N: n, parcels: make([]Parcel, n*n)}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			g.parcels[r*n+c].Loc = Location{Row: r, Col: c}
		}
	}
	return g
}

// InBounds reports whether the location lies on the grid.
func (g *Grid) InBounds(loc Location) bool {
	return loc.Row >= 0 && loc.Row < g.N && loc.Col >= 0 && loc.Col < g.N
}

// Parcel returns the parcel at loc, or ErrInvalidLocation when out of bounds.
func (g *Grid) Parcel(loc Location) (*Parcel, error) {
	if !g.InBounds(loc) {
		return nil, fmt.Errorf("parcel %s: %w", loc, ErrInvalidLocation)
	}
	return &g.parcels[loc.Row*g.N+loc.Col], nil
}

// Neighbors4 returns the in-bounds cardinal neighbors of loc in N, S, W, E
// order. The fixed order keeps traversals deterministic.
func (g *Grid) Neighbors4(loc Location) []Location {
	dirs := [4]Location{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	out := make([]Location, 0, 4)
	for _, d := range dirs {
		n := Location{Row: loc.Row + d.Row, Col: loc.Col + d.Col}
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Neighbors8 returns the in-bounds Moore neighbors of loc, scanned row-major.
func (g *Grid) Neighbors8(loc Location) []Location {
	out := make([]Location, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Location{Row: loc.Row + dr, Col: loc.Col + dc}
			if g.InBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// Within returns all in-bounds locations with Chebyshev distance ≤ radius
// from center, scanned row-major. Includes center itself.
func (g *Grid) Within(center Location, radius int) []Location {
	out := make([]Location, 0, (2*radius+1)*(2*radius+1))
	for r := center.Row - radius; r <= center.Row+radius; r++ {
		for c := center.Col - radius; c <= center.Col+radius; c++ {
			loc := Location{Row: r, Col: c}
			if g.InBounds(loc) {
				out = append(out, loc)
			}
		}
	}
	return out
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(n=%d, parcels=%d)", g.N, len(g.parcels))
}
