package access

import (
	"sort"

	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/grid"
	"github.com/talgya/citygrid/internal/roads"
)

// DefaultMaxDistance bounds supplier searches when the caller passes 0.
const DefaultMaxDistance = 12

// SupplyFunc reports how much of a resource category the building at loc
// currently supplies. Zero means no supplier there.
type SupplyFunc func(loc grid.Location, cat catalog.ResourceCategory) float64

// Supplier is one reachable provider of a resource category.
type Supplier struct {
	Row        int     `json:"row"`
	Col        int     `json:"col"`
	Supply     float64 `json:"supply"`
	Distance   int     `json:"distance"`
	Efficiency float64 `json:"efficiency"` // running product of per-hop efficiencies
	Mode       string  `json:"mode"`       // transport of the final hop
}

// Engine traverses the road network to find suppliers. It holds no mutable
// state of its own: results depend only on the network, the supply function,
// and the arguments.
type Engine struct {
	net      *roads.Network
	supplyAt SupplyFunc
}

// NewEngine creates an accessibility engine over a network.
func NewEngine(net *roads.Network, supplyAt SupplyFunc) *Engine {
	return &Engine{net: net, supplyAt: supplyAt}
}

// reach records the best way a parcel has been reached so far.
type reach struct {
	dist int
	eff  float64
	mode string
}

// FindSuppliers returns every building reachable within maxDistance hops of
// src that supplies cat, with its path efficiency and graph distance.
//
// Hop cost is always 1; path efficiency is the running product of per-hop
// efficiencies, so one poor segment degrades the whole route. Per vertex the
// traversal keeps the best (max) efficiency seen, which makes results
// path-independent and deterministic for a fixed edge set. The distance
// penalty is NOT applied here — callers discount via DistancePenalty.
func (e *Engine) FindSuppliers(src grid.Location, cat catalog.ResourceCategory, maxDistance int) []Supplier {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	border := e.net.AdjacentRoads(src)
	if len(border) == 0 {
		return nil
	}

	type state struct {
		v    roads.Vertex
		eff  float64
		dist int
	}

	bestVert := make(map[roads.Vertex]float64)
	parcels := make(map[grid.Location]reach)

	recordParcel := func(loc grid.Location, dist int, eff float64, mode string) {
		if loc == src {
			return
		}
		prev, seen := parcels[loc]
		if !seen || eff > prev.eff || (eff == prev.eff && dist < prev.dist) {
			parcels[loc] = reach{dist: dist, eff: eff, mode: mode}
		}
	}

	var queue []state

	// The bordering segment is the first hop onto the network.
	for _, s := range border {
		hop := RoadEfficiency(s.Type, cat)
		if hop <= 0 {
			continue
		}
		for _, fl := range roads.FlankingParcels(s.Key) {
			recordParcel(fl, 1, hop, s.Type.Name())
		}
		for _, v := range s.Key.Endpoints() {
			if hop > bestVert[v] {
				bestVert[v] = hop
				queue = append(queue, state{v: v, eff: hop, dist: 1})
			}
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= maxDistance {
			continue
		}
		if cur.eff < bestVert[cur.v] {
			continue // a better path reached this vertex since enqueue
		}

		for _, edge := range e.net.RoadEdges(cur.v) {
			hop := RoadEfficiency(edge.Seg.Type, cat)
			if hop <= 0 {
				continue
			}
			eff := cur.eff * hop
			dist := cur.dist + 1
			for _, fl := range roads.FlankingParcels(edge.Seg.Key) {
				recordParcel(fl, dist, eff, edge.Seg.Type.Name())
			}
			if eff > bestVert[edge.To] {
				bestVert[edge.To] = eff
				queue = append(queue, state{v: edge.To, eff: eff, dist: dist})
			}
		}

		for _, edge := range e.net.TransitEdges(cur.v) {
			hop := TransitEfficiency(edge.Mode, cat)
			if hop <= 0 {
				continue
			}
			eff := cur.eff * hop
			dist := cur.dist + 1
			recordParcel(edge.Stop, dist, eff, edge.Mode.Name())
			if eff > bestVert[edge.To] {
				bestVert[edge.To] = eff
				queue = append(queue, state{v: edge.To, eff: eff, dist: dist})
			}
		}
	}

	var out []Supplier
	for loc, r := range parcels {
		supply := e.supplyAt(loc, cat)
		if supply <= 0 {
			continue
		}
		out = append(out, Supplier{
			Row:        loc.Row,
			Col:        loc.Col,
			Supply:     supply,
			Distance:   r.dist,
			Efficiency: r.eff,
			Mode:       r.mode,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// EffectiveSupply sums supplier capacity discounted by path efficiency and
// the distance penalty. This is the number need satisfaction divides by.
func EffectiveSupply(suppliers []Supplier, maxDistance int) float64 {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	total := 0.0
	for _, s := range suppliers {
		total += s.Supply * s.Efficiency * DistancePenalty(s.Distance, maxDistance)
	}
	return total
}
