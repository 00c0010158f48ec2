package roads

import (
	"fmt"
	"sort"

	"github.com/talgya/citygrid/internal/grid"
)

// Vertex is an exported grid intersection, used by traversal callers.
type Vertex struct {
	Row, Col int
}

// Endpoints returns the two vertices a segment spans.
func (k EdgeKey) Endpoints() [2]Vertex {
	if k.Orient == Horizontal {
		return [2]Vertex{{k.Row, k.Col}, {k.Row, k.Col + 1}}
	}
	return [2]Vertex{{k.Row, k.Col}, {k.Row + 1, k.Col}}
}

// FlankingParcels returns the two parcels on either side of a segment.
// Either may be out of bounds on border edges; callers must filter.
func FlankingParcels(k EdgeKey) [2]grid.Location {
	if k.Orient == Horizontal {
		return [2]grid.Location{
			{Row: k.Row - 1, Col: k.Col}, // above
			{Row: k.Row, Col: k.Col},     // below
		}
	}
	return [2]grid.Location{
		{Row: k.Row, Col: k.Col - 1}, // left
		{Row: k.Row, Col: k.Col},     // right
	}
}

// GraphEdge is one traversable road hop out of a vertex.
type GraphEdge struct {
	To  Vertex
	Seg *RoadSegment
}

// TransitEdge is one traversable transit hop between stop parcels.
type TransitEdge struct {
	To    Vertex
	Stop  grid.Location // destination stop parcel
	Mode  TransitMode
	Route *TransitRoute
}

// ConnectivityResult reports whether two parcels are road-connected and the
// worst road class on the discovered path.
type ConnectivityResult struct {
	Connected  bool     `json:"connected"`
	Bottleneck RoadType `json:"-"`
	Hops       int      `json:"hops"`
}

// Network owns all road segments and transit routes and answers
// connectivity queries. The adjacency graph is rebuilt lazily: every
// mutation bumps a monotonic version counter, and a query rebuilds only
// when the built graph is stale.
type Network struct {
	n        int
	segments map[EdgeKey]*RoadSegment
	routes   map[string]*TransitRoute

	version      uint64
	builtVersion uint64 // 0 = never built
	adj          map[Vertex][]GraphEdge
	transitAdj   map[Vertex][]TransitEdge
}

// NewNetwork creates an empty network over an n×n parcel grid.
func NewNetwork(n int) *Network {
	return &Network{
		n:        n,
		segments: make(map[EdgeKey]*RoadSegment),
		routes:   make(map[string]*TransitRoute),
	}
}

// Version returns the monotonic mutation counter.
func (nw *Network) Version() uint64 {
	return nw.version
}

// AddSegment builds or upgrades a road segment. Adding over an existing
// segment replaces its type and resets condition (a rebuild).
func (nw *Network) AddSegment(key EdgeKey, t RoadType, tick uint64) error {
	if !validEdge(key, nw.n) {
		return fmt.Errorf("road segment %v: %w", key, grid.ErrInvalidLocation)
	}
	nw.segments[key] = &RoadSegment{
		Key:       key,
		Type:      t,
		Condition: 1.0,
		BuiltAt:   tick,
	}
	nw.version++
	return nil
}

// RemoveSegment deletes a segment. Removing a nonexistent segment is a
// no-op, not an error: collaborator-layer races are expected.
func (nw *Network) RemoveSegment(key EdgeKey) bool {
	if _, ok := nw.segments[key]; !ok {
		return false
	}
	delete(nw.segments, key)
	nw.version++
	return true
}

// Segment returns the segment at key, or nil.
func (nw *Network) Segment(key EdgeKey) *RoadSegment {
	return nw.segments[key]
}

// Segments returns all segments sorted by (row, col, orientation).
func (nw *Network) Segments() []*RoadSegment {
	out := make([]*RoadSegment, 0, len(nw.segments))
	for _, s := range nw.segments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Orient < b.Orient
	})
	return out
}

// AddRoute registers a transit route, replacing any route with the same ID.
func (nw *Network) AddRoute(r *TransitRoute) {
	nw.routes[r.ID] = r
	nw.version++
}

// RemoveRoute deletes a transit route by ID. Missing routes are a no-op.
func (nw *Network) RemoveRoute(id string) bool {
	if _, ok := nw.routes[id]; !ok {
		return false
	}
	delete(nw.routes, id)
	nw.version++
	return true
}

// Routes returns all transit routes sorted by ID.
func (nw *Network) Routes() []*TransitRoute {
	out := make([]*TransitRoute, 0, len(nw.routes))
	for _, r := range nw.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// rebuild reconstructs the adjacency graph from the current segment and
// route sets. Iteration over sorted segments keeps neighbor order stable,
// which in turn keeps BFS discovery order deterministic.
func (nw *Network) rebuild() {
	if nw.builtVersion == nw.version && nw.adj != nil {
		return
	}

	adj := make(map[Vertex][]GraphEdge, len(nw.segments)*2)
	for _, s := range nw.Segments() {
		ep := s.Key.Endpoints()
		adj[ep[0]] = append(adj[ep[0]], GraphEdge{To: ep[1], Seg: s})
		adj[ep[1]] = append(adj[ep[1]], GraphEdge{To: ep[0], Seg: s})
	}

	transit := make(map[Vertex][]TransitEdge)
	for _, r := range nw.Routes() {
		for i := 0; i+1 < len(r.Stops); i++ {
			sa, sb := r.Stops[i], r.Stops[i+1]
			a := parcelCorners(sa)
			b := parcelCorners(sb)
			for _, va := range a {
				for _, vb := range b {
					transit[va] = append(transit[va], TransitEdge{To: vb, Stop: sb, Mode: r.Mode, Route: r})
					transit[vb] = append(transit[vb], TransitEdge{To: va, Stop: sa, Mode: r.Mode, Route: r})
				}
			}
		}
	}

	nw.adj = adj
	nw.transitAdj = transit
	nw.builtVersion = nw.version
}

// parcelCorners returns the four corner vertices of a parcel in
// TL, TR, BL, BR order.
func parcelCorners(loc grid.Location) [4]Vertex {
	return [4]Vertex{
		{loc.Row, loc.Col},
		{loc.Row, loc.Col + 1},
		{loc.Row + 1, loc.Col},
		{loc.Row + 1, loc.Col + 1},
	}
}

// RoadEdges returns the road hops out of a vertex.
func (nw *Network) RoadEdges(v Vertex) []GraphEdge {
	nw.rebuild()
	return nw.adj[v]
}

// TransitEdges returns the transit hops out of a vertex.
func (nw *Network) TransitEdges(v Vertex) []TransitEdge {
	nw.rebuild()
	return nw.transitAdj[v]
}

// AdjacentRoads returns the up-to-four segments bordering a parcel in
// top, bottom, left, right order. Out-of-bounds locations yield nil.
func (nw *Network) AdjacentRoads(loc grid.Location) []*RoadSegment {
	if loc.Row < 0 || loc.Row >= nw.n || loc.Col < 0 || loc.Col >= nw.n {
		return nil
	}
	var out []*RoadSegment
	for _, k := range parcelEdges(loc) {
		if s, ok := nw.segments[k]; ok {
			out = append(out, s)
		}
	}
	return out
}

// HasRoadAccess reports whether any of the parcel's four bordering edges
// carries a segment. Out-of-bounds locations have no access.
func (nw *Network) HasRoadAccess(loc grid.Location) bool {
	return len(nw.AdjacentRoads(loc)) > 0
}

// Connected runs a breadth-first traversal from a toward b and reports the
// worst (lowest-capacity) road type along the discovered path — the
// bottleneck principle: one local street constrains a route regardless of
// surrounding highways. Ties between equal-bottleneck paths resolve to
// FIFO discovery order; callers may rely only on the bottleneck class.
// Out-of-bounds locations report not connected, never an error.
func (nw *Network) Connected(a, b grid.Location) ConnectivityResult {
	aSegs := nw.AdjacentRoads(a)
	bSegs := nw.AdjacentRoads(b)
	if len(aSegs) == 0 || len(bSegs) == 0 {
		return ConnectivityResult{}
	}
	nw.rebuild()

	// Arrival set: corner vertices of b's bordering segments.
	targets := make(map[Vertex]bool, len(bSegs)*2)
	for _, s := range bSegs {
		for _, v := range s.Key.Endpoints() {
			targets[v] = true
		}
	}

	type state struct {
		v          Vertex
		bottleneck RoadType
		hops       int
	}

	visited := make(map[Vertex]bool)
	var queue []state
	// The bordering segment is the first hop onto the network.
	for _, s := range aSegs {
		for _, v := range s.Key.Endpoints() {
			if visited[v] {
				continue
			}
			visited[v] = true
			queue = append(queue, state{v: v, bottleneck: s.Type, hops: 1})
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if targets[cur.v] {
			return ConnectivityResult{Connected: true, Bottleneck: cur.bottleneck, Hops: cur.hops}
		}

		for _, e := range nw.adj[cur.v] {
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			bn := cur.bottleneck
			if e.Seg.Type < bn {
				bn = e.Seg.Type
			}
			queue = append(queue, state{v: e.To, bottleneck: bn, hops: cur.hops + 1})
		}
	}

	return ConnectivityResult{}
}

// AccessibilityScore rates a parcel 0–100 for UI and placement hints:
// 25 points per bordering segment plus up to 25 bonus points scaled by the
// fraction of cardinal neighbors that themselves have road access.
// Not consulted by the performance engine.
func (nw *Network) AccessibilityScore(loc grid.Location) int {
	segs := nw.AdjacentRoads(loc)
	if len(segs) == 0 {
		return 0
	}

	score := 25 * len(segs)

	neighbors := [4]grid.Location{
		{Row: loc.Row - 1, Col: loc.Col},
		{Row: loc.Row + 1, Col: loc.Col},
		{Row: loc.Row, Col: loc.Col - 1},
		{Row: loc.Row, Col: loc.Col + 1},
	}
	withAccess := 0
	for _, n := range neighbors {
		if nw.HasRoadAccess(n) {
			withAccess++
		}
	}
	score += int(25.0 * float64(withAccess) / 4.0)

	if score > 100 {
		score = 100
	}
	return score
}

// AddTraffic accumulates traffic load on the segments bordering a parcel.
// Load does not affect connectivity, only wear.
func (nw *Network) AddTraffic(loc grid.Location, amount float64) {
	for _, s := range nw.AdjacentRoads(loc) {
		s.TrafficLoad += amount
	}
}

// DecayConditions ages all segments by one tick: wear scales with traffic
// load, and load itself relaxes toward zero so it tracks recent activity.
// Road wear does not invalidate the adjacency graph.
func (nw *Network) DecayConditions(perTick float64) {
	for _, s := range nw.segments {
		s.Condition -= perTick * (1 + s.TrafficLoad*0.01)
		if s.Condition < 0 {
			s.Condition = 0
		}
		s.TrafficLoad *= 0.95
	}
}
