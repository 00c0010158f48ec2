package roads

import (
	"errors"
	"testing"

	"github.com/talgya/citygrid/internal/grid"
)

func hkey(r, c int) EdgeKey { return EdgeKey{Row: r, Col: c, Orient: Horizontal} }
func vkey(r, c int) EdgeKey { return EdgeKey{Row: r, Col: c, Orient: Vertical} }

func TestAddSegmentValidation(t *testing.T) {
	nw := NewNetwork(8)

	if err := nw.AddSegment(hkey(0, 0), RoadLocal, 0); err != nil {
		t.Fatalf("valid top-border edge rejected: %v", err)
	}
	if err := nw.AddSegment(hkey(8, 7), RoadLocal, 0); err != nil {
		t.Fatalf("valid bottom-border edge rejected: %v", err)
	}
	if err := nw.AddSegment(vkey(7, 8), RoadLocal, 0); err != nil {
		t.Fatalf("valid right-border edge rejected: %v", err)
	}

	bad := []EdgeKey{hkey(-1, 0), hkey(0, 8), hkey(9, 0), vkey(8, 0), vkey(0, 9)}
	for _, k := range bad {
		if err := nw.AddSegment(k, RoadLocal, 0); !errors.Is(err, grid.ErrInvalidLocation) {
			t.Errorf("AddSegment(%v) error = %v, want ErrInvalidLocation", k, err)
		}
	}
}

func TestAddSegmentUpgradeResetsCondition(t *testing.T) {
	nw := NewNetwork(8)
	if err := nw.AddSegment(hkey(2, 2), RoadLocal, 5); err != nil {
		t.Fatal(err)
	}
	nw.Segment(hkey(2, 2)).Condition = 0.4

	if err := nw.AddSegment(hkey(2, 2), RoadArterial, 9); err != nil {
		t.Fatal(err)
	}
	s := nw.Segment(hkey(2, 2))
	if s.Type != RoadArterial {
		t.Errorf("type = %v, want arterial", s.Type)
	}
	if s.Condition != 1.0 {
		t.Errorf("rebuild must reset condition, got %f", s.Condition)
	}
	if s.BuiltAt != 9 {
		t.Errorf("built tick = %d, want 9", s.BuiltAt)
	}
}

func TestRemoveMissingSegmentIsNoOp(t *testing.T) {
	nw := NewNetwork(8)
	v := nw.Version()
	if nw.RemoveSegment(hkey(3, 3)) {
		t.Error("removing a missing segment must report false")
	}
	if nw.Version() != v {
		t.Error("no-op removal must not bump the version")
	}
}

func TestHasRoadAccess(t *testing.T) {
	nw := NewNetwork(8)
	if nw.HasRoadAccess(grid.Location{Row: 2, Col: 2}) {
		t.Error("empty network grants no access")
	}

	// Top edge of parcel (2,2).
	if err := nw.AddSegment(hkey(2, 2), RoadLocal, 0); err != nil {
		t.Fatal(err)
	}
	if !nw.HasRoadAccess(grid.Location{Row: 2, Col: 2}) {
		t.Error("parcel below its top edge must have access")
	}
	// The same segment is the bottom edge of (1,2).
	if !nw.HasRoadAccess(grid.Location{Row: 1, Col: 2}) {
		t.Error("parcel above the shared edge must have access")
	}
	if nw.HasRoadAccess(grid.Location{Row: 2, Col: 3}) {
		t.Error("unrelated parcel must not have access")
	}
	if nw.HasRoadAccess(grid.Location{Row: -1, Col: 0}) {
		t.Error("out-of-bounds parcel must not have access")
	}
}

// buildRow lays a straight horizontal road along the tops of row parcels
// from col a to col b inclusive.
func buildRow(t *testing.T, nw *Network, row, a, b int, rt RoadType) {
	t.Helper()
	for c := a; c <= b; c++ {
		if err := nw.AddSegment(hkey(row, c), rt, 0); err != nil {
			t.Fatal(err)
		}
	}
}

func TestConnectedSimplePath(t *testing.T) {
	nw := NewNetwork(8)
	buildRow(t, nw, 2, 1, 5, RoadArterial)

	res := nw.Connected(grid.Location{Row: 2, Col: 1}, grid.Location{Row: 2, Col: 5})
	if !res.Connected {
		t.Fatal("parcels on one continuous road must be connected")
	}
	if res.Bottleneck != RoadArterial {
		t.Errorf("bottleneck = %v, want arterial", res.Bottleneck)
	}
	if res.Hops < 1 {
		t.Errorf("hops = %d", res.Hops)
	}
}

func TestConnectedBottleneckIsWorstSegment(t *testing.T) {
	nw := NewNetwork(8)
	// Highway — one local segment — highway.
	buildRow(t, nw, 2, 0, 2, RoadHighway)
	buildRow(t, nw, 2, 3, 3, RoadLocal)
	buildRow(t, nw, 2, 4, 6, RoadHighway)

	res := nw.Connected(grid.Location{Row: 2, Col: 0}, grid.Location{Row: 2, Col: 6})
	if !res.Connected {
		t.Fatal("expected connectivity")
	}
	if res.Bottleneck != RoadLocal {
		t.Errorf("bottleneck = %v, want local (worst segment on path)", res.Bottleneck)
	}
}

func TestConnectedDisjointComponents(t *testing.T) {
	nw := NewNetwork(8)
	buildRow(t, nw, 1, 0, 1, RoadLocal)
	buildRow(t, nw, 6, 5, 6, RoadLocal)

	res := nw.Connected(grid.Location{Row: 1, Col: 0}, grid.Location{Row: 6, Col: 6})
	if res.Connected {
		t.Error("disjoint components must not be connected")
	}
}

func TestConnectedSharedSegment(t *testing.T) {
	nw := NewNetwork(8)
	if err := nw.AddSegment(hkey(3, 3), RoadLocal, 0); err != nil {
		t.Fatal(err)
	}
	// (2,3) and (3,3) flank the same segment.
	res := nw.Connected(grid.Location{Row: 2, Col: 3}, grid.Location{Row: 3, Col: 3})
	if !res.Connected {
		t.Fatal("parcels flanking one segment must be connected")
	}
	if res.Hops != 1 {
		t.Errorf("hops = %d, want 1", res.Hops)
	}
}

func TestConnectedOutOfBounds(t *testing.T) {
	nw := NewNetwork(8)
	buildRow(t, nw, 2, 0, 7, RoadLocal)
	res := nw.Connected(grid.Location{Row: -1, Col: 0}, grid.Location{Row: 2, Col: 3})
	if res.Connected {
		t.Error("out-of-bounds query must report not connected")
	}
}

func TestAccessibilityScore(t *testing.T) {
	nw := NewNetwork(8)
	loc := grid.Location{Row: 3, Col: 3}
	if got := nw.AccessibilityScore(loc); got != 0 {
		t.Errorf("score without roads = %d, want 0", got)
	}

	if err := nw.AddSegment(hkey(3, 3), RoadLocal, 0); err != nil {
		t.Fatal(err)
	}
	// One bordering segment, one neighbor (2,3) also flanks it: 25 + 25/4.
	if got := nw.AccessibilityScore(loc); got != 31 {
		t.Errorf("score = %d, want 31", got)
	}

	// Fully enclosed parcel saturates at 100.
	nw.AddSegment(hkey(4, 3), RoadLocal, 0)
	nw.AddSegment(vkey(3, 3), RoadLocal, 0)
	nw.AddSegment(vkey(3, 4), RoadLocal, 0)
	if got := nw.AccessibilityScore(loc); got != 100 {
		t.Errorf("enclosed score = %d, want 100", got)
	}
}

func TestSegmentsSorted(t *testing.T) {
	nw := NewNetwork(8)
	nw.AddSegment(vkey(5, 1), RoadLocal, 0)
	nw.AddSegment(hkey(0, 3), RoadLocal, 0)
	nw.AddSegment(hkey(5, 1), RoadLocal, 0)
	nw.AddSegment(hkey(2, 2), RoadLocal, 0)

	segs := nw.Segments()
	for i := 1; i < len(segs); i++ {
		a, b := segs[i-1].Key, segs[i].Key
		if a.Row > b.Row || (a.Row == b.Row && a.Col > b.Col) ||
			(a.Row == b.Row && a.Col == b.Col && a.Orient >= b.Orient) {
			t.Fatalf("segments out of order at %d: %v then %v", i, a, b)
		}
	}
}

func TestDecayConditions(t *testing.T) {
	nw := NewNetwork(8)
	nw.AddSegment(hkey(2, 2), RoadLocal, 0)
	seg := nw.Segment(hkey(2, 2))
	seg.TrafficLoad = 50

	nw.DecayConditions(0.001)
	want := 1.0 - 0.001*(1+50*0.01)
	if diff := seg.Condition - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("condition = %f, want %f", seg.Condition, want)
	}

	// Never below zero.
	for i := 0; i < 2000; i++ {
		nw.DecayConditions(0.01)
	}
	if seg.Condition < 0 {
		t.Errorf("condition went negative: %f", seg.Condition)
	}
}

func TestAddTrafficHitsBorderingSegments(t *testing.T) {
	nw := NewNetwork(8)
	nw.AddSegment(hkey(3, 3), RoadLocal, 0) // top of (3,3)
	nw.AddSegment(vkey(3, 3), RoadLocal, 0) // left of (3,3)
	nw.AddSegment(hkey(0, 0), RoadLocal, 0) // unrelated

	nw.AddTraffic(grid.Location{Row: 3, Col: 3}, 2)
	if got := nw.Segment(hkey(3, 3)).TrafficLoad; got != 2 {
		t.Errorf("top segment load = %f, want 2", got)
	}
	if got := nw.Segment(vkey(3, 3)).TrafficLoad; got != 2 {
		t.Errorf("left segment load = %f, want 2", got)
	}
	if got := nw.Segment(hkey(0, 0)).TrafficLoad; got != 0 {
		t.Errorf("unrelated segment load = %f, want 0", got)
	}

	// Load relaxes as conditions decay.
	nw.DecayConditions(0)
	if got := nw.Segment(hkey(3, 3)).TrafficLoad; got != 2*0.95 {
		t.Errorf("relaxed load = %f, want %f", got, 2*0.95)
	}
}

func TestRoutesSortedAndRemoval(t *testing.T) {
	nw := NewNetwork(8)
	nw.AddRoute(&TransitRoute{ID: "green", Mode: ModeBus})
	nw.AddRoute(&TransitRoute{ID: "blue", Mode: ModeSubway})

	routes := nw.Routes()
	if len(routes) != 2 || routes[0].ID != "blue" || routes[1].ID != "green" {
		t.Fatalf("routes not sorted by ID: %v", routes)
	}
	if nw.RemoveRoute("missing") {
		t.Error("removing a missing route must report false")
	}
	if !nw.RemoveRoute("blue") {
		t.Error("existing route removal failed")
	}
}
