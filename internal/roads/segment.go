// Package roads provides road segment state and the connectivity network.
// Segments live on parcel edges; the adjacency graph over grid vertices is
// rebuilt lazily whenever the segment set changes.
package roads

import (
	"fmt"

	"github.com/talgya/citygrid/internal/grid"
)

// RoadType orders road classes by capacity: local < arterial < highway.
type RoadType uint8

const (
	RoadLocal RoadType = iota
	RoadArterial
	RoadHighway
)

// Name returns the lowercase road type name.
func (t RoadType) Name() string {
	switch t {
	case RoadLocal:
		return "local"
	case RoadArterial:
		return "arterial"
	case RoadHighway:
		return "highway"
	}
	return "unknown"
}

// ParseRoadType maps a name back to its RoadType.
func ParseRoadType(name string) (RoadType, error) {
	switch name {
	case "local":
		return RoadLocal, nil
	case "arterial":
		return RoadArterial, nil
	case "highway":
		return RoadHighway, nil
	}
	return RoadLocal, fmt.Errorf("unknown road type %q", name)
}

// Orientation distinguishes the two edge directions of a grid cell.
type Orientation uint8

const (
	Horizontal Orientation = iota // edge along the top of a parcel row
	Vertical                      // edge along the left of a parcel column
)

// EdgeKey identifies one parcel edge. Horizontal (r,c) spans vertices
// (r,c)–(r,c+1); vertical (r,c) spans (r,c)–(r+1,c).
type EdgeKey struct {
	Row    int         `json:"row"`
	Col    int         `json:"col"`
	Orient Orientation `json:"orient"`
}

// RoadSegment is the mutable state of one built edge.
type RoadSegment struct {
	Key         EdgeKey  `json:"key"`
	Type        RoadType `json:"type"`
	Condition   float64  `json:"condition"` // 1 = new, decays toward 0
	TrafficLoad float64  `json:"traffic_load"`
	BuiltAt     uint64   `json:"built_at"` // tick of construction
}

// TransitMode enumerates transit overlays.
type TransitMode uint8

const (
	ModeBus TransitMode = iota
	ModeSubway
)

// Name returns the lowercase transit mode name.
func (m TransitMode) Name() string {
	if m == ModeSubway {
		return "subway"
	}
	return "bus"
}

// TransitRoute is an ordered list of stop parcels. Routes have a lifecycle
// independent from roads; stops reference parcels by location only.
type TransitRoute struct {
	ID           string          `json:"id"`
	Stops        []grid.Location `json:"stops"`
	Mode         TransitMode     `json:"mode"`
	ServiceLevel int             `json:"service_level"`
	TicketPrice  float64         `json:"ticket_price"`
}

// validEdge reports whether the edge key lies on an n×n grid.
func validEdge(k EdgeKey, n int) bool {
	if k.Orient == Horizontal {
		return k.Row >= 0 && k.Row <= n && k.Col >= 0 && k.Col < n
	}
	return k.Row >= 0 && k.Row < n && k.Col >= 0 && k.Col <= n
}

// parcelEdges returns the four bordering edge keys of a parcel in
// top, bottom, left, right order. The fixed order keeps traversal FIFO
// discovery deterministic.
func parcelEdges(loc grid.Location) [4]EdgeKey {
	return [4]EdgeKey{
		{Row: loc.Row, Col: loc.Col, Orient: Horizontal},     // top
		{Row: loc.Row + 1, Col: loc.Col, Orient: Horizontal}, // bottom
		{Row: loc.Row, Col: loc.Col, Orient: Vertical},       // left
		{Row: loc.Row, Col: loc.Col + 1, Orient: Vertical},   // right
	}
}
