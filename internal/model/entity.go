package model

import "fmt"

// EntityKind tags the variant held by an Entity.
type EntityKind int

const (
	EntityLine     EntityKind = iota // Straight segment Start -> End
	EntityPolyline                   // Vertex list with optional bulges
	EntityArc                        // Circular arc, angles in degrees CCW
	EntityCircle                     // Full circle
	EntityInsert                     // Instance of a named block
)

func (k EntityKind) String() string {
	switch k {
	case EntityLine:
		return "LINE"
	case EntityPolyline:
		return "POLYLINE"
	case EntityArc:
		return "ARC"
	case EntityCircle:
		return "CIRCLE"
	case EntityInsert:
		return "INSERT"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// PolylineVertex is a polyline corner. Bulge encodes an arc to the next
// vertex as tan(sweep/4); positive bulges sweep counter-clockwise.
type PolylineVertex struct {
	Point2D
	Bulge float64 `json:"bulge,omitempty"`
}

// Entity is one element of the raw CAD entity graph. Only the fields
// relevant to Kind are meaningful.
type Entity struct {
	Kind EntityKind `json:"kind"`

	// Line
	Start Point2D `json:"start,omitempty"`
	End   Point2D `json:"end,omitempty"`

	// Polyline
	Vertices []PolylineVertex `json:"vertices,omitempty"`
	Closed   bool             `json:"closed,omitempty"`

	// Arc and circle
	Center     Point2D `json:"center,omitempty"`
	Radius     float64 `json:"radius,omitempty"`
	StartAngle float64 `json:"start_angle,omitempty"` // degrees
	EndAngle   float64 `json:"end_angle,omitempty"`   // degrees

	// Insert
	Block    string  `json:"block,omitempty"`
	Position Point2D `json:"position,omitempty"`
	Rotation float64 `json:"rotation,omitempty"` // degrees
	ScaleX   float64 `json:"scale_x,omitempty"`
	ScaleY   float64 `json:"scale_y,omitempty"`
}

// NewLine creates a LINE entity.
func NewLine(start, end Point2D) Entity {
	return Entity{Kind: EntityLine, Start: start, End: end}
}

// NewArc creates an ARC entity. Angles are in degrees, counter-clockwise.
func NewArc(center Point2D, radius, startDeg, endDeg float64) Entity {
	return Entity{Kind: EntityArc, Center: center, Radius: radius, StartAngle: startDeg, EndAngle: endDeg}
}

// NewCircle creates a CIRCLE entity.
func NewCircle(center Point2D, radius float64) Entity {
	return Entity{Kind: EntityCircle, Center: center, Radius: radius}
}

// NewPolyline creates a POLYLINE entity from plain points (no bulges).
func NewPolyline(closed bool, pts ...Point2D) Entity {
	verts := make([]PolylineVertex, len(pts))
	for i, p := range pts {
		verts[i] = PolylineVertex{Point2D: p}
	}
	return Entity{Kind: EntityPolyline, Vertices: verts, Closed: closed}
}

// NewInsert creates a block instance with unit scale.
func NewInsert(block string, pos Point2D, rotationDeg float64) Entity {
	return Entity{Kind: EntityInsert, Block: block, Position: pos, Rotation: rotationDeg, ScaleX: 1, ScaleY: 1}
}

// Scales returns the insert scale factors, treating zero as 1.
func (e Entity) Scales() (sx, sy float64) {
	sx, sy = e.ScaleX, e.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// Block is a named, reusable group of entities.
type Block struct {
	Name     string   `json:"name"`
	Base     Point2D  `json:"base"`
	Entities []Entity `json:"entities"`
}

// BlockTable maps block names to definitions.
type BlockTable map[string]Block
