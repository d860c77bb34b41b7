package geoconv

import (
	"encoding/json"
)

// Geometry type names shared by GeoJSON and WKT.
const (
	TypePoint              = "Point"
	TypeLineString         = "LineString"
	TypeLinearRing         = "LinearRing"
	TypePolygon            = "Polygon"
	TypeMultiPoint         = "MultiPoint"
	TypeMultiLineString    = "MultiLineString"
	TypeMultiPolygon       = "MultiPolygon"
	TypeGeometryCollection = "GeometryCollection"
	TypeFeature            = "Feature"
	TypeFeatureCollection  = "FeatureCollection"
)

// Coordinate is a position. Z is carried through transformations but never
// projected.
type Coordinate struct {
	X, Y float64
	Z    float64
	HasZ bool
}

// XY returns a 2D coordinate.
func XY(x, y float64) Coordinate {
	return Coordinate{X: x, Y: y}
}

// XYZ returns a coordinate with elevation.
func XYZ(x, y, z float64) Coordinate {
	return Coordinate{X: x, Y: y, Z: z, HasZ: true}
}

// Object is anything a GeoJSON document can hold at its root: a Geometry,
// a *Feature or a *FeatureCollection.
type Object interface {
	Type() string
}

// Geometry is the closed set of geometry variants defined in this package.
type Geometry interface {
	Object
	IsEmpty() bool
	geometry()
}

// Point is a single position. The zero Point with Empty set is POINT EMPTY.
type Point struct {
	Coord Coordinate
	Empty bool
}

// LineString is an ordered sequence of positions.
type LineString []Coordinate

// LinearRing is a closed LineString used as a polygon boundary.
type LinearRing []Coordinate

// Polygon is a shell with zero or more holes.
type Polygon struct {
	Shell LinearRing
	Holes []LinearRing
}

// MultiPoint is a set of points.
type MultiPoint []Point

// MultiLineString is a set of line strings.
type MultiLineString []LineString

// MultiPolygon is a set of polygons.
type MultiPolygon []Polygon

// GeometryCollection is a heterogeneous, possibly nested, set of geometries.
type GeometryCollection []Geometry

func (Point) Type() string              { return TypePoint }
func (LineString) Type() string         { return TypeLineString }
func (LinearRing) Type() string         { return TypeLinearRing }
func (Polygon) Type() string            { return TypePolygon }
func (MultiPoint) Type() string         { return TypeMultiPoint }
func (MultiLineString) Type() string    { return TypeMultiLineString }
func (MultiPolygon) Type() string       { return TypeMultiPolygon }
func (GeometryCollection) Type() string { return TypeGeometryCollection }

func (p Point) IsEmpty() bool               { return p.Empty }
func (ls LineString) IsEmpty() bool         { return len(ls) == 0 }
func (r LinearRing) IsEmpty() bool          { return len(r) == 0 }
func (p Polygon) IsEmpty() bool             { return len(p.Shell) == 0 }
func (mp MultiPoint) IsEmpty() bool         { return len(mp) == 0 }
func (mls MultiLineString) IsEmpty() bool   { return len(mls) == 0 }
func (mp MultiPolygon) IsEmpty() bool       { return len(mp) == 0 }
func (gc GeometryCollection) IsEmpty() bool { return len(gc) == 0 }

func (Point) geometry()              {}
func (LineString) geometry()         {}
func (LinearRing) geometry()         {}
func (Polygon) geometry()            {}
func (MultiPoint) geometry()         {}
func (MultiLineString) geometry()    {}
func (MultiPolygon) geometry()       {}
func (GeometryCollection) geometry() {}

// Rings returns the shell followed by the holes.
func (p Polygon) Rings() []LinearRing {
	if len(p.Shell) == 0 && len(p.Holes) == 0 {
		return nil
	}
	rings := make([]LinearRing, 0, 1+len(p.Holes))
	rings = append(rings, p.Shell)
	return append(rings, p.Holes...)
}

// Feature is a geometry with opaque properties. ID and Properties hold the
// raw JSON of the source document and are written back unchanged.
type Feature struct {
	ID         json.RawMessage
	Geometry   Geometry
	Properties json.RawMessage

	// HasBBox records that the source carried a bbox member; one is
	// recomputed on output.
	HasBBox bool
}

// Type returns "Feature".
func (*Feature) Type() string { return TypeFeature }

// FeatureCollection is an ordered set of features.
type FeatureCollection struct {
	Features []*Feature
	HasBBox  bool
}

// Type returns "FeatureCollection".
func (*FeatureCollection) Type() string { return TypeFeatureCollection }

// Geometries returns the non-nil feature geometries in order.
func (fc *FeatureCollection) Geometries() []Geometry {
	geoms := make([]Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	}
	return geoms
}

// eachCoordinate calls fn for every coordinate of g in order.
func eachCoordinate(g Geometry, fn func(Coordinate)) {
	switch v := g.(type) {
	case nil:
	case Point:
		if !v.Empty {
			fn(v.Coord)
		}
	case LineString:
		for _, c := range v {
			fn(c)
		}
	case LinearRing:
		for _, c := range v {
			fn(c)
		}
	case Polygon:
		for _, r := range v.Rings() {
			for _, c := range r {
				fn(c)
			}
		}
	case MultiPoint:
		for _, p := range v {
			eachCoordinate(p, fn)
		}
	case MultiLineString:
		for _, ls := range v {
			eachCoordinate(ls, fn)
		}
	case MultiPolygon:
		for _, p := range v {
			eachCoordinate(p, fn)
		}
	case GeometryCollection:
		for _, child := range v {
			eachCoordinate(child, fn)
		}
	}
}

// HasZ reports whether any coordinate of g carries a Z value.
func HasZ(g Geometry) bool {
	hasZ := false
	eachCoordinate(g, func(c Coordinate) {
		if c.HasZ {
			hasZ = true
		}
	})
	return hasZ
}
