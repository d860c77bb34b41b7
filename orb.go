package geoconv

import (
	"github.com/paulmach/orb"
)

// Bound returns the planar extent of g. The second result is false when g
// has no coordinates.
func Bound(g Geometry) (orb.Bound, bool) {
	var (
		bound orb.Bound
		found bool
	)
	eachCoordinate(g, func(c Coordinate) {
		p := orb.Point{c.X, c.Y}
		if !found {
			bound = p.Bound()
			found = true
			return
		}
		bound = bound.Extend(p)
	})
	return bound, found
}

// collectionBound returns the combined extent of the feature geometries.
func collectionBound(fc *FeatureCollection) (orb.Bound, bool) {
	var (
		bound orb.Bound
		found bool
	)
	for _, g := range fc.Geometries() {
		b, ok := Bound(g)
		if !ok {
			continue
		}
		if !found {
			bound = b
			found = true
			continue
		}
		bound = bound.Union(b)
	}
	return bound, found
}

// ToOrb converts g to the equivalent orb geometry. Z values are dropped;
// an empty point converts to nil.
func ToOrb(g Geometry) orb.Geometry {
	switch v := g.(type) {
	case nil:
		return nil
	case Point:
		if v.Empty {
			return nil
		}
		return orb.Point{v.Coord.X, v.Coord.Y}
	case LineString:
		return orb.LineString(toOrbPoints(v))
	case LinearRing:
		return orb.Ring(toOrbPoints(v))
	case Polygon:
		return toOrbPolygon(v)
	case MultiPoint:
		mp := make(orb.MultiPoint, 0, len(v))
		for _, p := range v {
			if !p.Empty {
				mp = append(mp, orb.Point{p.Coord.X, p.Coord.Y})
			}
		}
		return mp
	case MultiLineString:
		mls := make(orb.MultiLineString, 0, len(v))
		for _, ls := range v {
			mls = append(mls, orb.LineString(toOrbPoints(ls)))
		}
		return mls
	case MultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			mp = append(mp, toOrbPolygon(p))
		}
		return mp
	case GeometryCollection:
		coll := make(orb.Collection, 0, len(v))
		for _, child := range v {
			if og := ToOrb(child); og != nil {
				coll = append(coll, og)
			}
		}
		return coll
	default:
		panic("geoconv: unhandled geometry type " + g.Type())
	}
}

// FromOrb converts an orb geometry. An orb.Bound becomes its rectangle polygon.
func FromOrb(g orb.Geometry) Geometry {
	switch v := g.(type) {
	case nil:
		return nil
	case orb.Point:
		return Point{Coord: XY(v[0], v[1])}
	case orb.MultiPoint:
		mp := make(MultiPoint, 0, len(v))
		for _, p := range v {
			mp = append(mp, Point{Coord: XY(p[0], p[1])})
		}
		return mp
	case orb.LineString:
		return LineString(fromOrbPoints(v))
	case orb.MultiLineString:
		mls := make(MultiLineString, 0, len(v))
		for _, ls := range v {
			mls = append(mls, LineString(fromOrbPoints(ls)))
		}
		return mls
	case orb.Ring:
		return LinearRing(fromOrbPoints(v))
	case orb.Polygon:
		return fromOrbPolygon(v)
	case orb.MultiPolygon:
		mp := make(MultiPolygon, 0, len(v))
		for _, p := range v {
			mp = append(mp, fromOrbPolygon(p))
		}
		return mp
	case orb.Collection:
		coll := make(GeometryCollection, 0, len(v))
		for _, child := range v {
			if cg := FromOrb(child); cg != nil {
				coll = append(coll, cg)
			}
		}
		return coll
	case orb.Bound:
		return fromOrbPolygon(v.ToPolygon())
	default:
		return nil
	}
}

func toOrbPoints(cs []Coordinate) []orb.Point {
	pts := make([]orb.Point, 0, len(cs))
	for _, c := range cs {
		pts = append(pts, orb.Point{c.X, c.Y})
	}
	return pts
}

func fromOrbPoints(pts []orb.Point) []Coordinate {
	cs := make([]Coordinate, 0, len(pts))
	for _, p := range pts {
		cs = append(cs, XY(p[0], p[1]))
	}
	return cs
}

func toOrbPolygon(p Polygon) orb.Polygon {
	rings := p.Rings()
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		poly = append(poly, orb.Ring(toOrbPoints(r)))
	}
	return poly
}

func fromOrbPolygon(p orb.Polygon) Polygon {
	if len(p) == 0 {
		return Polygon{}
	}
	poly := Polygon{Shell: LinearRing(fromOrbPoints(p[0]))}
	for _, r := range p[1:] {
		poly.Holes = append(poly.Holes, LinearRing(fromOrbPoints(r)))
	}
	return poly
}
