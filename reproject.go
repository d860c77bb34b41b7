package geoconv

import (
	"fmt"
)

// ProjectFunc maps a planar position from one coordinate system to another.
type ProjectFunc func(x, y float64) (float64, float64, error)

// Reproject returns a copy of g with every X/Y passed through fn. Z values are
// copied unchanged and the input is never modified. The first error aborts.
func Reproject(g Geometry, fn ProjectFunc) (Geometry, error) {
	switch v := g.(type) {
	case nil:
		return nil, nil
	case Point:
		if v.Empty {
			return v, nil
		}
		c, err := projectCoordinate(v.Coord, fn)
		if err != nil {
			return nil, err
		}
		return Point{Coord: c}, nil
	case LineString:
		cs, err := projectCoordinates(v, fn)
		if err != nil {
			return nil, err
		}
		return LineString(cs), nil
	case LinearRing:
		cs, err := projectCoordinates(v, fn)
		if err != nil {
			return nil, err
		}
		return LinearRing(cs), nil
	case Polygon:
		return projectPolygon(v, fn)
	case MultiPoint:
		out := make(MultiPoint, 0, len(v))
		for _, p := range v {
			pg, err := Reproject(p, fn)
			if err != nil {
				return nil, err
			}
			out = append(out, pg.(Point))
		}
		return out, nil
	case MultiLineString:
		out := make(MultiLineString, 0, len(v))
		for _, ls := range v {
			cs, err := projectCoordinates(ls, fn)
			if err != nil {
				return nil, err
			}
			out = append(out, LineString(cs))
		}
		return out, nil
	case MultiPolygon:
		out := make(MultiPolygon, 0, len(v))
		for _, p := range v {
			pp, err := projectPolygon(p, fn)
			if err != nil {
				return nil, err
			}
			out = append(out, pp)
		}
		return out, nil
	case GeometryCollection:
		out := make(GeometryCollection, 0, len(v))
		for _, child := range v {
			cg, err := Reproject(child, fn)
			if err != nil {
				return nil, err
			}
			out = append(out, cg)
		}
		return out, nil
	default:
		panic(fmt.Sprintf("geoconv: unhandled geometry type %T", g))
	}
}

// ReprojectObject reprojects a geometry, feature or feature collection.
// Feature ids and properties are shared with the input.
func ReprojectObject(obj Object, fn ProjectFunc) (Object, error) {
	switch v := obj.(type) {
	case *Feature:
		return reprojectFeature(v, fn)
	case *FeatureCollection:
		out := &FeatureCollection{
			Features: make([]*Feature, 0, len(v.Features)),
			HasBBox:  v.HasBBox,
		}
		for _, f := range v.Features {
			pf, err := reprojectFeature(f, fn)
			if err != nil {
				return nil, err
			}
			out.Features = append(out.Features, pf)
		}
		return out, nil
	case Geometry:
		return Reproject(v, fn)
	default:
		return nil, fmt.Errorf("%w: unexpected object %T", ErrInvalidInput, obj)
	}
}

func reprojectFeature(f *Feature, fn ProjectFunc) (*Feature, error) {
	if f == nil {
		return nil, nil
	}
	g, err := Reproject(f.Geometry, fn)
	if err != nil {
		return nil, err
	}
	out := *f
	out.Geometry = g
	return &out, nil
}

func projectCoordinate(c Coordinate, fn ProjectFunc) (Coordinate, error) {
	x, y, err := fn(c.X, c.Y)
	if err != nil {
		return Coordinate{}, err
	}
	return Coordinate{X: x, Y: y, Z: c.Z, HasZ: c.HasZ}, nil
}

func projectCoordinates(cs []Coordinate, fn ProjectFunc) ([]Coordinate, error) {
	out := make([]Coordinate, 0, len(cs))
	for _, c := range cs {
		pc, err := projectCoordinate(c, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}

func projectPolygon(p Polygon, fn ProjectFunc) (Polygon, error) {
	var out Polygon
	if p.Shell != nil {
		shell, err := projectCoordinates(p.Shell, fn)
		if err != nil {
			return Polygon{}, err
		}
		out.Shell = shell
	}
	for _, h := range p.Holes {
		hole, err := projectCoordinates(h, fn)
		if err != nil {
			return Polygon{}, err
		}
		out.Holes = append(out.Holes, hole)
	}
	return out, nil
}
