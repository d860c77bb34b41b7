package geoconv

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// rawObject holds the members of any GeoJSON object before dispatch on type.
type rawObject struct {
	Type        string          `json:"type"`
	ID          json.RawMessage `json:"id"`
	BBox        json.RawMessage `json:"bbox"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometries  json.RawMessage `json:"geometries"`
	Geometry    json.RawMessage `json:"geometry"`
	Properties  json.RawMessage `json:"properties"`
	Features    json.RawMessage `json:"features"`
}

// ParseGeoJSON parses a GeoJSON document. The result is a Geometry, a
// *Feature or a *FeatureCollection.
func ParseGeoJSON(data []byte) (Object, error) {
	var raw rawObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch raw.Type {
	case TypeFeatureCollection:
		return parseFeatureCollection(raw)
	case TypeFeature:
		return parseFeature(raw)
	case "":
		return nil, fmt.Errorf("%w: missing \"type\" member", ErrInvalidInput)
	default:
		return parseGeometry(raw)
	}
}

func parseFeatureCollection(raw rawObject) (*FeatureCollection, error) {
	fc := &FeatureCollection{HasBBox: present(raw.BBox)}
	if !present(raw.Features) {
		return fc, nil
	}

	var members []json.RawMessage
	if err := json.Unmarshal(raw.Features, &members); err != nil {
		return nil, fmt.Errorf("%w: features: %v", ErrInvalidInput, err)
	}
	fc.Features = make([]*Feature, 0, len(members))
	for i, m := range members {
		var fr rawObject
		if err := json.Unmarshal(m, &fr); err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidInput, i, err)
		}
		if fr.Type != TypeFeature {
			return nil, fmt.Errorf("%w: feature %d: expected type %q, got %q", ErrInvalidInput, i, TypeFeature, fr.Type)
		}
		f, err := parseFeature(fr)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func parseFeature(raw rawObject) (*Feature, error) {
	f := &Feature{
		HasBBox: present(raw.BBox),
	}
	if present(raw.ID) {
		f.ID = raw.ID
	}
	if present(raw.Properties) {
		f.Properties = raw.Properties
	}
	if !present(raw.Geometry) {
		return f, nil
	}

	var gr rawObject
	if err := json.Unmarshal(raw.Geometry, &gr); err != nil {
		return nil, fmt.Errorf("%w: geometry: %v", ErrInvalidInput, err)
	}
	g, err := parseGeometry(gr)
	if err != nil {
		return nil, err
	}
	f.Geometry = g
	return f, nil
}

func parseGeometry(raw rawObject) (Geometry, error) {
	switch raw.Type {
	case TypePoint:
		var pos []float64
		if err := decodeCoordinates(raw, &pos); err != nil {
			return nil, err
		}
		if len(pos) == 0 {
			return Point{Empty: true}, nil
		}
		c, err := position(pos)
		if err != nil {
			return nil, err
		}
		return Point{Coord: c}, nil
	case TypeLineString, TypeLinearRing:
		var pos [][]float64
		if err := decodeCoordinates(raw, &pos); err != nil {
			return nil, err
		}
		cs, err := positions(pos)
		if err != nil {
			return nil, err
		}
		if raw.Type == TypeLinearRing {
			return LinearRing(cs), nil
		}
		return LineString(cs), nil
	case TypePolygon:
		var pos [][][]float64
		if err := decodeCoordinates(raw, &pos); err != nil {
			return nil, err
		}
		return polygon(pos)
	case TypeMultiPoint:
		var pos [][]float64
		if err := decodeCoordinates(raw, &pos); err != nil {
			return nil, err
		}
		mp := make(MultiPoint, 0, len(pos))
		for _, p := range pos {
			c, err := position(p)
			if err != nil {
				return nil, err
			}
			mp = append(mp, Point{Coord: c})
		}
		return mp, nil
	case TypeMultiLineString:
		var pos [][][]float64
		if err := decodeCoordinates(raw, &pos); err != nil {
			return nil, err
		}
		mls := make(MultiLineString, 0, len(pos))
		for _, line := range pos {
			cs, err := positions(line)
			if err != nil {
				return nil, err
			}
			mls = append(mls, LineString(cs))
		}
		return mls, nil
	case TypeMultiPolygon:
		var pos [][][][]float64
		if err := decodeCoordinates(raw, &pos); err != nil {
			return nil, err
		}
		mp := make(MultiPolygon, 0, len(pos))
		for _, rings := range pos {
			p, err := polygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case TypeGeometryCollection:
		var members []json.RawMessage
		if present(raw.Geometries) {
			if err := json.Unmarshal(raw.Geometries, &members); err != nil {
				return nil, fmt.Errorf("%w: geometries: %v", ErrInvalidInput, err)
			}
		}
		gc := make(GeometryCollection, 0, len(members))
		for i, m := range members {
			var mr rawObject
			if err := json.Unmarshal(m, &mr); err != nil {
				return nil, fmt.Errorf("%w: geometry %d: %v", ErrInvalidInput, i, err)
			}
			g, err := parseGeometry(mr)
			if err != nil {
				return nil, err
			}
			gc = append(gc, g)
		}
		return gc, nil
	case "":
		return nil, fmt.Errorf("%w: missing \"type\" member", ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown geometry type %q", ErrInvalidInput, raw.Type)
	}
}

func decodeCoordinates(raw rawObject, v any) error {
	if !present(raw.Coordinates) {
		return nil
	}
	if err := json.Unmarshal(raw.Coordinates, v); err != nil {
		return fmt.Errorf("%w: %s coordinates: %v", ErrInvalidInput, raw.Type, err)
	}
	return nil
}

func position(p []float64) (Coordinate, error) {
	switch {
	case len(p) < 2:
		return Coordinate{}, fmt.Errorf("%w: position needs at least 2 numbers, got %d", ErrInvalidInput, len(p))
	case len(p) == 2:
		return XY(p[0], p[1]), nil
	default:
		return XYZ(p[0], p[1], p[2]), nil
	}
}

func positions(ps [][]float64) ([]Coordinate, error) {
	cs := make([]Coordinate, 0, len(ps))
	for _, p := range ps {
		c, err := position(p)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}

func polygon(rings [][][]float64) (Polygon, error) {
	var p Polygon
	for i, r := range rings {
		cs, err := positions(r)
		if err != nil {
			return Polygon{}, err
		}
		if i == 0 {
			p.Shell = LinearRing(cs)
			continue
		}
		p.Holes = append(p.Holes, LinearRing(cs))
	}
	return p, nil
}

// present reports whether a member exists and is not JSON null.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates any             `json:"coordinates,omitempty"`
	Geometries  *[]geometryJSON `json:"geometries,omitempty"`
}

type featureJSON struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	BBox       []jsonFloat     `json:"bbox,omitempty"`
	Geometry   *geometryJSON   `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type featureCollectionJSON struct {
	Type     string        `json:"type"`
	BBox     []jsonFloat   `json:"bbox,omitempty"`
	Features []featureJSON `json:"features"`
}

// MarshalGeoJSON writes obj as GeoJSON. Coordinates always carry a decimal
// point. A bbox member is written only where the parsed input had one.
func MarshalGeoJSON(obj Object, indent Indentation) (string, error) {
	var doc any
	switch v := obj.(type) {
	case nil:
		return "", ErrNilGeometry
	case *FeatureCollection:
		fc := featureCollectionJSON{
			Type:     TypeFeatureCollection,
			Features: make([]featureJSON, 0, len(v.Features)),
		}
		if v.HasBBox {
			if b, ok := collectionBound(v); ok {
				fc.BBox = bboxJSON(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
			}
		}
		for _, f := range v.Features {
			if f == nil {
				continue
			}
			fc.Features = append(fc.Features, encodeFeature(f))
		}
		doc = fc
	case *Feature:
		doc = encodeFeature(v)
	case Geometry:
		doc = encodeGeometry(v)
	default:
		return "", fmt.Errorf("%w: unexpected object %T", ErrInvalidInput, obj)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if s := indent.indent(); s != "" {
		enc.SetIndent("", s)
	}
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func encodeFeature(f *Feature) featureJSON {
	fj := featureJSON{
		Type:       TypeFeature,
		ID:         f.ID,
		Properties: f.Properties,
	}
	if len(fj.Properties) == 0 {
		fj.Properties = json.RawMessage("null")
	}
	if f.Geometry != nil {
		g := encodeGeometry(f.Geometry)
		fj.Geometry = &g
		if f.HasBBox {
			if b, ok := Bound(f.Geometry); ok {
				fj.BBox = bboxJSON(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
			}
		}
	}
	return fj
}

func bboxJSON(minX, minY, maxX, maxY float64) []jsonFloat {
	return []jsonFloat{jsonFloat(minX), jsonFloat(minY), jsonFloat(maxX), jsonFloat(maxY)}
}

func encodeGeometry(g Geometry) geometryJSON {
	gj := geometryJSON{Type: g.Type()}
	switch v := g.(type) {
	case Point:
		if v.Empty {
			gj.Coordinates = []jsonFloat{}
		} else {
			gj.Coordinates = jsonFloats(v.Coord)
		}
	case LineString:
		gj.Coordinates = encodePositions(v)
	case LinearRing:
		gj.Coordinates = encodePositions(v)
	case Polygon:
		gj.Coordinates = encodeRings(v)
	case MultiPoint:
		pts := make([][]jsonFloat, 0, len(v))
		for _, p := range v {
			if !p.Empty {
				pts = append(pts, jsonFloats(p.Coord))
			}
		}
		gj.Coordinates = pts
	case MultiLineString:
		lines := make([][][]jsonFloat, 0, len(v))
		for _, ls := range v {
			lines = append(lines, encodePositions(ls))
		}
		gj.Coordinates = lines
	case MultiPolygon:
		polys := make([][][][]jsonFloat, 0, len(v))
		for _, p := range v {
			polys = append(polys, encodeRings(p))
		}
		gj.Coordinates = polys
	case GeometryCollection:
		members := make([]geometryJSON, 0, len(v))
		for _, child := range v {
			if child != nil {
				members = append(members, encodeGeometry(child))
			}
		}
		gj.Geometries = &members
	default:
		panic(fmt.Sprintf("geoconv: unhandled geometry type %T", g))
	}
	return gj
}

func encodePositions(cs []Coordinate) [][]jsonFloat {
	out := make([][]jsonFloat, 0, len(cs))
	for _, c := range cs {
		out = append(out, jsonFloats(c))
	}
	return out
}

func encodeRings(p Polygon) [][][]jsonFloat {
	rings := p.Rings()
	out := make([][][]jsonFloat, 0, len(rings))
	for _, r := range rings {
		out = append(out, encodePositions(r))
	}
	return out
}
