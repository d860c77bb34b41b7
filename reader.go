package geoconv

import (
	"fmt"
	"math"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// FlatGeobufReader provides read access to a FlatGeobuf file.
type FlatGeobufReader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// OpenFlatGeobuf creates a reader from a file path.
// The file is memory-mapped.
func OpenFlatGeobuf(path string) (*FlatGeobufReader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return &FlatGeobufReader{fgb: fgb}, nil
}

// NewFlatGeobufReader creates a reader from byte data.
func NewFlatGeobufReader(data []byte) (*FlatGeobufReader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &FlatGeobufReader{fgb: fgb}, nil
}

// ReadFlatGeobuf decodes every feature of an indexed FlatGeobuf file.
func ReadFlatGeobuf(data []byte) (*FeatureCollection, *FlatGeobufHeader, error) {
	r, err := NewFlatGeobufReader(data)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	fc, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return fc, r.Header(), nil
}

// Header returns metadata about the FlatGeobuf file.
func (r *FlatGeobufReader) Header() *FlatGeobufHeader {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &FlatGeobufHeader{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		HasZ:          h.HasZ(),
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:       int(crs.Code()),
			Name:       string(crs.Name()),
			Definition: string(crs.Description()),
		}
	}

	if n := h.ColumnsLength(); n > 0 {
		header.Columns = make([]ColumnInfo, 0, n)
		for i := 0; i < n; i++ {
			var col flattypes.Column
			if h.Columns(&col, i) {
				header.Columns = append(header.Columns, ColumnInfo{
					Name:        string(col.Name()),
					Type:        flattypes.EnumNamesColumnType[col.Type()],
					Title:       string(col.Title()),
					Description: string(col.Description()),
					Nullable:    col.Nullable(),
				})
			}
		}
	}

	return header
}

// ReadAll reads all features. Features are located through the spatial
// index, so a file without one fails with ErrNoIndex.
func (r *FlatGeobufReader) ReadAll() (*FeatureCollection, error) {
	h := r.fgb.Header()
	if h.FeaturesCount() == 0 {
		return &FeatureCollection{}, nil
	}
	if h.IndexNodeSize() == 0 || h.EnvelopeLength() < 4 {
		return nil, ErrNoIndex
	}
	return r.search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
}

// Search returns the features whose bounding boxes intersect bound.
func (r *FlatGeobufReader) Search(bound orb.Bound) (*FeatureCollection, error) {
	if r.fgb.Header().IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	return r.search(bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1])
}

func (r *FlatGeobufReader) search(minX, minY, maxX, maxY float64) (*FeatureCollection, error) {
	h := r.fgb.Header()
	features, err := r.fgb.Search(minX, minY, maxX, maxY)
	if err != nil {
		return nil, err
	}

	fc := &FeatureCollection{Features: make([]*Feature, 0, len(features))}
	for i, fgbFeature := range features {
		f, err := convertFeature(fgbFeature, h)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		if f != nil {
			fc.Features = append(fc.Features, f)
		}
	}
	return fc, nil
}

// Close releases the reader's reference to the file data.
func (r *FlatGeobufReader) Close() error {
	r.fgb = nil
	return nil
}

// convertFeature converts a FlatGeobuf feature to a Feature.
func convertFeature(fgbFeature *flattypes.Feature, header *flattypes.Header) (*Feature, error) {
	if fgbFeature == nil {
		return nil, nil
	}

	var geomObj flattypes.Geometry
	geom := fgbFeature.Geometry(&geomObj)
	if geom == nil {
		return nil, nil
	}

	g, err := geometryFromFGB(geom, header.GeometryType())
	if err != nil {
		return nil, err
	}
	feature := &Feature{Geometry: g}

	if n := fgbFeature.PropertiesLength(); n > 0 && header.ColumnsLength() > 0 {
		props := make([]byte, n)
		for i := 0; i < n; i++ {
			props[i] = byte(fgbFeature.Properties(i))
		}
		if feature.Properties, err = decodeProperties(props, header); err != nil {
			return nil, err
		}
	}
	return feature, nil
}

// geometryFromFGB converts a FlatGeobuf geometry. The geometry's own type
// is used when set, otherwise the header's.
func geometryFromFGB(fgbGeom *flattypes.Geometry, headerType flattypes.GeometryType) (Geometry, error) {
	geomType := fgbGeom.Type()
	if geomType == flattypes.GeometryTypeUnknown {
		geomType = headerType
	}

	switch geomType {
	case flattypes.GeometryTypePoint:
		cs := coordinatesFromFGB(fgbGeom, 0, uint32(fgbGeom.XyLength()/2))
		if len(cs) == 0 {
			return Point{Empty: true}, nil
		}
		return Point{Coord: cs[0]}, nil

	case flattypes.GeometryTypeMultiPoint:
		cs := coordinatesFromFGB(fgbGeom, 0, uint32(fgbGeom.XyLength()/2))
		mp := make(MultiPoint, 0, len(cs))
		for _, c := range cs {
			mp = append(mp, Point{Coord: c})
		}
		return mp, nil

	case flattypes.GeometryTypeLineString:
		return LineString(coordinatesFromFGB(fgbGeom, 0, uint32(fgbGeom.XyLength()/2))), nil

	case flattypes.GeometryTypeMultiLineString:
		parts := partsFromFGB(fgbGeom)
		mls := make(MultiLineString, 0, len(parts))
		for _, p := range parts {
			mls = append(mls, LineString(p))
		}
		return mls, nil

	case flattypes.GeometryTypePolygon:
		return polygonFromFGB(fgbGeom), nil

	case flattypes.GeometryTypeMultiPolygon:
		n := fgbGeom.PartsLength()
		if n == 0 {
			// Fallback: treat as single polygon
			if poly := polygonFromFGB(fgbGeom); !poly.IsEmpty() {
				return MultiPolygon{poly}, nil
			}
			return MultiPolygon{}, nil
		}
		mp := make(MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if fgbGeom.Parts(&part, i) {
				mp = append(mp, polygonFromFGB(&part))
			}
		}
		return mp, nil

	case flattypes.GeometryTypeGeometryCollection:
		n := fgbGeom.PartsLength()
		gc := make(GeometryCollection, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if !fgbGeom.Parts(&part, i) {
				continue
			}
			child, err := geometryFromFGB(&part, flattypes.GeometryTypeUnknown)
			if err != nil {
				return nil, err
			}
			gc = append(gc, child)
		}
		return gc, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, flattypes.EnumNamesGeometryType[geomType])
	}
}

// coordinatesFromFGB reads points [start, end) including Z when present.
func coordinatesFromFGB(fgbGeom *flattypes.Geometry, start, end uint32) []Coordinate {
	xyLen := fgbGeom.XyLength()
	zLen := fgbGeom.ZLength()

	cs := make([]Coordinate, 0, end-start)
	for j := start; j < end; j++ {
		idx := int(j) * 2
		if idx+1 >= xyLen {
			break
		}
		c := XY(fgbGeom.Xy(idx), fgbGeom.Xy(idx+1))
		if int(j) < zLen {
			if z := fgbGeom.Z(int(j)); !math.IsNaN(z) {
				c.Z, c.HasZ = z, true
			}
		}
		cs = append(cs, c)
	}
	return cs
}

// partsFromFGB splits the XY array by the ends array. Without ends all
// points form one part.
func partsFromFGB(fgbGeom *flattypes.Geometry) [][]Coordinate {
	total := uint32(fgbGeom.XyLength() / 2)
	endsLen := fgbGeom.EndsLength()
	if endsLen == 0 {
		if total == 0 {
			return nil
		}
		return [][]Coordinate{coordinatesFromFGB(fgbGeom, 0, total)}
	}

	parts := make([][]Coordinate, 0, endsLen)
	start := uint32(0)
	for i := 0; i < endsLen; i++ {
		end := fgbGeom.Ends(i)
		parts = append(parts, coordinatesFromFGB(fgbGeom, start, end))
		start = end
	}
	return parts
}

func polygonFromFGB(fgbGeom *flattypes.Geometry) Polygon {
	parts := partsFromFGB(fgbGeom)
	if len(parts) == 0 {
		return Polygon{}
	}
	poly := Polygon{Shell: LinearRing(parts[0])}
	for _, p := range parts[1:] {
		poly.Holes = append(poly.Holes, LinearRing(p))
	}
	return poly
}
