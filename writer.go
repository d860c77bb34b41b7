package geoconv

import (
	"fmt"
	"io"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// WriteGeometries writes geometries without properties to FlatGeobuf format.
func WriteGeometries(w io.Writer, geometries []Geometry, opts FlatGeobufOptions) error {
	fc := &FeatureCollection{Features: make([]*Feature, 0, len(geometries))}
	for _, g := range geometries {
		fc.Features = append(fc.Features, &Feature{Geometry: g})
	}
	return WriteFlatGeobuf(w, fc, opts)
}

// WriteFlatGeobuf writes a FeatureCollection to FlatGeobuf format. Features
// without a geometry are skipped. Property columns are inferred from every
// feature's properties.
func WriteFlatGeobuf(w io.Writer, fc *FeatureCollection, opts FlatGeobufOptions) error {
	if fc == nil {
		return ErrNoFeatures
	}

	features := make([]*Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return ErrNoFeatures
	}

	// Determine geometry type
	geomType := fgbGeometryType(features[0].Geometry)
	hasZ := false
	for _, f := range features {
		if fgbGeometryType(f.Geometry) != geomType {
			geomType = flattypes.GeometryTypeUnknown
		}
		if HasZ(f.Geometry) {
			hasZ = true
		}
	}

	schema, err := inferSchema(features)
	if err != nil {
		return err
	}

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(geomType)
	header.SetHasZ(hasZ)
	header.SetFeaturesCount(uint64(len(features)))

	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if len(schema.columns) > 0 {
		header.SetColumns(schema.writerColumns(builder))
	}
	if opts.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		if opts.CRS.Definition != "" {
			crs.SetDescription(opts.CRS.Definition)
		}
		header.SetCrs(crs)
	}

	gen := &featureGenerator{
		features: features,
		schema:   schema,
		hasZ:     hasZ,
	}

	var fgbWriter *writer.Writer
	if opts.InMemory {
		fgbWriter = writer.NewWriter(header, opts.IncludeIndex, gen, nil, writer.WithMemory())
	} else {
		fgbWriter = writer.NewWriter(header, opts.IncludeIndex, gen, nil)
	}

	if _, err := fgbWriter.Write(w); err != nil {
		return err
	}
	return gen.err
}

// featureGenerator feeds features to the FlatGeobuf writer.
type featureGenerator struct {
	features []*Feature
	schema   *propertySchema
	hasZ     bool
	index    int
	err      error
}

func (g *featureGenerator) Generate() *writer.Feature {
	for g.index < len(g.features) && g.err == nil {
		f := g.features[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		fgbGeom := geometryToFGB(f.Geometry, builder, g.hasZ)
		if fgbGeom == nil {
			continue // Skip unsupported geometries
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(fgbGeom)

		if len(g.schema.columns) > 0 {
			props, err := g.schema.encode(f.Properties)
			if err != nil {
				g.err = fmt.Errorf("feature %d: %w", g.index-1, err)
				return nil
			}
			if len(props) > 0 {
				feature.SetProperties(props)
			}
		}
		return feature
	}
	return nil
}

// fgbGeometryType maps a geometry to its FlatGeobuf GeometryType.
func fgbGeometryType(geom Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case Point:
		return flattypes.GeometryTypePoint
	case MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case LineString:
		return flattypes.GeometryTypeLineString
	case MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case LinearRing, Polygon:
		return flattypes.GeometryTypePolygon
	case MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case GeometryCollection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// geometryToFGB converts a geometry to a FlatGeobuf writer.Geometry. When
// hasZ is set a Z array is written, with NaN for coordinates lacking one.
func geometryToFGB(geom Geometry, builder *flatbuffers.Builder, hasZ bool) *writer.Geometry {
	if geom == nil {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(fgbGeometryType(geom))

	switch v := geom.(type) {
	case Point:
		if !v.Empty {
			setCoordinates(g, []Coordinate{v.Coord}, hasZ)
		}

	case MultiPoint:
		cs := make([]Coordinate, 0, len(v))
		for _, p := range v {
			if !p.Empty {
				cs = append(cs, p.Coord)
			}
		}
		setCoordinates(g, cs, hasZ)

	case LineString:
		setCoordinates(g, v, hasZ)

	case MultiLineString:
		parts := make([][]Coordinate, 0, len(v))
		for _, ls := range v {
			parts = append(parts, ls)
		}
		setParts(g, parts, hasZ)

	case LinearRing:
		setParts(g, [][]Coordinate{v}, hasZ)

	case Polygon:
		setParts(g, polygonParts(v), hasZ)

	case MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(builder)
			pg.SetType(flattypes.GeometryTypePolygon)
			setParts(pg, polygonParts(poly), hasZ)
			parts = append(parts, *pg)
		}
		g.SetParts(parts)

	case GeometryCollection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			childGeom := geometryToFGB(child, builder, hasZ)
			if childGeom != nil {
				parts = append(parts, *childGeom)
			}
		}
		g.SetParts(parts)

	default:
		return nil
	}

	return g
}

func polygonParts(p Polygon) [][]Coordinate {
	rings := p.Rings()
	parts := make([][]Coordinate, 0, len(rings))
	for _, r := range rings {
		parts = append(parts, r)
	}
	return parts
}

func setCoordinates(g *writer.Geometry, cs []Coordinate, hasZ bool) {
	xy := make([]float64, 0, len(cs)*2)
	for _, c := range cs {
		xy = append(xy, c.X, c.Y)
	}
	g.SetXY(xy)
	if hasZ {
		g.SetZ(zValues(cs))
	}
}

// setParts writes rings or lines as one XY array with cumulative ends.
func setParts(g *writer.Geometry, parts [][]Coordinate, hasZ bool) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}

	xy := make([]float64, 0, total*2)
	all := make([]Coordinate, 0, total)
	ends := make([]uint32, 0, len(parts))

	cumulative := uint32(0)
	for _, p := range parts {
		for _, c := range p {
			xy = append(xy, c.X, c.Y)
		}
		all = append(all, p...)
		cumulative += uint32(len(p))
		ends = append(ends, cumulative)
	}

	g.SetXY(xy)
	g.SetEnds(ends)
	if hasZ {
		g.SetZ(zValues(all))
	}
}

func zValues(cs []Coordinate) []float64 {
	z := make([]float64, 0, len(cs))
	for _, c := range cs {
		if c.HasZ {
			z = append(z, c.Z)
		} else {
			z = append(z, math.NaN())
		}
	}
	return z
}
