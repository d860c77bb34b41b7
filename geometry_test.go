package geoconv

import (
	"errors"
	"math"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

var testSquare = LinearRing{XY(0, 0), XY(10, 0), XY(10, 10), XY(0, 10), XY(0, 0)}

func TestFGBGeometryType(t *testing.T) {
	tests := []struct {
		name     string
		geom     Geometry
		expected flattypes.GeometryType
	}{
		{"Point", Point{Coord: XY(1, 2)}, flattypes.GeometryTypePoint},
		{"MultiPoint", MultiPoint{{Coord: XY(1, 2)}, {Coord: XY(3, 4)}}, flattypes.GeometryTypeMultiPoint},
		{"LineString", LineString{XY(0, 0), XY(1, 1)}, flattypes.GeometryTypeLineString},
		{"MultiLineString", MultiLineString{{XY(0, 0), XY(1, 1)}}, flattypes.GeometryTypeMultiLineString},
		{"LinearRing", testSquare, flattypes.GeometryTypePolygon},
		{"Polygon", Polygon{Shell: testSquare}, flattypes.GeometryTypePolygon},
		{"MultiPolygon", MultiPolygon{{Shell: testSquare}}, flattypes.GeometryTypeMultiPolygon},
		{"Collection", GeometryCollection{Point{Coord: XY(1, 2)}}, flattypes.GeometryTypeGeometryCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fgbGeometryType(tt.geom)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGeometryToFGB(t *testing.T) {
	tests := []struct {
		name string
		geom Geometry
	}{
		{"Point", Point{Coord: XY(1.5, 2.5)}},
		{"EmptyPoint", Point{Empty: true}},
		{"LineString", LineString{XY(0, 0), XY(1, 1), XY(2, 2)}},
		{"Polygon", Polygon{Shell: testSquare, Holes: []LinearRing{{XY(2, 2), XY(8, 2), XY(8, 8), XY(2, 2)}}}},
		{"MultiPolygon", MultiPolygon{{Shell: testSquare}, {Shell: testSquare}}},
		{"Collection", GeometryCollection{Point{Coord: XY(1, 2)}, LineString{XY(0, 0), XY(1, 1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := flatbuffers.NewBuilder(256)
			if geom := geometryToFGB(tt.geom, builder, false); geom == nil {
				t.Fatal("expected non-nil geometry")
			}
		})
	}
}

func TestGeometryToFGB_Nil(t *testing.T) {
	builder := flatbuffers.NewBuilder(256)
	if geom := geometryToFGB(nil, builder, false); geom != nil {
		t.Error("expected nil for nil geometry")
	}
}

func TestPolygonParts(t *testing.T) {
	hole := LinearRing{XY(2, 2), XY(8, 2), XY(8, 8), XY(2, 2)}
	parts := polygonParts(Polygon{Shell: testSquare, Holes: []LinearRing{hole}})

	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != 5 || len(parts[1]) != 4 {
		t.Errorf("expected part lengths 5 and 4, got %d and %d", len(parts[0]), len(parts[1]))
	}
}

func TestZValues(t *testing.T) {
	z := zValues([]Coordinate{XYZ(0, 0, 5), XY(1, 1)})
	if len(z) != 2 {
		t.Fatalf("expected 2 values, got %d", len(z))
	}
	if z[0] != 5 {
		t.Errorf("expected 5, got %v", z[0])
	}
	if !math.IsNaN(z[1]) {
		t.Errorf("expected NaN for missing Z, got %v", z[1])
	}
}

func TestHasZ(t *testing.T) {
	if HasZ(Polygon{Shell: testSquare}) {
		t.Error("expected 2D polygon")
	}
	if !HasZ(GeometryCollection{Point{Coord: XY(1, 2)}, LineString{XY(0, 0), XYZ(1, 1, 1)}}) {
		t.Error("expected nested Z to be found")
	}
	if HasZ(nil) {
		t.Error("expected nil geometry to have no Z")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		geom     Geometry
		expected bool
	}{
		{"empty point", Point{Empty: true}, true},
		{"point", Point{Coord: XY(0, 0)}, false},
		{"empty polygon", Polygon{}, true},
		{"empty collection", GeometryCollection{}, true},
		{"multipoint", MultiPoint{{Coord: XY(1, 1)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.geom.IsEmpty(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestBound(t *testing.T) {
	tests := []struct {
		name     string
		geom     Geometry
		expected orb.Bound
	}{
		{
			name:     "Point",
			geom:     Point{Coord: XY(5, 10)},
			expected: orb.Bound{Min: orb.Point{5, 10}, Max: orb.Point{5, 10}},
		},
		{
			name:     "LineString",
			geom:     LineString{XY(0, 0), XY(10, 5)},
			expected: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 5}},
		},
		{
			name:     "Polygon",
			geom:     Polygon{Shell: testSquare},
			expected: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}},
		},
		{
			name:     "Collection",
			geom:     GeometryCollection{Point{Coord: XY(-5, 3)}, LineString{XY(1, 1), XY(7, 20)}},
			expected: orb.Bound{Min: orb.Point{-5, 1}, Max: orb.Point{7, 20}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := Bound(tt.geom)
			if !ok {
				t.Fatal("expected a bound")
			}
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestBound_Empty(t *testing.T) {
	if _, ok := Bound(Point{Empty: true}); ok {
		t.Error("expected no bound for an empty point")
	}
	if _, ok := Bound(GeometryCollection{}); ok {
		t.Error("expected no bound for an empty collection")
	}
}

func TestCollectionBound(t *testing.T) {
	fc := &FeatureCollection{Features: []*Feature{
		{Geometry: Point{Coord: XY(0, 0)}},
		{Geometry: Point{Empty: true}},
		{},
		{Geometry: Point{Coord: XY(10, 10)}},
	}}

	bound, ok := collectionBound(fc)
	if !ok {
		t.Fatal("expected a bound")
	}
	expected := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	if bound != expected {
		t.Errorf("expected %v, got %v", expected, bound)
	}

	if _, ok := collectionBound(&FeatureCollection{}); ok {
		t.Error("expected no bound for an empty collection")
	}
}

func TestOrbConversion(t *testing.T) {
	poly := Polygon{Shell: testSquare, Holes: []LinearRing{{XY(2, 2), XY(8, 2), XY(8, 8), XY(2, 2)}}}

	o, ok := ToOrb(poly).(orb.Polygon)
	if !ok {
		t.Fatalf("expected orb.Polygon, got %T", ToOrb(poly))
	}
	if len(o) != 2 || o[1][1] != (orb.Point{8, 2}) {
		t.Errorf("unexpected orb polygon %v", o)
	}

	back, ok := FromOrb(o).(Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", FromOrb(o))
	}
	if len(back.Shell) != 5 || len(back.Holes) != 1 {
		t.Errorf("unexpected polygon %v", back)
	}

	if ToOrb(Point{Empty: true}) != nil {
		t.Error("expected nil for an empty point")
	}
}

func TestFromOrb_Bound(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 20}}

	poly, ok := FromOrb(bound).(Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", FromOrb(bound))
	}
	if len(poly.Shell) != 5 {
		t.Errorf("expected 5 points in ring, got %d", len(poly.Shell))
	}
	if poly.Shell[0] != poly.Shell[4] {
		t.Error("ring should be closed")
	}
}

func TestReproject(t *testing.T) {
	shift := func(x, y float64) (float64, float64, error) { return x + 1, y * 2, nil }

	in := GeometryCollection{
		Point{Coord: XYZ(1, 2, 3)},
		Point{Empty: true},
		Polygon{Shell: testSquare},
	}
	out, err := Reproject(in, shift)
	if err != nil {
		t.Fatalf("Reproject failed: %v", err)
	}

	gc := out.(GeometryCollection)
	if p := gc[0].(Point); p.Coord != XYZ(2, 4, 3) {
		t.Errorf("expected (2 4 3), got %v", p.Coord)
	}
	if !gc[1].IsEmpty() {
		t.Error("expected empty point to stay empty")
	}
	if shell := gc[2].(Polygon).Shell; shell[2] != XY(11, 20) {
		t.Errorf("expected (11 20), got %v", shell[2])
	}
	if in[0].(Point).Coord != XYZ(1, 2, 3) {
		t.Error("input must not be modified")
	}
}

func TestReproject_Error(t *testing.T) {
	errBoom := errors.New("boom")
	calls := 0
	fail := func(x, y float64) (float64, float64, error) {
		calls++
		return 0, 0, errBoom
	}

	_, err := Reproject(LineString{XY(0, 0), XY(1, 1), XY(2, 2)}, fail)
	if !errors.Is(err, errBoom) {
		t.Errorf("expected errBoom, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the first error to stop, got %d calls", calls)
	}
}

func TestReprojectObject_Feature(t *testing.T) {
	shift := func(x, y float64) (float64, float64, error) { return x + 1, y, nil }
	f := &Feature{Geometry: Point{Coord: XY(1, 1)}, Properties: []byte(`{"a":1}`)}

	out, err := ReprojectObject(&FeatureCollection{Features: []*Feature{f}, HasBBox: true}, shift)
	if err != nil {
		t.Fatalf("ReprojectObject failed: %v", err)
	}

	fc := out.(*FeatureCollection)
	if !fc.HasBBox {
		t.Error("expected HasBBox to be kept")
	}
	if fc.Features[0] == f {
		t.Error("expected a copied feature")
	}
	if p := fc.Features[0].Geometry.(Point); p.Coord.X != 2 {
		t.Errorf("expected X 2, got %v", p.Coord.X)
	}
	if string(fc.Features[0].Properties) != `{"a":1}` {
		t.Errorf("unexpected properties %s", fc.Features[0].Properties)
	}
}
