package geoconv

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteGeometries_Points(t *testing.T) {
	geometries := []Geometry{
		Point{Coord: XY(1, 2)},
		Point{Coord: XY(3, 4)},
		Point{Coord: XY(5, 6)},
	}

	var buf bytes.Buffer
	err := WriteGeometries(&buf, geometries, DefaultFlatGeobufOptions())
	if err != nil {
		t.Fatalf("WriteGeometries failed: %v", err)
	}

	// Check magic bytes
	data := buf.Bytes()
	if len(data) < 8 {
		t.Fatal("output too short")
	}

	expectedMagic := []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}
	for i, b := range expectedMagic {
		if data[i] != b {
			t.Errorf("magic byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func TestWriteGeometries_LineStrings(t *testing.T) {
	geometries := []Geometry{
		LineString{XY(0, 0), XY(1, 1), XY(2, 2)},
		LineString{XY(5, 5), XY(6, 6)},
	}

	var buf bytes.Buffer
	if err := WriteGeometries(&buf, geometries, DefaultFlatGeobufOptions()); err != nil {
		t.Fatalf("WriteGeometries failed: %v", err)
	}

	if buf.Len() == 0 {
		t.Error("expected non-empty output")
	}
}

func TestWriteGeometries_MixedGeometries(t *testing.T) {
	geometries := []Geometry{
		Point{Coord: XY(1, 2)},
		LineString{XY(0, 0), XY(1, 1)},
	}

	var buf bytes.Buffer
	if err := WriteGeometries(&buf, geometries, DefaultFlatGeobufOptions()); err != nil {
		t.Fatalf("WriteGeometries failed: %v", err)
	}

	fc, header, err := ReadFlatGeobuf(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadFlatGeobuf failed: %v", err)
	}
	if header.GeometryType != "Unknown" {
		t.Errorf("expected geometry type 'Unknown', got %q", header.GeometryType)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}
}

func TestWriteGeometries_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteGeometries(&buf, nil, DefaultFlatGeobufOptions())
	if !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
}

func TestWriteFlatGeobuf_WithOptions(t *testing.T) {
	fc := &FeatureCollection{Features: []*Feature{
		{Geometry: Point{Coord: XY(4.9, 52.37)}},
	}}
	opts := FlatGeobufOptions{
		Name:         "cities",
		Description:  "Capital cities",
		IncludeIndex: true,
		InMemory:     true,
		CRS:          &CRS{Code: 4326, Name: "WGS 84", Definition: "+proj=longlat +datum=WGS84 +no_defs"},
	}

	var buf bytes.Buffer
	if err := WriteFlatGeobuf(&buf, fc, opts); err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}

	r, err := NewFlatGeobufReader(buf.Bytes())
	if err != nil {
		t.Fatalf("NewFlatGeobufReader failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	h := r.Header()
	if h.Name != "cities" {
		t.Errorf("expected name 'cities', got %q", h.Name)
	}
	if h.Description != "Capital cities" {
		t.Errorf("expected description 'Capital cities', got %q", h.Description)
	}
	if h.CRS == nil {
		t.Fatal("expected CRS in header")
	}
	if h.CRS.Code != 4326 {
		t.Errorf("expected CRS code 4326, got %d", h.CRS.Code)
	}
	if h.CRS.Name != "WGS 84" {
		t.Errorf("expected CRS name 'WGS 84', got %q", h.CRS.Name)
	}
	if h.CRS.Definition != opts.CRS.Definition {
		t.Errorf("expected CRS definition %q, got %q", opts.CRS.Definition, h.CRS.Definition)
	}
}

func TestWriteFlatGeobuf_NoIndex(t *testing.T) {
	fc := &FeatureCollection{Features: []*Feature{
		{Geometry: Point{Coord: XY(1, 2)}},
		{Geometry: Point{Coord: XY(3, 4)}},
	}}
	opts := DefaultFlatGeobufOptions()
	opts.IncludeIndex = false

	var buf bytes.Buffer
	if err := WriteFlatGeobuf(&buf, fc, opts); err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}

	r, err := NewFlatGeobufReader(buf.Bytes())
	if err != nil {
		t.Fatalf("NewFlatGeobufReader failed: %v", err)
	}
	h := r.Header()
	if h.HasIndex {
		t.Error("expected HasIndex to be false")
	}
	if h.FeaturesCount != 2 {
		t.Errorf("expected 2 features, got %d", h.FeaturesCount)
	}
	if _, err := r.ReadAll(); !errors.Is(err, ErrNoIndex) {
		t.Errorf("expected ErrNoIndex, got %v", err)
	}
}

func TestWriteFlatGeobuf_NilCollection(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFlatGeobuf(&buf, nil, DefaultFlatGeobufOptions())
	if !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
}

func TestWriteFlatGeobuf_SkipsNilGeometry(t *testing.T) {
	fc := &FeatureCollection{Features: []*Feature{
		{Properties: json.RawMessage(`{"name":"nowhere"}`)},
		nil,
	}}

	var buf bytes.Buffer
	err := WriteFlatGeobuf(&buf, fc, DefaultFlatGeobufOptions())
	if !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
}

func TestWriteFlatGeobuf_InvalidProperties(t *testing.T) {
	fc := &FeatureCollection{Features: []*Feature{
		{Geometry: Point{Coord: XY(1, 2)}, Properties: json.RawMessage(`[1,2]`)},
	}}

	var buf bytes.Buffer
	err := WriteFlatGeobuf(&buf, fc, DefaultFlatGeobufOptions())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWriteFlatGeobuf_ComplexGeometries(t *testing.T) {
	square := func(x, y, size float64) LinearRing {
		return LinearRing{XY(x, y), XY(x+size, y), XY(x+size, y+size), XY(x, y+size), XY(x, y)}
	}

	fc := &FeatureCollection{Features: []*Feature{
		{Geometry: Polygon{Shell: square(0, 0, 10), Holes: []LinearRing{square(2, 2, 6)}}},
		{Geometry: MultiPolygon{
			{Shell: square(0, 0, 5)},
			{Shell: square(10, 10, 5)},
		}},
		{Geometry: MultiLineString{
			{XY(0, 0), XY(1, 1)},
			{XY(2, 2), XY(3, 3)},
		}},
		{Geometry: GeometryCollection{
			Point{Coord: XY(1, 2)},
			LineString{XY(0, 0), XY(1, 1)},
		}},
	}}

	var buf bytes.Buffer
	if err := WriteFlatGeobuf(&buf, fc, DefaultFlatGeobufOptions()); err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}

	if buf.Len() == 0 {
		t.Error("expected non-empty output")
	}
}

func TestDefaultFlatGeobufOptions(t *testing.T) {
	opts := DefaultFlatGeobufOptions()

	if !opts.IncludeIndex {
		t.Error("expected IncludeIndex to be true by default")
	}
	if opts.CRS != nil {
		t.Errorf("expected no default CRS, got %v", opts.CRS)
	}
}
