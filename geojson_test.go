package geoconv

import (
	"errors"
	"strings"
	"testing"
)

func TestParseGeoJSON_Geometries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Geometry
	}{
		{
			name:     "Point",
			input:    `{"type":"Point","coordinates":[30,10]}`,
			expected: Point{Coord: XY(30, 10)},
		},
		{
			name:     "Point Z",
			input:    `{"type":"Point","coordinates":[1,2,3]}`,
			expected: Point{Coord: XYZ(1, 2, 3)},
		},
		{
			name:     "Empty Point",
			input:    `{"type":"Point","coordinates":[]}`,
			expected: Point{Empty: true},
		},
		{
			name:     "LineString",
			input:    `{"type":"LineString","coordinates":[[30,10],[10,30],[40,40]]}`,
			expected: LineString{XY(30, 10), XY(10, 30), XY(40, 40)},
		},
		{
			name:     "MultiPoint",
			input:    `{"type":"MultiPoint","coordinates":[[10,40],[40,30]]}`,
			expected: MultiPoint{{Coord: XY(10, 40)}, {Coord: XY(40, 30)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseGeoJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseGeoJSON failed: %v", err)
			}
			got, err := MarshalWKT(obj.(Geometry))
			if err != nil {
				t.Fatalf("MarshalWKT failed: %v", err)
			}
			want, _ := MarshalWKT(tt.expected)
			if got != want {
				t.Errorf("expected %s, got %s", want, got)
			}
		})
	}
}

func TestParseGeoJSON_Polygon(t *testing.T) {
	input := `{"type":"Polygon","coordinates":[[[35,10],[45,45],[15,40],[10,20],[35,10]],[[20,30],[35,35],[30,20],[20,30]]]}`

	obj, err := ParseGeoJSON([]byte(input))
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	poly, ok := obj.(Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", obj)
	}
	if len(poly.Shell) != 5 {
		t.Errorf("expected 5 shell points, got %d", len(poly.Shell))
	}
	if len(poly.Holes) != 1 || len(poly.Holes[0]) != 4 {
		t.Errorf("expected one hole of 4 points, got %v", poly.Holes)
	}
}

func TestParseGeoJSON_Feature(t *testing.T) {
	input := `{"type":"Feature","id":"a1","bbox":[0,0,1,1],"geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"x"}}`

	obj, err := ParseGeoJSON([]byte(input))
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	f, ok := obj.(*Feature)
	if !ok {
		t.Fatalf("expected *Feature, got %T", obj)
	}
	if string(f.ID) != `"a1"` {
		t.Errorf("expected id \"a1\", got %s", f.ID)
	}
	if !f.HasBBox {
		t.Error("expected HasBBox")
	}
	if string(f.Properties) != `{"name":"x"}` {
		t.Errorf("unexpected properties %s", f.Properties)
	}
	if f.Geometry.(Point).Coord != XY(1, 2) {
		t.Errorf("unexpected geometry %v", f.Geometry)
	}
}

func TestParseGeoJSON_NullGeometry(t *testing.T) {
	obj, err := ParseGeoJSON([]byte(`{"type":"Feature","geometry":null,"properties":null}`))
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	f := obj.(*Feature)
	if f.Geometry != nil {
		t.Errorf("expected nil geometry, got %v", f.Geometry)
	}
	if f.Properties != nil {
		t.Errorf("expected nil properties, got %s", f.Properties)
	}
}

func TestParseGeoJSON_FeatureCollection(t *testing.T) {
	input := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}},
		{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[3,4]}]},"properties":null}
	]}`

	obj, err := ParseGeoJSON([]byte(input))
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	fc, ok := obj.(*FeatureCollection)
	if !ok {
		t.Fatalf("expected *FeatureCollection, got %T", obj)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	if _, ok := fc.Features[1].Geometry.(GeometryCollection); !ok {
		t.Errorf("expected GeometryCollection, got %T", fc.Features[1].Geometry)
	}
}

func TestParseGeoJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{bad`},
		{"missing type", `{"coordinates":[1,2]}`},
		{"unknown type", `{"type":"Circle","coordinates":[1,2]}`},
		{"short position", `{"type":"Point","coordinates":[1]}`},
		{"string coordinates", `{"type":"Point","coordinates":["a","b"]}`},
		{"feature member", `{"type":"FeatureCollection","features":[{"type":"Point","coordinates":[1,2]}]}`},
		{"array", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeoJSON([]byte(tt.input))
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestMarshalGeoJSON_Point(t *testing.T) {
	got, err := MarshalGeoJSON(Point{Coord: XY(30, 10)}, IndentNone)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	expected := `{"type":"Point","coordinates":[30.0,10.0]}`
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestMarshalGeoJSON_Indentation(t *testing.T) {
	tests := []struct {
		indent   Indentation
		contains string
	}{
		{IndentTwoSpaces, "\n  \"type\": \"Point\""},
		{IndentFourSpaces, "\n    \"type\": \"Point\""},
	}

	for _, tt := range tests {
		t.Run(tt.indent.String(), func(t *testing.T) {
			got, err := MarshalGeoJSON(Point{Coord: XY(1, 2)}, tt.indent)
			if err != nil {
				t.Fatalf("MarshalGeoJSON failed: %v", err)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("expected %q in %s", tt.contains, got)
			}
			if strings.HasSuffix(got, "\n") {
				t.Error("expected no trailing newline")
			}
		})
	}
}

func TestMarshalGeoJSON_Feature(t *testing.T) {
	f := &Feature{
		ID:         []byte(`7`),
		Geometry:   LineString{XYZ(0, 0, 5), XYZ(2, 3, 6)},
		Properties: []byte(`{"name":"<road>"}`),
		HasBBox:    true,
	}

	got, err := MarshalGeoJSON(f, IndentNone)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	expected := `{"type":"Feature","id":7,"bbox":[0.0,0.0,2.0,3.0],"geometry":{"type":"LineString","coordinates":[[0.0,0.0,5.0],[2.0,3.0,6.0]]},"properties":{"name":"<road>"}}`
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestMarshalGeoJSON_NullMembers(t *testing.T) {
	got, err := MarshalGeoJSON(&Feature{}, IndentNone)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	expected := `{"type":"Feature","geometry":null,"properties":null}`
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestMarshalGeoJSON_Collections(t *testing.T) {
	fc := &FeatureCollection{Features: []*Feature{
		{Geometry: GeometryCollection{Point{Coord: XY(1, 2)}}},
	}}

	got, err := MarshalGeoJSON(fc, IndentNone)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	expected := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1.0,2.0]}]},"properties":null}]}`
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}

	empty, err := MarshalGeoJSON(&FeatureCollection{}, IndentNone)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	if empty != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("unexpected empty collection %s", empty)
	}
}

func TestMarshalGeoJSON_NonFinite(t *testing.T) {
	_, err := MarshalGeoJSON(Point{Coord: XY(1, nan())}, IndentNone)
	if err == nil {
		t.Error("expected error for NaN coordinate")
	}
}

func TestMarshalGeoJSON_Nil(t *testing.T) {
	_, err := MarshalGeoJSON(nil, IndentNone)
	if !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry, got %v", err)
	}
}

func TestGeoJSON_RoundTrip(t *testing.T) {
	input := `{"type":"MultiPolygon","coordinates":[[[[40.5,40.25],[20.0,45.0],[45.0,30.0],[40.5,40.25]]],[[[20.0,35.0],[10.0,30.0],[10.0,10.0],[20.0,35.0]]]]}`

	obj, err := ParseGeoJSON([]byte(input))
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	got, err := MarshalGeoJSON(obj, IndentNone)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	if got != input {
		t.Errorf("expected %s, got %s", input, got)
	}
}
