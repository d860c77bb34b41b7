package geoconv

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func projectTest(t *testing.T, reg *Registry, src, dst int, x, y float64) (float64, float64) {
	t.Helper()

	fn, err := reg.Pipeline(src, dst)
	if err != nil {
		t.Fatalf("Pipeline(%d, %d) failed: %v", src, dst, err)
	}
	px, py, err := fn(x, y)
	if err != nil {
		t.Fatalf("project (%v %v) from %d to %d failed: %v", x, y, src, dst, err)
	}
	return px, py
}

func TestProjProjector_KnownPoints(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name      string
		src, dst  int
		x, y      float64
		ex, ey    float64
		tolerance float64
	}{
		{"Amsterdam to Web Mercator", 4326, 3857, 4.9041, 52.3676, 545921.9148, 6866867.1220, 0.01},
		{"antimeridian to Web Mercator", 4326, 3857, 180, 0, 20037508.3428, 0, 0.01},
		{"UTM 31N central meridian", 4326, 32631, 3, 0, 500000, 0, 0.01},
		{"LAEA Europe origin", 4326, 3035, 10, 52, 4321000, 3210000, 0.01},
		{"World Equidistant Cylindrical", 4326, 4087, 10, 20, 1113194.9079, 2226389.8159, 0.01},
		{"RD New origin", 4326, 28992, 5.38720621, 52.15517440, 155000, 463000, 5},
		{"LV95 origin", 4326, 2056, 7.438637, 46.951081, 2600000, 1200000, 5},
		{"Antarctic true-scale latitude", 4326, 3031, 0, -71, 0, 2082760.1085, 0.01},
		{"NSIDC north", 4326, 3413, 0, 70, 1547098.4776, -1547098.4776, 0.01},
		{"UPS north", 4326, 32661, 0, 80, 2000000, 887048.8630, 0.01},
		{"UPS south pole", 4326, 32761, 0, -90, 2000000, 2000000, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := projectTest(t, reg, tt.src, tt.dst, tt.x, tt.y)
			if math.Abs(x-tt.ex) > tt.tolerance || math.Abs(y-tt.ey) > tt.tolerance {
				t.Errorf("expected (%.4f %.4f), got (%.4f %.4f)", tt.ex, tt.ey, x, y)
			}
		})
	}
}

func TestProjProjector_RoundTrip(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		code int
		lon  float64
		lat  float64
	}{
		{"Web Mercator", 3857, 4.9041, 52.3676},
		{"RD New", 28992, 4.9041, 52.3676},
		{"LV95", 2056, 8.5417, 47.3769},
		{"LV03", 21781, 6.1432, 46.2044},
		{"LAEA Europe", 3035, 2.3522, 48.8566},
		{"British National Grid", 27700, -0.1276, 51.5072},
		{"Lambert 93", 2154, 2.3522, 48.8566},
		{"UTM 32N", 32632, 9.1900, 45.4642},
		{"Plate Carree", 32662, -73.9857, 40.7484},
		{"NAD83", 4269, -77.0369, 38.9072},
		{"Antarctic Polar Stereographic", 3031, 166.6863, -77.8419},
		{"NSIDC Sea Ice North", 3413, -51.7216, 64.1836},
		{"UPS South", 32761, -120.5, -85.25},
		{"RGF93 CC46", 3946, 4.8357, 45.7640},
		{"HD72 EOV", 23700, 19.0402, 47.4979},
		{"NTM zone 10", 5110, 10.7522, 59.9139},
		{"Tokyo CS IX", 30169, 139.6917, 35.6895},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := projectTest(t, reg, 4326, tt.code, tt.lon, tt.lat)
			lon, lat := projectTest(t, reg, tt.code, 4326, x, y)
			if math.Abs(lon-tt.lon) > 1e-6 || math.Abs(lat-tt.lat) > 1e-6 {
				t.Errorf("round trip through EPSG:%d: expected (%v %v), got (%v %v)", tt.code, tt.lon, tt.lat, lon, lat)
			}
		})
	}
}

func TestProjProjector_BetweenProjected(t *testing.T) {
	reg := testRegistry(t)

	// Amsterdam through RD New to Web Mercator must match the direct route.
	rx, ry := projectTest(t, reg, 4326, 28992, 4.9041, 52.3676)
	mx, my := projectTest(t, reg, 28992, 3857, rx, ry)
	if math.Abs(mx-545921.9148) > 0.01 || math.Abs(my-6866867.1220) > 0.01 {
		t.Errorf("expected (545921.9148 6866867.1220), got (%.4f %.4f)", mx, my)
	}
}

func TestProjProjector_Identity(t *testing.T) {
	p := NewProjProjector()
	c := &CRS{Code: 4326, Definition: "+proj=longlat +datum=WGS84 +no_defs"}

	fn, err := p.Pipeline(c, c)
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	x, y, err := fn(1.5, 2.5)
	if err != nil || x != 1.5 || y != 2.5 {
		t.Errorf("expected (1.5 2.5), got (%v %v) %v", x, y, err)
	}
}

func TestProjProjector_UnsupportedMethod(t *testing.T) {
	reg := testRegistry(t)

	_, err := reg.Pipeline(4326, 5880)
	if !errors.Is(err, ErrProjection) {
		t.Fatalf("expected ErrProjection, got %v", err)
	}
	if !strings.Contains(err.Error(), "no projector for method") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestProjProjector_BadDefinition(t *testing.T) {
	p := NewProjProjector()
	src := &CRS{Code: 4326, Definition: "+proj=longlat +datum=WGS84 +no_defs"}
	dst := &CRS{Code: 1, Definition: "not a definition"}

	if _, err := p.Pipeline(src, dst); !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection, got %v", err)
	}
	if _, err := p.Pipeline(nil, dst); !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection for nil CRS, got %v", err)
	}
}

func TestProjProjector_NonFinite(t *testing.T) {
	reg := testRegistry(t)

	fn, err := reg.Pipeline(4326, 3857)
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if _, _, err := fn(0, 90); !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection at the pole, got %v", err)
	}
}

func TestPolarStereographic_Aspect(t *testing.T) {
	p := NewProjProjector()
	src := &CRS{Code: 4326, Definition: "+proj=longlat +datum=WGS84 +no_defs"}
	dst := &CRS{Code: 1, Definition: "+proj=stere +lat_0=45 +lon_0=0 +k=1 +datum=WGS84 +units=m +no_defs"}

	if _, err := p.Pipeline(src, dst); !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection for an oblique aspect, got %v", err)
	}
}

func TestGeographicDefinition(t *testing.T) {
	def := "+proj=sterea +lat_0=52.15 +lon_0=5.38 +k=0.9999079 +x_0=155000 +y_0=463000 +ellps=bessel +towgs84=565.417,50.3319 +units=m +no_defs"
	expected := "+proj=longlat +ellps=bessel +towgs84=565.417,50.3319 +no_defs"

	if got := geographicDefinition(def); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestTitleParam(t *testing.T) {
	def := `+title="CH1903+ / LV95" +proj=somerc +lat_0=46.95`
	got := strings.TrimSpace(titleParam.ReplaceAllString(def, ""))
	if got != "+proj=somerc +lat_0=46.95" {
		t.Errorf("unexpected definition %q", got)
	}
}
