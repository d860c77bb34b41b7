package geoconv

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/ctessum/geom/proj"
)

// Projector builds the coordinate function that maps positions in src to
// positions in dst.
type Projector interface {
	Pipeline(src, dst *CRS) (ProjectFunc, error)
}

// hubDefinition is the geographic WGS 84 system every pipeline passes
// through.
const hubDefinition = "+proj=longlat +datum=WGS84 +no_defs"

// titleParam matches the +title parameter, whose quoted value may itself
// contain '+' or '='.
var titleParam = regexp.MustCompile(`\+title=("[^"]*"|\S+)`)

// datumParams are the proj4 parameters that describe a geodetic datum.
var datumParams = map[string]bool{
	"datum":    true,
	"ellps":    true,
	"a":        true,
	"b":        true,
	"rf":       true,
	"towgs84":  true,
	"nadgrids": true,
	"pm":       true,
}

// ProjProjector builds pipelines from proj4 definitions using
// github.com/ctessum/geom/proj. Methods that library lacks (sterea, somerc,
// laea, eqc) are projected locally, with the datum shift still done by the
// library.
type ProjProjector struct{}

// NewProjProjector returns a ProjProjector.
func NewProjProjector() *ProjProjector {
	return &ProjProjector{}
}

// Pipeline implements Projector.
func (p *ProjProjector) Pipeline(src, dst *CRS) (ProjectFunc, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: nil coordinate system", ErrProjection)
	}
	if src.Code == dst.Code {
		return identity, nil
	}

	hub, err := proj.Parse(hubDefinition)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjection, err)
	}
	from, err := newStage(src, hub)
	if err != nil {
		return nil, err
	}
	to, err := newStage(dst, hub)
	if err != nil {
		return nil, err
	}
	pl := &pipeline{src: src.Code, dst: dst.Code, from: from, to: to}
	return pl.project, nil
}

func identity(x, y float64) (float64, float64, error) {
	return x, y, nil
}

// stage moves coordinates between one CRS and the WGS 84 hub.
type stage struct {
	toHub   proj.Transformer
	fromHub proj.Transformer

	// forward and inverse are set for locally implemented methods; they
	// convert between projected metres and geographic radians on the
	// CRS's own datum.
	forward proj.Transformer
	inverse proj.Transformer
}

func newStage(c *CRS, hub *proj.SR) (*stage, error) {
	def := strings.TrimSpace(titleParam.ReplaceAllString(c.Definition, ""))
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("%w: EPSG:%d: %v", ErrProjection, c.Code, err)
	}

	s := &stage{}
	geo := sr
	if _, _, err := sr.Transformers(); err != nil {
		method, ok := extraMethods[strings.ToLower(sr.Name)]
		if !ok {
			return nil, fmt.Errorf("%w: EPSG:%d: no projector for method %q", ErrProjection, c.Code, sr.Name)
		}
		if s.forward, s.inverse, err = method(sr); err != nil {
			return nil, fmt.Errorf("%w: EPSG:%d: %v", ErrProjection, c.Code, err)
		}
		if geo, err = proj.Parse(geographicDefinition(def)); err != nil {
			return nil, fmt.Errorf("%w: EPSG:%d: %v", ErrProjection, c.Code, err)
		}
	}

	if s.toHub, err = geo.NewTransform(hub); err != nil {
		return nil, fmt.Errorf("%w: EPSG:%d: %v", ErrProjection, c.Code, err)
	}
	if s.fromHub, err = hub.NewTransform(geo); err != nil {
		return nil, fmt.Errorf("%w: EPSG:%d: %v", ErrProjection, c.Code, err)
	}
	return s, nil
}

// geographicDefinition returns the longlat system sharing the datum of def.
func geographicDefinition(def string) string {
	parts := []string{"+proj=longlat"}
	for _, field := range strings.Fields(def) {
		key, _, _ := strings.Cut(strings.TrimPrefix(field, "+"), "=")
		if datumParams[strings.ToLower(key)] {
			parts = append(parts, field)
		}
	}
	return strings.Join(append(parts, "+no_defs"), " ")
}

func (s *stage) toWGS84(x, y float64) (float64, float64, error) {
	var err error
	if s.inverse != nil {
		if x, y, err = s.inverse(x, y); err != nil {
			return 0, 0, err
		}
		x, y = x*180/math.Pi, y*180/math.Pi
	}
	if s.toHub != nil {
		return s.toHub(x, y)
	}
	return x, y, nil
}

func (s *stage) fromWGS84(x, y float64) (float64, float64, error) {
	var err error
	if s.fromHub != nil {
		if x, y, err = s.fromHub(x, y); err != nil {
			return 0, 0, err
		}
	}
	if s.forward != nil {
		return s.forward(x*math.Pi/180, y*math.Pi/180)
	}
	return x, y, nil
}

// pipeline is a cached src to WGS 84 to dst transform. The underlying
// spatial references are not safe for concurrent use, so calls are
// serialized.
type pipeline struct {
	src, dst int

	mu   sync.Mutex
	from *stage
	to   *stage
}

func (p *pipeline) project(x, y float64) (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	x, y, err := p.from.toWGS84(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: EPSG:%d to WGS 84: %v", ErrProjection, p.src, err)
	}
	if x, y, err = p.to.fromWGS84(x, y); err != nil {
		return 0, 0, fmt.Errorf("%w: WGS 84 to EPSG:%d: %v", ErrProjection, p.dst, err)
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, fmt.Errorf("%w: EPSG:%d to EPSG:%d produced a non-finite coordinate", ErrProjection, p.src, p.dst)
	}
	return x, y, nil
}
