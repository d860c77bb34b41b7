package geoconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Messages returned by Convert when the input cannot be read.
const (
	InvalidGeoJSONMessage = "Invalid GeoJSON"
	InvalidWKTMessage     = "Invalid WKT"
)

// Transformer converts geometry text between formats and coordinate systems.
// It is safe for concurrent use.
type Transformer struct {
	registry *Registry
	logger   *zerolog.Logger
}

// NewTransformer returns a Transformer resolving codes through reg. A nil
// reg uses the embedded database; a nil logger uses the global logger.
func NewTransformer(reg *Registry, logger *zerolog.Logger) *Transformer {
	if reg == nil {
		reg = NewRegistry(DefaultRegistryOptions())
	}
	if logger == nil {
		logger = &log.Logger
	}
	return &Transformer{registry: reg, logger: logger}
}

// Registry returns the registry the transformer resolves codes with.
func (t *Transformer) Registry() *Registry {
	return t.registry
}

// Transform reprojects input from EPSG code src to dst.
//
// Blank input fails with empty data. When src equals dst the input is
// returned unchanged without being parsed. WKT input is processed line by
// line: a line that fails is replaced by "<Error: message>" and the batch
// continues. Any other failure is reported in Data with a
// "Transformation error: " prefix; for an unknown code the message contains
// "not supported".
func (t *Transformer) Transform(ctx context.Context, input string, format Format, src, dst int, indent Indentation) Result {
	if strings.TrimSpace(input) == "" {
		return failed(ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("%w: %v", ErrCancelled, err))
	}
	if src == dst {
		return succeeded(input)
	}

	out, err := t.transform(ctx, input, format, src, dst, indent)
	if err == nil {
		if cerr := ctx.Err(); cerr != nil {
			err = fmt.Errorf("%w: %v", ErrCancelled, cerr)
		}
	}
	if err != nil {
		if !errors.Is(err, ErrCancelled) {
			t.logger.Error().Err(err).
				Str("format", format.String()).
				Int("source", src).
				Int("target", dst).
				Msg("CRS transformation error")
		}
		return failed(err)
	}
	return succeeded(out)
}

func (t *Transformer) transform(ctx context.Context, input string, format Format, src, dst int, indent Indentation) (string, error) {
	fn, err := t.registry.Pipeline(src, dst)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatGeoJSON:
		obj, err := ParseGeoJSON([]byte(input))
		if err != nil {
			return "", err
		}
		out, err := ReprojectObject(obj, fn)
		if err != nil {
			return "", err
		}
		return MarshalGeoJSON(out, indent)
	case FormatWKT:
		return transformWKTLines(ctx, input, fn, func(line int, err error) {
			t.logger.Warn().Err(err).Int("line", line).Msg("WKT line failed")
		})
	default:
		return "", fmt.Errorf("%w: input format %v is not supported", ErrInvalidInput, format)
	}
}

// TransformCoordinate reprojects a single coordinate. Z is carried through.
func (t *Transformer) TransformCoordinate(src, dst int, c Coordinate) (Coordinate, error) {
	fn, err := t.registry.Pipeline(src, dst)
	if err != nil {
		return Coordinate{}, err
	}
	return projectCoordinate(c, fn)
}

// Convert rewrites input from one format to another without reprojecting.
//
// GeoJSON to WKT writes a Feature as its geometry and a FeatureCollection as
// a GEOMETRYCOLLECTION. WKT to GeoJSON writes a single line as a bare
// geometry and several lines as a GeometryCollection. Converting a format to
// itself normalizes it.
func (t *Transformer) Convert(ctx context.Context, input string, from, to Format, indent Indentation) Result {
	if strings.TrimSpace(input) == "" {
		return failed(ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("%w: %v", ErrCancelled, err))
	}

	g, obj, err := t.read(input, from)
	if err != nil {
		t.logger.Error().Err(err).Str("format", from.String()).Msg("conversion input rejected")
		msg := InvalidGeoJSONMessage
		if from == FormatWKT {
			msg = InvalidWKTMessage
		}
		return Result{Data: msg + ": " + err.Error()}
	}

	var out string
	switch to {
	case FormatWKT:
		out, err = MarshalWKT(g)
	case FormatGeoJSON:
		if obj == nil {
			obj = g
		}
		out, err = MarshalGeoJSON(obj, indent)
	default:
		err = fmt.Errorf("%w: output format %v is not supported", ErrInvalidInput, to)
	}
	if err != nil {
		t.logger.Error().Err(err).Str("format", to.String()).Msg("conversion output failed")
		return failed(err)
	}
	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("%w: %v", ErrCancelled, err))
	}
	return succeeded(out)
}

// read parses input as a geometry. For GeoJSON it also returns the parsed
// object so features survive a GeoJSON to GeoJSON conversion.
func (t *Transformer) read(input string, format Format) (Geometry, Object, error) {
	switch format {
	case FormatGeoJSON:
		obj, err := ParseGeoJSON([]byte(input))
		if err != nil {
			return nil, nil, err
		}
		g, err := objectGeometry(obj)
		return g, obj, err
	case FormatWKT:
		lines := WKTLines(input)
		geoms := make(GeometryCollection, 0, len(lines))
		for i, line := range lines {
			g, err := ParseWKT(line)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			geoms = append(geoms, g)
		}
		if len(geoms) == 1 {
			return geoms[0], nil, nil
		}
		return geoms, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: input format %v is not supported", ErrInvalidInput, format)
	}
}

// objectGeometry flattens a GeoJSON object to a single geometry.
func objectGeometry(obj Object) (Geometry, error) {
	switch v := obj.(type) {
	case Geometry:
		return v, nil
	case *Feature:
		if v.Geometry == nil {
			return nil, fmt.Errorf("%w: feature has no geometry", ErrInvalidInput)
		}
		return v.Geometry, nil
	case *FeatureCollection:
		return GeometryCollection(v.Geometries()), nil
	default:
		return nil, fmt.Errorf("%w: unexpected object %T", ErrInvalidInput, obj)
	}
}

// ExportFlatGeobuf reprojects input from src to dst and writes it to w as a
// FlatGeobuf file. WKT lines become features without properties. When
// opts.CRS is nil the target CRS is recorded in the header.
func (t *Transformer) ExportFlatGeobuf(ctx context.Context, input string, format Format, src, dst int, w io.Writer, opts FlatGeobufOptions) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	fc, err := readFeatures(input, format)
	if err != nil {
		return err
	}
	if src != dst {
		fn, err := t.registry.Pipeline(src, dst)
		if err != nil {
			return err
		}
		out, err := ReprojectObject(fc, fn)
		if err != nil {
			return err
		}
		fc = out.(*FeatureCollection)
	}
	if opts.CRS == nil {
		crs, err := t.registry.Resolve(dst)
		if err != nil {
			return err
		}
		opts.CRS = crs
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	t.logger.Debug().Int("features", len(fc.Features)).Int("target", dst).Msg("writing FlatGeobuf")
	return WriteFlatGeobuf(w, fc, opts)
}

// readFeatures parses input into a feature collection.
func readFeatures(input string, format Format) (*FeatureCollection, error) {
	switch format {
	case FormatGeoJSON:
		obj, err := ParseGeoJSON([]byte(input))
		if err != nil {
			return nil, err
		}
		return asFeatureCollection(obj), nil
	case FormatWKT:
		fc := &FeatureCollection{}
		for i, line := range WKTLines(input) {
			g, err := ParseWKT(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			fc.Features = append(fc.Features, &Feature{Geometry: g})
		}
		return fc, nil
	default:
		return nil, fmt.Errorf("%w: input format %v is not supported", ErrInvalidInput, format)
	}
}

func asFeatureCollection(obj Object) *FeatureCollection {
	switch v := obj.(type) {
	case *FeatureCollection:
		return v
	case *Feature:
		return &FeatureCollection{Features: []*Feature{v}}
	case Geometry:
		return &FeatureCollection{Features: []*Feature{{Geometry: v}}}
	default:
		return &FeatureCollection{}
	}
}
