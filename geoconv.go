// Package geoconv converts vector geometry between GeoJSON and Well-Known Text
// and reprojects coordinates between coordinate reference systems identified
// by EPSG codes.
//
// The entry point is a Transformer backed by a Registry. Expected failures
// (blank input, unparsable text, unknown EPSG codes) are reported through a
// Result rather than an error.
package geoconv

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common errors returned by this package.
var (
	ErrEmptyInput     = errors.New("geoconv: empty input")
	ErrInvalidInput   = errors.New("geoconv: invalid input")
	ErrUnsupportedCRS = errors.New("geoconv: unsupported coordinate system")
	ErrProjection     = errors.New("geoconv: projection failed")
	ErrCancelled      = errors.New("geoconv: cancelled")
	ErrNoDatabase     = errors.New("geoconv: EPSG database not available")
	ErrNilGeometry    = errors.New("geoconv: nil geometry")
	ErrNoIndex        = errors.New("geoconv: file has no spatial index")
)

// UnsupportedCRSError reports an EPSG code that is not in the registry.
// It matches ErrUnsupportedCRS with errors.Is.
type UnsupportedCRSError struct {
	Code int
}

func (e *UnsupportedCRSError) Error() string {
	return fmt.Sprintf("EPSG:%d is not supported. The coordinate system was not found in the SRID database.", e.Code)
}

// Is reports whether target is ErrUnsupportedCRS.
func (e *UnsupportedCRSError) Is(target error) bool {
	return target == ErrUnsupportedCRS
}

// Format identifies a text encoding of geometry.
type Format int

const (
	FormatGeoJSON Format = iota
	FormatWKT
)

func (f Format) String() string {
	switch f {
	case FormatGeoJSON:
		return "GeoJSON"
	case FormatWKT:
		return "WKT"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses a format name such as "geojson" or "wkt".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "wkt":
		return FormatWKT, nil
	default:
		return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidInput, s)
	}
}

// Indentation controls how GeoJSON output is indented.
type Indentation int

const (
	IndentTwoSpaces Indentation = iota
	IndentFourSpaces
	IndentNone
)

func (i Indentation) String() string {
	switch i {
	case IndentTwoSpaces:
		return "TwoSpaces"
	case IndentFourSpaces:
		return "FourSpaces"
	case IndentNone:
		return "None"
	default:
		return fmt.Sprintf("Indentation(%d)", int(i))
	}
}

// indent returns the per-level indent string, or "" for compact output.
func (i Indentation) indent() string {
	switch i {
	case IndentFourSpaces:
		return "    "
	case IndentNone:
		return ""
	default:
		return "  "
	}
}

// ParseIndentation maps a width of 0, 2 or 4 spaces to an Indentation.
func ParseIndentation(width int) (Indentation, error) {
	switch width {
	case 0:
		return IndentNone, nil
	case 2:
		return IndentTwoSpaces, nil
	case 4:
		return IndentFourSpaces, nil
	default:
		return 0, fmt.Errorf("%w: indentation must be 0, 2 or 4, got %d", ErrInvalidInput, width)
	}
}

// LineSeparator joins the lines of a batch WKT result.
var LineSeparator = lineSeparator()

func lineSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Result is the outcome of a conversion. When Succeeded is false, Data holds
// a human-readable message or is empty.
type Result struct {
	Data      string
	Succeeded bool
}

const transformationErrorPrefix = "Transformation error"

func succeeded(data string) Result {
	return Result{Data: data, Succeeded: true}
}

func failed(err error) Result {
	if err == nil || errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrCancelled) {
		return Result{}
	}
	return Result{Data: transformationErrorPrefix + ": " + err.Error()}
}
