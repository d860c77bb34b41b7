package geoconv

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// jsonFloat is a float64 that always encodes with a decimal point, so that
// 30 is written as 30.0.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	s, err := formatJSONFloat(float64(f))
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func formatJSONFloat(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: %v cannot be written as JSON", ErrInvalidInput, v)
	}
	if v == 0 {
		return "0.0", nil
	}
	if useExponent(v) {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		if !strings.Contains(mantissa, ".") {
			mantissa += ".0"
		}
		return mantissa + "e" + exp, nil
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

// formatWKTFloat writes the shortest representation that round-trips.
// Integral values carry no decimal point.
func formatWKTFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v == 0:
		return "0"
	case useExponent(v):
		return strconv.FormatFloat(v, 'e', -1, 64)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func useExponent(v float64) bool {
	a := math.Abs(v)
	return a < 1e-6 || a >= 1e21
}

func jsonFloats(c Coordinate) []jsonFloat {
	if c.HasZ {
		return []jsonFloat{jsonFloat(c.X), jsonFloat(c.Y), jsonFloat(c.Z)}
	}
	return []jsonFloat{jsonFloat(c.X), jsonFloat(c.Y)}
}
