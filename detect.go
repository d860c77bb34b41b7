package geoconv

import (
	"strings"
)

// Detect guesses the format of text without parsing it. Text starting with
// '{' that mentions "type" is GeoJSON; text starting with a WKT geometry
// keyword is WKT. The second result is false when neither matches.
func Detect(text string) (Format, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	if strings.HasPrefix(trimmed, "{") && strings.Contains(trimmed, `"type"`) {
		return FormatGeoJSON, true
	}
	upper := strings.ToUpper(trimmed)
	for _, kw := range WKTKeywords {
		if strings.HasPrefix(upper, kw) {
			return FormatWKT, true
		}
	}
	return 0, false
}
