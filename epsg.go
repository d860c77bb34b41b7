package geoconv

import (
	_ "embed"
)

// embeddedDatabase holds one "<code>;<proj4 definition>" record per line.
// The CRS name travels in a quoted +title parameter.
//
//go:embed data/epsg.txt
var embeddedDatabase string
