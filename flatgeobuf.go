package geoconv

import (
	"errors"
)

// FlatGeobuf errors.
var (
	ErrUnsupportedType = errors.New("geoconv: unsupported FlatGeobuf geometry type")
	ErrNoFeatures      = errors.New("geoconv: no features to write")
)

// FlatGeobufOptions configures FlatGeobuf writing.
type FlatGeobufOptions struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include a packed R-tree index (default: true)
	InMemory     bool   // Build the index in memory instead of a temp file
	CRS          *CRS   // Coordinate reference system recorded in the header (optional)
}

// DefaultFlatGeobufOptions returns default options for writing FlatGeobuf
// files.
func DefaultFlatGeobufOptions() FlatGeobufOptions {
	return FlatGeobufOptions{
		IncludeIndex: true,
	}
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name        string // Column name
	Type        string // Column type ("Bool", "Long", "Double", "String", "Json", etc.)
	Title       string // Column title (human-readable)
	Description string // Column description
	Nullable    bool   // Whether the column can contain null values
}

// FlatGeobufHeader contains metadata about a FlatGeobuf file.
type FlatGeobufHeader struct {
	Name          string       // Layer name
	Description   string       // Layer description
	GeometryType  string       // Geometry type ("Point", "Polygon", "Unknown", etc.)
	HasZ          bool         // Whether coordinates carry Z values
	FeaturesCount uint64       // Number of features in the file
	Envelope      [4]float64   // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS         // Coordinate reference system; Definition holds the stored description
	HasIndex      bool         // Whether the file has a spatial index
	Columns       []ColumnInfo // Property column schema
}
