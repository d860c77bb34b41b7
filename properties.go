package geoconv

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// propertySchema is the ordered column layout inferred from feature
// properties. Columns appear in order of first occurrence.
type propertySchema struct {
	columns []propertyColumn
	index   map[string]int
}

type propertyColumn struct {
	name string
	typ  flattypes.ColumnType
	set  bool // false while only nulls have been seen
}

// inferSchema analyzes every feature's properties and infers the column
// schema.
func inferSchema(features []*Feature) (*propertySchema, error) {
	s := &propertySchema{index: make(map[string]int)}
	for i, f := range features {
		keys, values, err := decodeObject(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		for _, name := range keys {
			idx, ok := s.index[name]
			if !ok {
				if len(s.columns) == math.MaxUint16 {
					return nil, fmt.Errorf("%w: more than %d property columns", ErrInvalidInput, math.MaxUint16)
				}
				idx = len(s.columns)
				s.index[name] = idx
				s.columns = append(s.columns, propertyColumn{name: name})
			}

			value := values[name]
			if value == nil {
				continue
			}
			col := &s.columns[idx]
			inferred := inferColumnType(value)
			if col.set {
				col.typ = promoteColumnType(col.typ, inferred)
			} else {
				col.typ = inferred
				col.set = true
			}
		}
	}
	for i := range s.columns {
		if !s.columns[i].set {
			s.columns[i].typ = flattypes.ColumnTypeString
		}
	}
	return s, nil
}

func (s *propertySchema) writerColumns(builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(s.columns))
	for _, c := range s.columns {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name) // Set title to match name for JS library compatibility
		col.SetType(c.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// inferColumnType determines the FlatGeobuf column type for a value decoded
// with json.Decoder.UseNumber.
func inferColumnType(value any) flattypes.ColumnType {
	switch v := value.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	default:
		return flattypes.ColumnTypeJson
	}
}

// promoteColumnType returns a type that can hold values of both a and b.
// Integers widen to doubles; any other mix falls back to JSON so values
// keep their original type.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	if isNumericColumn(a) && isNumericColumn(b) {
		return flattypes.ColumnTypeDouble
	}
	return flattypes.ColumnTypeJson
}

func isNumericColumn(t flattypes.ColumnType) bool {
	return t == flattypes.ColumnTypeLong || t == flattypes.ColumnTypeDouble
}

// encode encodes a feature's properties to FlatGeobuf binary format.
// The format is: [2-byte column index][value bytes]... repeated for each property.
func (s *propertySchema) encode(raw json.RawMessage) ([]byte, error) {
	keys, values, err := decodeObject(raw)
	if err != nil || len(keys) == 0 {
		return nil, err
	}

	var buf bytes.Buffer
	for _, name := range keys {
		value := values[name]
		if value == nil {
			continue // Skip null values
		}
		colIndex, ok := s.index[name]
		if !ok {
			continue
		}

		indexBytes := make([]byte, 2)
		binary.LittleEndian.PutUint16(indexBytes, uint16(colIndex))
		buf.Write(indexBytes)

		if err := writePropertyValue(&buf, value, s.columns[colIndex].typ); err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// writePropertyValue writes a single property value using the column's type.
func writePropertyValue(buf *bytes.Buffer, value any, colType flattypes.ColumnType) error {
	switch colType {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %v is not a bool", ErrInvalidInput, value)
		}
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeLong:
		n, ok := value.(json.Number)
		if !ok {
			return fmt.Errorf("%w: %v is not a number", ErrInvalidInput, value)
		}
		v, err := n.Int64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v))
		buf.Write(b)

	case flattypes.ColumnTypeDouble:
		n, ok := value.(json.Number)
		if !ok {
			return fmt.Errorf("%w: %v is not a number", ErrInvalidInput, value)
		}
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
		buf.Write(b)

	case flattypes.ColumnTypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %v is not a string", ErrInvalidInput, value)
		}
		writeLengthPrefixed(buf, []byte(s))

	case flattypes.ColumnTypeJson:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return err
		}
		writeLengthPrefixed(buf, jsonBytes)

	default:
		return fmt.Errorf("%w: column type %s", ErrInvalidInput, flattypes.EnumNamesColumnType[colType])
	}
	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, b []byte) {
	lenBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBytes, uint32(len(b)))
	buf.Write(lenBytes)
	buf.Write(b)
}

// decodeProperties decodes FlatGeobuf binary properties to a JSON object
// whose members follow the stored order.
func decodeProperties(data []byte, header *flattypes.Header) (json.RawMessage, error) {
	if len(data) == 0 || header == nil {
		return nil, nil
	}

	var (
		keys   []string
		values = make(map[string]any)
		offset = 0
	)
	for offset+2 <= len(data) {
		colIndex := binary.LittleEndian.Uint16(data[offset : offset+2])
		offset += 2

		if int(colIndex) >= header.ColumnsLength() {
			return nil, fmt.Errorf("%w: property column %d out of range", ErrInvalidInput, colIndex)
		}
		var col flattypes.Column
		if !header.Columns(&col, int(colIndex)) {
			return nil, fmt.Errorf("%w: property column %d unreadable", ErrInvalidInput, colIndex)
		}

		value, bytesRead := readPropertyValue(data[offset:], col.Type())
		if bytesRead == 0 {
			return nil, fmt.Errorf("%w: truncated value for column %q", ErrInvalidInput, col.Name())
		}
		offset += bytesRead

		name := string(col.Name())
		if _, seen := values[name]; !seen {
			keys = append(keys, name)
		}
		values[name] = value
	}
	return encodeObject(keys, values)
}

// readPropertyValue reads a property value from the buffer.
// Returns the value and number of bytes read.
func readPropertyValue(data []byte, colType flattypes.ColumnType) (any, int) {
	switch colType {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return nil, 0
		}
		return data[0] != 0, 1

	case flattypes.ColumnTypeByte:
		if len(data) < 1 {
			return nil, 0
		}
		return int8(data[0]), 1

	case flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return nil, 0
		}
		return data[0], 1

	case flattypes.ColumnTypeShort:
		if len(data) < 2 {
			return nil, 0
		}
		return int16(binary.LittleEndian.Uint16(data[:2])), 2

	case flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return nil, 0
		}
		return binary.LittleEndian.Uint16(data[:2]), 2

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return nil, 0
		}
		return int32(binary.LittleEndian.Uint32(data[:4])), 4

	case flattypes.ColumnTypeUInt:
		if len(data) < 4 {
			return nil, 0
		}
		return binary.LittleEndian.Uint32(data[:4]), 4

	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return nil, 0
		}
		return int64(binary.LittleEndian.Uint64(data[:8])), 8

	case flattypes.ColumnTypeULong:
		if len(data) < 8 {
			return nil, 0
		}
		return binary.LittleEndian.Uint64(data[:8]), 8

	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return nil, 0
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data[:4])), 4

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return nil, 0
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[:8])), 8

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		b, n := readLengthPrefixed(data)
		if n == 0 {
			return nil, 0
		}
		return string(b), n

	case flattypes.ColumnTypeJson:
		b, n := readLengthPrefixed(data)
		if n == 0 {
			return nil, 0
		}
		if !json.Valid(b) {
			return string(b), n
		}
		return json.RawMessage(b), n

	case flattypes.ColumnTypeBinary:
		return readLengthPrefixed(data)

	default:
		return nil, 0
	}
}

func readLengthPrefixed(data []byte) ([]byte, int) {
	if len(data) < 4 {
		return nil, 0
	}
	length := binary.LittleEndian.Uint32(data[:4])
	if uint64(len(data)) < 4+uint64(length) {
		return nil, 0
	}
	return data[4 : 4+length], int(4 + length)
}

// decodeObject decodes a JSON object keeping member order. Absent or null
// input yields no members.
func decodeObject(raw json.RawMessage) ([]string, map[string]any, error) {
	if !present(raw) {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: properties: %v", ErrInvalidInput, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: properties must be a JSON object", ErrInvalidInput)
	}

	var keys []string
	values := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: properties: %v", ErrInvalidInput, err)
		}
		key := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("%w: properties: %v", ErrInvalidInput, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = v
	}
	return keys, values, nil
}

// encodeObject writes values as a JSON object with members in keys order.
func encodeObject(keys []string, values map[string]any) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
