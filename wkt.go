package geoconv

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	wktPoint              = "POINT"
	wktLineString         = "LINESTRING"
	wktLinearRing         = "LINEARRING"
	wktPolygon            = "POLYGON"
	wktMultiPoint         = "MULTIPOINT"
	wktMultiLineString    = "MULTILINESTRING"
	wktMultiPolygon       = "MULTIPOLYGON"
	wktGeometryCollection = "GEOMETRYCOLLECTION"
	wktEmpty              = "EMPTY"
)

// WKTKeywords are the geometry tags recognised at the start of a WKT string.
var WKTKeywords = []string{
	wktPoint,
	wktLineString,
	wktPolygon,
	wktMultiPoint,
	wktMultiLineString,
	wktMultiPolygon,
	wktGeometryCollection,
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokNumber
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

type wktLexer struct {
	src string
	pos int
}

func (l *wktLexer) next() (token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case isLetter(c):
		for l.pos < len(l.src) && isLetter(l.src[l.pos]) {
			l.pos++
		}
		word := l.src[start:l.pos]
		switch strings.ToUpper(word) {
		case "NAN":
			return token{kind: tokNumber, text: word, num: math.NaN(), pos: start}, nil
		case "INF", "INFINITY":
			return token{kind: tokNumber, text: word, num: math.Inf(1), pos: start}, nil
		}
		return token{kind: tokWord, text: strings.ToUpper(word), pos: start}, nil
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		l.pos++
		for l.pos < len(l.src) && isNumberByte(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, fmt.Errorf("%w: bad number %q at offset %d", ErrInvalidInput, text, start)
		}
		return token{kind: tokNumber, text: text, num: v, pos: start}, nil
	default:
		return token{}, fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidInput, c, start)
	}
}

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isNumberByte(c byte) bool {
	return isDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+'
}

type dimension int

const (
	dimXY dimension = iota
	dimXYZ
	dimXYM
	dimXYZM
)

type wktParser struct {
	lex wktLexer
	tok token
}

// ParseWKT parses a single WKT geometry. Keywords are case-insensitive and
// Z, M and ZM dimension tags are accepted; M values are discarded.
func ParseWKT(s string) (Geometry, error) {
	p := &wktParser{lex: wktLexer{src: s}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	g, err := p.parseGeometry()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected("end of input")
	}
	return g, nil
}

func (p *wktParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *wktParser) unexpected(want string) error {
	return fmt.Errorf("%w: expected %s but found %s at offset %d", ErrInvalidInput, want, p.tok, p.tok.pos)
}

func (p *wktParser) expect(kind tokenKind, want string) error {
	if p.tok.kind != kind {
		return p.unexpected(want)
	}
	return p.advance()
}

func (p *wktParser) parseGeometry() (Geometry, error) {
	if p.tok.kind != tokWord {
		return nil, p.unexpected("geometry keyword")
	}
	tag, dim := splitTag(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	if dim == dimXY && p.tok.kind == tokWord {
		switch p.tok.text {
		case "Z":
			dim = dimXYZ
		case "M":
			dim = dimXYM
		case "ZM":
			dim = dimXYZM
		}
		if dim != dimXY {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	empty, err := p.parseEmpty()
	if err != nil {
		return nil, err
	}

	switch tag {
	case wktPoint:
		if empty {
			return Point{Empty: true}, nil
		}
		if err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		c, err := p.parseCoordinate(dim)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return Point{Coord: c}, nil
	case wktLineString:
		if empty {
			return LineString{}, nil
		}
		cs, err := p.parseCoordinateList(dim)
		if err != nil {
			return nil, err
		}
		return LineString(cs), nil
	case wktLinearRing:
		if empty {
			return LinearRing{}, nil
		}
		cs, err := p.parseCoordinateList(dim)
		if err != nil {
			return nil, err
		}
		return LinearRing(cs), nil
	case wktPolygon:
		if empty {
			return Polygon{}, nil
		}
		return p.parsePolygonBody(dim)
	case wktMultiPoint:
		if empty {
			return MultiPoint{}, nil
		}
		return p.parseMultiPointBody(dim)
	case wktMultiLineString:
		if empty {
			return MultiLineString{}, nil
		}
		mls := MultiLineString{}
		err := p.parseList(func() error {
			if ok, err := p.parseEmpty(); err != nil || ok {
				if ok {
					mls = append(mls, LineString{})
				}
				return err
			}
			cs, err := p.parseCoordinateList(dim)
			if err != nil {
				return err
			}
			mls = append(mls, LineString(cs))
			return nil
		})
		return mls, err
	case wktMultiPolygon:
		if empty {
			return MultiPolygon{}, nil
		}
		mp := MultiPolygon{}
		err := p.parseList(func() error {
			if ok, err := p.parseEmpty(); err != nil || ok {
				if ok {
					mp = append(mp, Polygon{})
				}
				return err
			}
			poly, err := p.parsePolygonBody(dim)
			if err != nil {
				return err
			}
			mp = append(mp, poly)
			return nil
		})
		return mp, err
	case wktGeometryCollection:
		if empty {
			return GeometryCollection{}, nil
		}
		gc := GeometryCollection{}
		err := p.parseList(func() error {
			g, err := p.parseGeometry()
			if err != nil {
				return err
			}
			gc = append(gc, g)
			return nil
		})
		return gc, err
	default:
		return nil, fmt.Errorf("%w: unknown geometry type %q", ErrInvalidInput, tag)
	}
}

// splitTag separates an attached dimension suffix, as in POINTZ or POINTZM.
func splitTag(word string) (string, dimension) {
	if isWKTTag(word) {
		return word, dimXY
	}
	for _, s := range []struct {
		suffix string
		dim    dimension
	}{{"ZM", dimXYZM}, {"Z", dimXYZ}, {"M", dimXYM}} {
		if base, ok := strings.CutSuffix(word, s.suffix); ok && isWKTTag(base) {
			return base, s.dim
		}
	}
	return word, dimXY
}

func isWKTTag(word string) bool {
	switch word {
	case wktPoint, wktLineString, wktLinearRing, wktPolygon, wktMultiPoint,
		wktMultiLineString, wktMultiPolygon, wktGeometryCollection:
		return true
	}
	return false
}

func (p *wktParser) parseEmpty() (bool, error) {
	if p.tok.kind == tokWord && p.tok.text == wktEmpty {
		return true, p.advance()
	}
	return false, nil
}

// parseList parses '(' item {',' item} ')'.
func (p *wktParser) parseList(item func() error) error {
	if err := p.expect(tokLParen, "'('"); err != nil {
		return err
	}
	for {
		if err := item(); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return p.expect(tokRParen, "')' or ','")
}

func (p *wktParser) parseCoordinate(dim dimension) (Coordinate, error) {
	var nums []float64
	for p.tok.kind == tokNumber && len(nums) < 4 {
		nums = append(nums, p.tok.num)
		if err := p.advance(); err != nil {
			return Coordinate{}, err
		}
	}

	want := 0
	switch dim {
	case dimXYZ, dimXYM:
		want = 3
	case dimXYZM:
		want = 4
	}
	switch {
	case len(nums) < 2:
		return Coordinate{}, p.unexpected("coordinate")
	case want != 0 && len(nums) != want:
		return Coordinate{}, fmt.Errorf("%w: expected %d ordinates, got %d at offset %d", ErrInvalidInput, want, len(nums), p.tok.pos)
	}

	switch {
	case dim == dimXYM:
		return XY(nums[0], nums[1]), nil
	case len(nums) >= 3:
		return XYZ(nums[0], nums[1], nums[2]), nil
	default:
		return XY(nums[0], nums[1]), nil
	}
}

func (p *wktParser) parseCoordinateList(dim dimension) ([]Coordinate, error) {
	var cs []Coordinate
	err := p.parseList(func() error {
		c, err := p.parseCoordinate(dim)
		if err != nil {
			return err
		}
		cs = append(cs, c)
		return nil
	})
	return cs, err
}

func (p *wktParser) parsePolygonBody(dim dimension) (Polygon, error) {
	var poly Polygon
	first := true
	err := p.parseList(func() error {
		cs, err := p.parseCoordinateList(dim)
		if err != nil {
			return err
		}
		if first {
			poly.Shell = LinearRing(cs)
			first = false
			return nil
		}
		poly.Holes = append(poly.Holes, LinearRing(cs))
		return nil
	})
	return poly, err
}

// parseMultiPointBody accepts both MULTIPOINT ((1 2), (3 4)) and
// MULTIPOINT (1 2, 3 4).
func (p *wktParser) parseMultiPointBody(dim dimension) (MultiPoint, error) {
	mp := MultiPoint{}
	err := p.parseList(func() error {
		if ok, err := p.parseEmpty(); err != nil || ok {
			if ok {
				mp = append(mp, Point{Empty: true})
			}
			return err
		}
		if p.tok.kind == tokLParen {
			if err := p.advance(); err != nil {
				return err
			}
			c, err := p.parseCoordinate(dim)
			if err != nil {
				return err
			}
			mp = append(mp, Point{Coord: c})
			return p.expect(tokRParen, "')'")
		}
		c, err := p.parseCoordinate(dim)
		if err != nil {
			return err
		}
		mp = append(mp, Point{Coord: c})
		return nil
	})
	return mp, err
}

// MarshalWKT writes g as canonical WKT, e.g. POINT (30 10) or POINT Z (1 2 3).
func MarshalWKT(g Geometry) (string, error) {
	if g == nil {
		return "", ErrNilGeometry
	}
	var sb strings.Builder
	writeWKT(&sb, g)
	return sb.String(), nil
}

func writeWKT(sb *strings.Builder, g Geometry) {
	writeWKTDim(sb, g, HasZ(g))
}

// writeWKTDim writes g with the Z tag decided by its outermost geometry, so
// collection members without Z get NaN like coordinates inside one geometry.
func writeWKTDim(sb *strings.Builder, g Geometry, z bool) {
	sb.WriteString(wktTag(g))
	if z {
		sb.WriteString(" Z")
	}
	if g.IsEmpty() {
		sb.WriteString(" " + wktEmpty)
		return
	}
	sb.WriteByte(' ')
	writeWKTBody(sb, g, z)
}

func wktTag(g Geometry) string {
	switch g.(type) {
	case Point:
		return wktPoint
	case LineString:
		return wktLineString
	case LinearRing:
		return wktLinearRing
	case Polygon:
		return wktPolygon
	case MultiPoint:
		return wktMultiPoint
	case MultiLineString:
		return wktMultiLineString
	case MultiPolygon:
		return wktMultiPolygon
	case GeometryCollection:
		return wktGeometryCollection
	default:
		panic(fmt.Sprintf("geoconv: unhandled geometry type %T", g))
	}
}

func writeWKTBody(sb *strings.Builder, g Geometry, z bool) {
	switch v := g.(type) {
	case Point:
		sb.WriteByte('(')
		writeWKTCoordinate(sb, v.Coord, z)
		sb.WriteByte(')')
	case LineString:
		writeWKTCoordinates(sb, v, z)
	case LinearRing:
		writeWKTCoordinates(sb, v, z)
	case Polygon:
		writeWKTRings(sb, v, z)
	case MultiPoint:
		sb.WriteByte('(')
		for i, pt := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if pt.Empty {
				sb.WriteString(wktEmpty)
				continue
			}
			sb.WriteByte('(')
			writeWKTCoordinate(sb, pt.Coord, z)
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	case MultiLineString:
		sb.WriteByte('(')
		for i, ls := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if len(ls) == 0 {
				sb.WriteString(wktEmpty)
				continue
			}
			writeWKTCoordinates(sb, ls, z)
		}
		sb.WriteByte(')')
	case MultiPolygon:
		sb.WriteByte('(')
		for i, poly := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if poly.IsEmpty() {
				sb.WriteString(wktEmpty)
				continue
			}
			writeWKTRings(sb, poly, z)
		}
		sb.WriteByte(')')
	case GeometryCollection:
		sb.WriteByte('(')
		first := true
		for _, child := range v {
			if child == nil {
				continue
			}
			if !first {
				sb.WriteString(", ")
			}
			first = false
			writeWKTDim(sb, child, z)
		}
		sb.WriteByte(')')
	default:
		panic(fmt.Sprintf("geoconv: unhandled geometry type %T", g))
	}
}

func writeWKTCoordinate(sb *strings.Builder, c Coordinate, z bool) {
	sb.WriteString(formatWKTFloat(c.X))
	sb.WriteByte(' ')
	sb.WriteString(formatWKTFloat(c.Y))
	if z {
		sb.WriteByte(' ')
		if c.HasZ {
			sb.WriteString(formatWKTFloat(c.Z))
		} else {
			sb.WriteString(formatWKTFloat(math.NaN()))
		}
	}
}

func writeWKTCoordinates(sb *strings.Builder, cs []Coordinate, z bool) {
	sb.WriteByte('(')
	for i, c := range cs {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeWKTCoordinate(sb, c, z)
	}
	sb.WriteByte(')')
}

func writeWKTRings(sb *strings.Builder, p Polygon, z bool) {
	sb.WriteByte('(')
	for i, r := range p.Rings() {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeWKTCoordinates(sb, r, z)
	}
	sb.WriteByte(')')
}

// WKTLines splits batch input on CR and LF, dropping blank lines.
func WKTLines(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == '\r' || r == '\n' })
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// errorMarker is the in-band replacement for a batch line that failed.
func errorMarker(err error) string {
	return "<Error: " + err.Error() + ">"
}

// transformWKTLines reprojects every line of input independently. A line
// that fails is replaced by an error marker and reported to onError. The
// context is checked between lines.
func transformWKTLines(ctx context.Context, input string, fn ProjectFunc, onError func(line int, err error)) (string, error) {
	lines := WKTLines(input)
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		s, err := transformWKTLine(line, fn)
		if err != nil {
			if onError != nil {
				onError(i+1, err)
			}
			out = append(out, errorMarker(err))
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, LineSeparator), nil
}

func transformWKTLine(line string, fn ProjectFunc) (string, error) {
	g, err := ParseWKT(line)
	if err != nil {
		return "", err
	}
	pg, err := Reproject(g, fn)
	if err != nil {
		return "", err
	}
	return MarshalWKT(pg)
}
