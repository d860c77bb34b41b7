package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonnekleijer/geoconv"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type TransformCommand struct {
	IOOptions

	Format string `short:"f" long:"format" description:"Input format, detected when empty" choice:"geojson" choice:"wkt"`
	Source int    `short:"s" long:"source" description:"Source EPSG code, configured source when 0"`
	Target int    `short:"t" long:"target" description:"Target EPSG code, configured target when 0"`
	Swap   bool   `long:"swap"             description:"Swap source and target"`
	Indent string `long:"indent"           description:"GeoJSON indentation in spaces" choice:"0" choice:"2" choice:"4"`
}

func (c *TransformCommand) Execute(_ []string) error {
	input, err := c.read()
	if err != nil {
		return err
	}
	format, err := inputFormat(c.Format, input)
	if err != nil {
		return err
	}
	ind, err := indentation(c.Indent)
	if err != nil {
		return err
	}

	src, dst := codeOr(c.Source, env.cfg.Source), codeOr(c.Target, env.cfg.Target)
	if c.Swap {
		src, dst = dst, src
	}

	log.Debug().
		Str("format", format.String()).
		Int("source", src).
		Int("target", dst).
		Msg("Transforming")

	r := env.transformer.Transform(env.ctx, input, format, src, dst, ind)
	if !r.Succeeded {
		return resultError(r)
	}
	return c.writeText(r.Data)
}

func codeOr(code, fallback int) int {
	if code != 0 {
		return code
	}
	return fallback
}

type ConvertCommand struct {
	IOOptions

	From   string `short:"f" long:"from"   description:"Input format, detected when empty" choice:"geojson" choice:"wkt"`
	To     string `short:"t" long:"to"     description:"Output format" choice:"geojson" choice:"wkt" required:"true"`
	Indent string `long:"indent"           description:"GeoJSON indentation in spaces" choice:"0" choice:"2" choice:"4"`
}

func (c *ConvertCommand) Execute(_ []string) error {
	input, err := c.read()
	if err != nil {
		return err
	}
	from, err := inputFormat(c.From, input)
	if err != nil {
		return err
	}
	to, err := geoconv.ParseFormat(c.To)
	if err != nil {
		return err
	}
	ind, err := indentation(c.Indent)
	if err != nil {
		return err
	}

	r := env.transformer.Convert(env.ctx, input, from, to, ind)
	if !r.Succeeded {
		return resultError(r)
	}
	return c.writeText(r.Data)
}

type DetectCommand struct {
	IOOptions
}

func (c *DetectCommand) Execute(_ []string) error {
	input, err := c.read()
	if err != nil {
		return err
	}
	f, ok := geoconv.Detect(input)
	if !ok {
		return errors.New("input is neither GeoJSON nor WKT")
	}
	return c.writeText(f.String())
}

type CodesCommand struct {
	IOOptions

	Names bool `short:"n" long:"names" description:"Include coordinate system names"`
	YAML  bool `short:"y" long:"yaml"  description:"Write the list as YAML"`
	Count bool `long:"count"           description:"Only print the number of codes"`

	Args struct {
		Codes []int `positional-arg-name:"code" description:"Codes to check instead of listing all"`
	} `positional-args:"yes"`
}

func (c *CodesCommand) Execute(_ []string) error {
	reg := env.transformer.Registry()

	if c.Count {
		return c.writeText(strconv.Itoa(reg.Count()))
	}

	if len(c.Args.Codes) > 0 {
		var (
			sb      strings.Builder
			invalid int
		)
		for _, code := range c.Args.Codes {
			crs, err := reg.Resolve(code)
			if err != nil {
				invalid++
				fmt.Fprintln(&sb, err)
				continue
			}
			fmt.Fprintln(&sb, crs)
		}
		if err := c.write([]byte(sb.String())); err != nil {
			return err
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d codes are not supported", invalid, len(c.Args.Codes))
		}
		return nil
	}

	if c.YAML {
		var (
			data []byte
			err  error
		)
		if c.Names {
			data, err = yaml.Marshal(reg.CodesWithNames())
		} else {
			data, err = yaml.Marshal(reg.Codes())
		}
		if err != nil {
			return err
		}
		return c.write(data)
	}

	var sb strings.Builder
	if c.Names {
		for _, e := range reg.CodesWithNames() {
			fmt.Fprintf(&sb, "%d\t%s\n", e.Code, e.Name)
		}
	} else {
		for _, code := range reg.Codes() {
			fmt.Fprintln(&sb, code)
		}
	}
	return c.write([]byte(sb.String()))
}

type PresetsCommand struct {
	IOOptions

	Category string `long:"category" description:"Only list one category" choice:"Geographic" choice:"Web" choice:"National" choice:"UTM"`
	YAML     bool   `short:"y" long:"yaml" description:"Write the list as YAML"`
}

func (c *PresetsCommand) Execute(_ []string) error {
	presets := make([]geoconv.Preset, 0)
	for _, p := range geoconv.Presets() {
		if c.Category == "" || p.Category == c.Category {
			presets = append(presets, p)
		}
	}

	if c.YAML {
		data, err := yaml.Marshal(presets)
		if err != nil {
			return err
		}
		return c.write(data)
	}

	var sb strings.Builder
	for _, p := range presets {
		fmt.Fprintf(&sb, "%-11s %-32s %s\n", p.Category, p, p.Description)
	}
	return c.write([]byte(sb.String()))
}

type ExportCommand struct {
	IOOptions

	Format      string `short:"f" long:"format"      description:"Input format, detected when empty" choice:"geojson" choice:"wkt"`
	Source      int    `short:"s" long:"source"      description:"Source EPSG code, configured source when 0"`
	Target      int    `short:"t" long:"target"      description:"Target EPSG code, configured target when 0"`
	Name        string `long:"name"                  description:"Layer name"`
	Description string `long:"description"           description:"Layer description"`
	NoIndex     bool   `long:"no-index"              description:"Do not write a spatial index"`
}

func (c *ExportCommand) Execute(_ []string) error {
	input, err := c.read()
	if err != nil {
		return err
	}
	format, err := inputFormat(c.Format, input)
	if err != nil {
		return err
	}

	fgbOpts := geoconv.DefaultFlatGeobufOptions()
	fgbOpts.Name = c.Name
	fgbOpts.Description = c.Description
	fgbOpts.IncludeIndex = !c.NoIndex

	src, dst := codeOr(c.Source, env.cfg.Source), codeOr(c.Target, env.cfg.Target)

	var buf bytes.Buffer
	if err := env.transformer.ExportFlatGeobuf(env.ctx, input, format, src, dst, &buf, fgbOpts); err != nil {
		return err
	}

	log.Info().
		Int("bytes", buf.Len()).
		Int("target", dst).
		Msg("FlatGeobuf written")
	return c.write(buf.Bytes())
}

type ImportCommand struct {
	IOOptions

	To     string `short:"t" long:"to"  description:"Output format" choice:"geojson" choice:"wkt" default:"geojson"`
	BBox   string `short:"b" long:"bbox" description:"Only read features intersecting minX,minY,maxX,maxY"`
	Indent string `long:"indent"        description:"GeoJSON indentation in spaces" choice:"0" choice:"2" choice:"4"`
}

func (c *ImportCommand) Execute(_ []string) error {
	input, err := c.read()
	if err != nil {
		return err
	}
	reader, err := geoconv.NewFlatGeobufReader([]byte(input))
	if err != nil {
		return err
	}
	defer reader.Close()

	header := reader.Header()
	if header != nil {
		l := log.Debug().
			Str("name", header.Name).
			Str("type", header.GeometryType).
			Uint64("features", header.FeaturesCount)
		if header.CRS != nil {
			l = l.Int("crs", header.CRS.Code)
		}
		l.Msg("FlatGeobuf header")
	}

	var fc *geoconv.FeatureCollection
	if c.BBox != "" {
		bound, err := parseBBox(c.BBox)
		if err != nil {
			return err
		}
		fc, err = reader.Search(bound)
		if err != nil {
			return err
		}
	} else {
		fc, err = reader.ReadAll()
		if err != nil {
			return err
		}
	}

	to, err := geoconv.ParseFormat(c.To)
	if err != nil {
		return err
	}
	var out string
	switch to {
	case geoconv.FormatWKT:
		lines := make([]string, 0, len(fc.Features))
		for _, g := range fc.Geometries() {
			s, err := geoconv.MarshalWKT(g)
			if err != nil {
				return err
			}
			lines = append(lines, s)
		}
		out = strings.Join(lines, geoconv.LineSeparator)
	default:
		ind, err := indentation(c.Indent)
		if err != nil {
			return err
		}
		if out, err = geoconv.MarshalGeoJSON(fc, ind); err != nil {
			return err
		}
	}
	return c.writeText(out)
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q must have four comma separated values", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
