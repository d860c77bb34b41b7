package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jonnekleijer/geoconv"
)

// IOOptions selects where a command reads input and writes output.
type IOOptions struct {
	Input  string `short:"i" long:"in"  description:"Input file path. Reads from stdin if empty"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
}

func (o IOOptions) read() (string, error) {
	var (
		data []byte
		err  error
	)
	if o.Input != "" {
		data, err = os.ReadFile(o.Input)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func (o IOOptions) write(data []byte) error {
	if o.Output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.Output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (o IOOptions) writeText(s string) error {
	return o.write([]byte(s + geoconv.LineSeparator))
}

// inputFormat parses name or detects the format of input when name is empty.
func inputFormat(name, input string) (geoconv.Format, error) {
	if name != "" {
		return geoconv.ParseFormat(name)
	}
	f, ok := geoconv.Detect(input)
	if !ok {
		return 0, errors.New("cannot detect input format, use --format")
	}
	return f, nil
}

// indentation parses an --indent value, falling back to the configured one.
func indentation(value string) (geoconv.Indentation, error) {
	if value == "" {
		return env.cfg.Indentation(), nil
	}
	width, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid indentation %q", value)
	}
	return geoconv.ParseIndentation(width)
}

// resultError turns a failed Result into an error.
func resultError(r geoconv.Result) error {
	if env.ctx.Err() != nil {
		return env.ctx.Err()
	}
	if r.Data == "" {
		return errors.New("no output produced")
	}
	return errors.New(r.Data)
}
