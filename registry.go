package geoconv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CRS is a coordinate reference system resolved from the EPSG database.
// It is immutable and shared by every caller that resolves the same code.
type CRS struct {
	Code       int
	Name       string
	Definition string
}

func (c *CRS) String() string {
	return fmt.Sprintf("EPSG:%d - %s", c.Code, c.Name)
}

// Entry pairs an EPSG code with its display name.
type Entry struct {
	Code int    `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// DatabasePath loads definitions from a file instead of the embedded
	// database. The file uses the same "<code>;<definition>" line format.
	DatabasePath string

	// Projector builds coordinate pipelines. Defaults to a ProjProjector.
	Projector Projector

	// Logger receives load and cache diagnostics. Defaults to the global
	// zerolog logger.
	Logger *zerolog.Logger
}

// DefaultRegistryOptions returns options backed by the embedded database.
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{
		Projector: NewProjProjector(),
	}
}

type pipelineKey struct {
	src, dst int
}

// Registry resolves EPSG codes to CRS definitions and caches the coordinate
// pipelines built between them. The database is read once, on first use.
// A Registry is safe for concurrent use.
type Registry struct {
	open      func() (io.ReadCloser, error)
	projector Projector
	logger    *zerolog.Logger

	loadOnce    sync.Once
	loadErr     error
	definitions map[int]string

	mu        sync.RWMutex
	crs       map[int]*CRS
	pipelines map[pipelineKey]ProjectFunc
}

// NewRegistry creates a registry. Nothing is read until the first query or
// an explicit call to Load.
func NewRegistry(opts RegistryOptions) *Registry {
	open := func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(embeddedDatabase)), nil
	}
	if opts.DatabasePath != "" {
		path := opts.DatabasePath
		open = func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNoDatabase, err)
			}
			return f, nil
		}
	}
	return newRegistry(open, opts)
}

// NewRegistryFromReader creates a registry that reads its database from r.
func NewRegistryFromReader(r io.Reader, opts RegistryOptions) *Registry {
	if r == nil {
		return newRegistry(func() (io.ReadCloser, error) { return nil, ErrNoDatabase }, opts)
	}
	return newRegistry(func() (io.ReadCloser, error) { return io.NopCloser(r), nil }, opts)
}

func newRegistry(open func() (io.ReadCloser, error), opts RegistryOptions) *Registry {
	if opts.Projector == nil {
		opts.Projector = NewProjProjector()
	}
	if opts.Logger == nil {
		opts.Logger = &log.Logger
	}
	return &Registry{
		open:      open,
		projector: opts.Projector,
		logger:    opts.Logger,
		crs:       make(map[int]*CRS),
		pipelines: make(map[pipelineKey]ProjectFunc),
	}
}

// Load reads the database. Only the first call does any work; later calls
// return the first call's error.
func (r *Registry) Load() error {
	r.loadOnce.Do(func() {
		r.definitions, r.loadErr = r.readDatabase()
		if r.loadErr != nil {
			r.logger.Error().Err(r.loadErr).Msg("EPSG database load failed")
			return
		}
		r.logger.Debug().Int("codes", len(r.definitions)).Msg("EPSG database loaded")
	})
	return r.loadErr
}

func (r *Registry) readDatabase() (map[int]string, error) {
	rc, err := r.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	defs := make(map[int]string)
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, ';')
		if idx <= 0 {
			r.logger.Debug().Int("line", lineNo).Msg("skipping record without code separator")
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(line[:idx]))
		if err != nil || code <= 0 {
			r.logger.Debug().Int("line", lineNo).Str("code", line[:idx]).Msg("skipping record with bad code")
			continue
		}
		def := strings.TrimSpace(line[idx+1:])
		if def == "" {
			r.logger.Debug().Int("line", lineNo).Int("code", code).Msg("skipping record with empty definition")
			continue
		}
		defs[code] = def
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDatabase, err)
	}
	return defs, nil
}

// Resolve returns the CRS for code. The error is an *UnsupportedCRSError
// when the code is not in the database.
func (r *Registry) Resolve(code int) (*CRS, error) {
	if err := r.Load(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	c, ok := r.crs[code]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	def, ok := r.definitions[code]
	if !ok {
		return nil, &UnsupportedCRSError{Code: code}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.crs[code]; ok {
		return c, nil
	}
	c = &CRS{Code: code, Name: definitionName(def), Definition: def}
	r.crs[code] = c
	return c, nil
}

// IsValid reports whether code is in the database.
func (r *Registry) IsValid(code int) bool {
	if r.Load() != nil {
		return false
	}
	_, ok := r.definitions[code]
	return ok
}

// Count returns the number of codes in the database.
func (r *Registry) Count() int {
	if r.Load() != nil {
		return 0
	}
	return len(r.definitions)
}

// Codes returns every code in ascending order.
func (r *Registry) Codes() []int {
	if r.Load() != nil {
		return nil
	}
	codes := make([]int, 0, len(r.definitions))
	for code := range r.definitions {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// CodesWithNames returns every code with its name, ordered by code.
func (r *Registry) CodesWithNames() []Entry {
	codes := r.Codes()
	entries := make([]Entry, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, Entry{Code: code, Name: definitionName(r.definitions[code])})
	}
	return entries
}

// Pipeline returns the cached coordinate pipeline from src to dst, building
// it on first use.
func (r *Registry) Pipeline(src, dst int) (ProjectFunc, error) {
	key := pipelineKey{src: src, dst: dst}
	r.mu.RLock()
	fn, ok := r.pipelines[key]
	r.mu.RUnlock()
	if ok {
		return fn, nil
	}

	srcCRS, err := r.Resolve(src)
	if err != nil {
		return nil, err
	}
	dstCRS, err := r.Resolve(dst)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if fn, ok := r.pipelines[key]; ok {
		return fn, nil
	}
	fn, err = r.projector.Pipeline(srcCRS, dstCRS)
	if err != nil {
		return nil, err
	}
	r.pipelines[key] = fn
	r.logger.Debug().Int("source", src).Int("target", dst).Msg("projection pipeline cached")
	return fn, nil
}

// definitionName returns the first double-quoted substring of def.
func definitionName(def string) string {
	start := strings.IndexByte(def, '"')
	if start < 0 {
		return "Unknown"
	}
	end := strings.IndexByte(def[start+1:], '"')
	if end < 0 {
		return "Unknown"
	}
	return def[start+1 : start+1+end]
}
