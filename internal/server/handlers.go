package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jonnekleijer/geoconv"

	"github.com/rs/zerolog/log"
)

// TransformRequest is the body of POST /api/transform.
type TransformRequest struct {
	Input  string `json:"input"`
	Format string `json:"format,omitempty"` // detected when empty
	Source int    `json:"source,omitempty"`
	Target int    `json:"target,omitempty"`
	Indent *int   `json:"indent,omitempty"`
}

// ConvertRequest is the body of POST /api/convert.
type ConvertRequest struct {
	Input  string `json:"input"`
	From   string `json:"from,omitempty"` // detected when empty
	To     string `json:"to"`
	Indent *int   `json:"indent,omitempty"`
}

// ResultResponse mirrors geoconv.Result.
type ResultResponse struct {
	Data      string `json:"data"`
	Succeeded bool   `json:"succeeded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type detectResponse struct {
	Format   string `json:"format,omitempty"`
	Detected bool   `json:"detected"`
}

type codeResponse struct {
	Code  int    `json:"code"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
}

type countResponse struct {
	Count int `json:"count"`
}

// HandleTransform reprojects the posted input.
func (s *Server) HandleTransform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if !s.decode(w, r, &req) {
		return
	}

	format, err := s.format(req.Format, req.Input)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	ind, err := s.indentation(req.Indent)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	src, dst := req.Source, req.Target
	if src == 0 {
		src = s.Config.Source
	}
	if dst == 0 {
		dst = s.Config.Target
	}

	res := s.Transformer.Transform(r.Context(), req.Input, format, src, dst, ind)
	s.writeJSON(w, http.StatusOK, ResultResponse(res))
}

// HandleExport reprojects the posted input and responds with a FlatGeobuf
// file.
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if !s.decode(w, r, &req) {
		return
	}

	format, err := s.format(req.Format, req.Input)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	src, dst := req.Source, req.Target
	if src == 0 {
		src = s.Config.Source
	}
	if dst == 0 {
		dst = s.Config.Target
	}

	var buf bytes.Buffer
	opts := geoconv.DefaultFlatGeobufOptions()
	opts.Name = "export"
	if err := s.Transformer.ExportFlatGeobuf(r.Context(), req.Input, format, src, dst, &buf, opts); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, geoconv.ErrEmptyInput) || errors.Is(err, geoconv.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="export.fgb"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// HandleConvert converts the posted input between formats.
func (s *Server) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !s.decode(w, r, &req) {
		return
	}

	from, err := s.format(req.From, req.Input)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := geoconv.ParseFormat(req.To)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	ind, err := s.indentation(req.Indent)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res := s.Transformer.Convert(r.Context(), req.Input, from, to, ind)
	s.writeJSON(w, http.StatusOK, ResultResponse(res))
}

// HandleDetect reports the format of the raw request body.
func (s *Server) HandleDetect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody()))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	var resp detectResponse
	if f, ok := geoconv.Detect(string(body)); ok {
		resp = detectResponse{Format: f.String(), Detected: true}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleCodes lists supported EPSG codes.
//
// Query parameters: code=N checks a single code, names=1 includes names and
// count=1 returns only the number of codes.
func (s *Server) HandleCodes(w http.ResponseWriter, r *http.Request) {
	reg := s.Transformer.Registry()
	q := r.URL.Query()

	if q.Get("count") != "" {
		s.writeJSON(w, http.StatusOK, countResponse{Count: reg.Count()})
		return
	}

	if v := q.Get("code"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid code %q", v))
			return
		}
		resp := codeResponse{Code: code}
		if crs, err := reg.Resolve(code); err == nil {
			resp.Name = crs.Name
			resp.Valid = true
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	if q.Get("names") != "" {
		s.writeJSON(w, http.StatusOK, reg.CodesWithNames())
		return
	}
	s.writeJSON(w, http.StatusOK, reg.Codes())
}

// HandlePresets serves the preset list.
func (s *Server) HandlePresets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
	s.writeJSON(w, http.StatusOK, geoconv.Presets())
}

// HandleFavicon serves the site icon.
func (s *Server) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", mimeSVG)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML page.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

func (s *Server) maxBody() int64 {
	if s.Config.Server.MaxBody > 0 {
		return s.Config.Server.MaxBody
	}
	return 10 << 20
}

// decode reads a JSON request body into v, writing an error response and
// returning false when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeError(w, status, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) format(name, input string) (geoconv.Format, error) {
	if name != "" {
		return geoconv.ParseFormat(name)
	}
	if f, ok := geoconv.Detect(input); ok {
		return f, nil
	}
	// Blank or unrecognized input still reaches the transformer, which
	// reports it as a failed result.
	return geoconv.FormatGeoJSON, nil
}

func (s *Server) indentation(width *int) (geoconv.Indentation, error) {
	if width == nil {
		return s.Config.Indentation(), nil
	}
	return geoconv.ParseIndentation(*width)
}

// writeJSON encodes v through the JSON minifier.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", mimeJSON)
	w.WriteHeader(status)

	mw := s.minifier.Writer(mimeJSON, w)
	enc := json.NewEncoder(mw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
	if err := mw.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
