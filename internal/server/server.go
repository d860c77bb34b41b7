// Package server exposes the transformer over HTTP.
package server

import (
	"bytes"
	"fmt"
	"net/http"
	"text/template"

	"github.com/jonnekleijer/geoconv"
	"github.com/jonnekleijer/geoconv/internal/config"
	"github.com/jonnekleijer/geoconv/internal/server/assets"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mimeJSON = "application/json"
	mimeHTML = "text/html"
	mimeCSS  = "text/css"
	mimeJS   = "text/javascript"
	mimeSVG  = "image/svg+xml"
)

// Server holds dependencies for request handlers.
type Server struct {
	Config      *config.Config
	Transformer *geoconv.Transformer
	IndexHTML   []byte
	Favicon     []byte

	minifier *minify.M
}

type pageData struct {
	CSS string
	JS  string
	SVG string
}

// New builds the server and renders the minified index page.
func New(cfg *config.Config, t *geoconv.Transformer) (*Server, error) {
	m := minify.New()
	m.AddFunc(mimeCSS, css.Minify)
	m.AddFunc(mimeHTML, html.Minify)
	m.AddFunc(mimeJS, js.Minify)
	m.AddFunc(mimeSVG, svg.Minify)
	m.Add(mimeJSON, &json.Minifier{KeepNumbers: true})

	index, favicon, err := renderIndex(m)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("index_bytes", len(index)).
		Int("favicon_bytes", len(favicon)).
		Msg("Web page rendered")

	return &Server{
		Config:      cfg,
		Transformer: t,
		IndexHTML:   index,
		Favicon:     favicon,
		minifier:    m,
	}, nil
}

func renderIndex(m *minify.M) ([]byte, []byte, error) {
	cssMin, err := m.String(mimeCSS, assets.CSS)
	if err != nil {
		return nil, nil, fmt.Errorf("minify CSS: %w", err)
	}
	jsMin, err := m.String(mimeJS, assets.JS)
	if err != nil {
		return nil, nil, fmt.Errorf("minify JS: %w", err)
	}
	svgMin, err := m.String(mimeSVG, assets.Favicon)
	if err != nil {
		return nil, nil, fmt.Errorf("minify SVG: %w", err)
	}

	tmpl, err := template.New("index").Parse(assets.IndexTemplate)
	if err != nil {
		return nil, nil, fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{CSS: cssMin, JS: jsMin, SVG: svgMin}); err != nil {
		return nil, nil, fmt.Errorf("execute template: %w", err)
	}

	page, err := m.Bytes(mimeHTML, buf.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("minify HTML: %w", err)
	}
	return page, []byte(svgMin), nil
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transform", s.HandleTransform)
	mux.HandleFunc("POST /api/export", s.HandleExport)
	mux.HandleFunc("POST /api/convert", s.HandleConvert)
	mux.HandleFunc("POST /api/detect", s.HandleDetect)
	mux.HandleFunc("GET /api/codes", s.HandleCodes)
	mux.HandleFunc("GET /api/presets", s.HandlePresets)
	mux.HandleFunc("GET /favicon.svg", s.HandleFavicon)
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
