// Package assets embeds the web page sources served by the HTTP server.
package assets

import _ "embed"

//go:embed index.html.tpl
var IndexTemplate string

//go:embed style.css
var CSS string

//go:embed script.js
var JS string

//go:embed favicon.svg
var Favicon string
