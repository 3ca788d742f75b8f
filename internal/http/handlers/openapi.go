package handlers

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"
)

//go:embed openapi.json
var openAPISpec []byte

// docsPage renders Redoc against the document served next to it.
const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ancestral AI API</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{margin:0}redoc{display:block;height:100vh}</style>
</head>
<body>
<redoc spec-url="%s"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
</body>
</html>`

// OpenAPIJSON serves the embedded API description.
func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(openAPISpec)
}

// OpenAPIDocs serves the rendered reference. The document URL is resolved
// relative to the docs path so the page works under any mount prefix.
func (a *App) OpenAPIDocs(w http.ResponseWriter, r *http.Request) {
	specURL := strings.TrimSuffix(r.URL.Path, "/docs") + "/openapi.json"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, docsPage, specURL)
}
