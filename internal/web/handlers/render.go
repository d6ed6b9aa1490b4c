package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/reunite/portal/internal/web/middleware"
	"github.com/reunite/portal/internal/web/static"
)

// Base is embedded in every page's data and feeds the shared layout.
type Base struct {
	Title     string
	Notice    string
	AdminName string
}

// Renderer renders pages from the embedded templates. Each page is parsed
// together with the layout and the shared partials.
type Renderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	// safeURL marks data URLs of uploaded previews as trusted image sources.
	"safeURL": func(s string) template.URL {
		if strings.HasPrefix(s, "data:image/") {
			return template.URL(s) //nolint:gosec // only image data URLs built from validated uploads
		}
		return template.URL("#")
	},
}

// NewRenderer parses all page templates.
func NewRenderer() (*Renderer, error) {
	fsys := static.Templates()
	shared, err := template.New("shared").Funcs(templateFuncs).ParseFS(fsys, "layout.html", "partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		t, err := shared.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}
	return r, nil
}

// Render writes a page with the given status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := rd.pages[page]
	if !ok {
		slog.Error("unknown page template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page", "page", page, "path", sanitizeForLog(r.URL.Path), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// base builds the layout data for a request.
func base(r *http.Request, title string) Base {
	b := Base{Title: title, Notice: popNotice(r)}
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		b.AdminName = user.DisplayName()
		if b.AdminName == "" {
			b.AdminName = "Admin"
		}
	}
	return b
}
