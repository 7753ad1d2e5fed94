package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"github.com/DukeRupert/shopdesk/internal/catalog"
)

// Renderer manages template parsing and rendering with isolated template sets.
// It supports two layouts:
//   - "auth" layout for the login page
//   - "app" layout for the dashboard pages
//
// Templates are organized as:
//   - layouts/auth.html, layouts/app.html - base layouts
//   - components/*.html - reusable components (shared across layouts)
//   - partials/*.html - standalone fragments for htmx responses
//   - pages/auth/*.html - auth pages (use auth layout)
//   - pages/*.html and pages/<dir>/*.html - app pages (use app layout)
type Renderer struct {
	templates map[string]*template.Template
	funcs     template.FuncMap
	logger    *slog.Logger
	mu        sync.RWMutex

	fsys fs.FS
	// For dev mode hot-reload
	isDev bool
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// FS holds the template tree. Ignored when IsDev is set and
	// TemplatesDir is not empty.
	FS fs.FS

	// TemplatesDir is read from disk on every render in dev mode.
	TemplatesDir string

	Catalog *catalog.Catalog
	Logger  *slog.Logger
	IsDev   bool
}

// NewRenderer creates a new template renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	fsys := cfg.FS
	if cfg.IsDev && cfg.TemplatesDir != "" {
		fsys = os.DirFS(cfg.TemplatesDir)
	}
	if fsys == nil {
		return nil, fmt.Errorf("renderer: no templates configured")
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcs:     TemplateFuncs(cat),
		logger:    cfg.Logger,
		fsys:      fsys,
		isDev:     cfg.IsDev && cfg.TemplatesDir != "",
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Renderer) loadTemplates() error {
	templates := make(map[string]*template.Template)

	// Get component templates (shared across layouts) - recursively from all subdirs
	var componentFiles []string
	err := fs.WalkDir(r.fsys, "components", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".html") {
			componentFiles = append(componentFiles, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to walk components dir: %w", err)
	}

	partialFiles, err := fs.Glob(r.fsys, "partials/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob partials: %w", err)
	}

	// Each partial is also parsed on its own so htmx responses can render it
	// without a layout.
	for _, partial := range partialFiles {
		tmpl, err := template.New("").Funcs(r.funcs).ParseFS(r.fsys, append([]string{partial}, componentFiles...)...)
		if err != nil {
			return fmt.Errorf("failed to parse partial %s: %w", partial, err)
		}
		templates["partial/"+baseName(partial)] = tmpl
	}

	shared := append(append([]string{}, componentFiles...), partialFiles...)

	layouts := []struct {
		name   string
		pages  []string
		prefix func(page string) string
	}{
		{
			name:   "auth",
			pages:  []string{"pages/auth/*.html"},
			prefix: func(page string) string { return "auth/" + baseName(page) },
		},
		{
			name:  "app",
			pages: []string{"pages/*.html", "pages/*/*.html"},
			prefix: func(page string) string {
				dir := path.Base(path.Dir(page))
				if dir == "pages" {
					return baseName(page)
				}
				return dir + "/" + baseName(page)
			},
		},
	}

	for _, layout := range layouts {
		base, err := template.New(layout.name).Funcs(r.funcs).ParseFS(r.fsys, append([]string{"layouts/" + layout.name + ".html"}, shared...)...)
		if err != nil {
			return fmt.Errorf("failed to parse %s layout: %w", layout.name, err)
		}

		for _, pattern := range layout.pages {
			pages, err := fs.Glob(r.fsys, pattern)
			if err != nil {
				return fmt.Errorf("failed to glob %s: %w", pattern, err)
			}
			for _, page := range pages {
				// pages/auth/* belongs to the auth layout only.
				if layout.name == "app" && strings.HasPrefix(page, "pages/auth/") {
					continue
				}
				pageTmpl, err := base.Clone()
				if err != nil {
					return fmt.Errorf("failed to clone %s template for %s: %w", layout.name, page, err)
				}
				pageTmpl, err = pageTmpl.ParseFS(r.fsys, page)
				if err != nil {
					return fmt.Errorf("failed to parse page %s: %w", page, err)
				}
				templates[layout.prefix(page)] = pageTmpl
			}
		}
	}

	r.templates = templates
	r.logger.Debug("templates loaded", "count", len(templates))
	return nil
}

func baseName(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

// Reload reloads all templates. Useful for development.
func (r *Renderer) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadTemplates()
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return nil, fmt.Errorf("template reload failed: %w", err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return tmpl, nil
}

// Render renders a page to an io.Writer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, r.getBaseTemplateName(name), data)
}

// RenderHTTP renders a page directly to an http.ResponseWriter.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	r.RenderHTTPStatus(w, http.StatusOK, name, data)
}

// RenderHTTPStatus renders a page with the given status code.
func (r *Renderer) RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	// Render to buffer first to catch errors before writing headers
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "Template execution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderPartial renders a partial template (for htmx responses).
// The partial file should contain {{define "name"}}...{{end}} where name matches the file name.
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) {
	tmpl, err := r.lookup("partial/" + name)
	if err != nil {
		r.logger.Error("partial template not found", "name", name, "error", err)
		http.Error(w, "Partial not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("partial execution failed", "name", name, "error", err)
		http.Error(w, "Partial execution failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// getBaseTemplateName determines which base template to execute.
func (r *Renderer) getBaseTemplateName(name string) string {
	switch {
	case strings.HasPrefix(name, "auth/"):
		return "auth"
	case strings.HasPrefix(name, "partial/"):
		return strings.TrimPrefix(name, "partial/")
	default:
		return "app"
	}
}

// ListTemplates returns a list of all loaded template names.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// RenderComponent writes a templ fragment as an htmx response.
func RenderComponent(w http.ResponseWriter, r *http.Request, logger *slog.Logger, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logger.Error("component render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
