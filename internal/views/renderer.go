// Package views renders the server-side HTML pages.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// CSRFContextKey is where the CSRF middleware leaves the request's token.
const CSRFContextKey = "csrf"

// Page is the value every template executes against.
type Page struct {
	Viewer  *session.Viewer
	Flashes []session.FlashMessage
	// CSRF is the token forms echo back as csrf_token.
	CSRF    string
	Data    interface{}
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"genreLabel": func(key string) string {
		for _, g := range models.Genres {
			if g.Key == key {
				return g.Label
			}
		}
		return key
	},
	"genres":     func() []models.Genre { return models.Genres },
	"pathEscape": url.PathEscape,
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	layout, err := fs.ReadFile(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		page := strings.TrimSuffix(path.Base(name), ".html")
		if page == "layout" {
			continue
		}
		body, err := fs.ReadFile(templateFS, name)
		if err != nil {
			return nil, err
		}
		t, err := template.New(page).Funcs(funcs).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parse layout for %s: %w", page, err)
		}
		if _, err := t.Parse(string(body)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render executes the page called name, consuming the request's flashes.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	token, _ := c.Get(CSRFContextKey).(string)
	return t.ExecuteTemplate(w, "layout", Page{
		Viewer:  session.ViewerFrom(c),
		Flashes: session.Flashes(c),
		CSRF:    token,
		Data:    data,
	})
}
