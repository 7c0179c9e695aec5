// Package views renders the portal's server-side HTML pages.
//
// Templates are embedded at compile time. Every page shares layout.html, which
// provides the navigation bar and flash messages, and defines a "content" block.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/serviceportal/internal/api/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names
const (
	PageIndex           = "index"
	PageServiceForm     = "service_form"
	PageConfirmation    = "confirmation"
	PageRegister        = "register"
	PageLogin           = "login"
	PageClientDashboard = "client_dashboard"
	PageClientRequests  = "client_requests"
	PageClientRespond   = "client_respond"
	PageError           = "error"
)

// Page is the data passed to every template
type Page struct {
	Title   string
	Session *session.Session
	Flashes []session.Flash
	Data    any
}

// Renderer executes the parsed page templates
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
	"lower": strings.ToLower,
}

// New parses the embedded templates
func New() (*Renderer, error) {
	return parse(templateFS)
}

func parse(fsys fs.FS) (*Renderer, error) {
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		page := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if page == "layout" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render writes page with the given status. The template is executed into a
// buffer first so a failing template never produces a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
