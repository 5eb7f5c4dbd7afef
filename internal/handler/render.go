package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
	"github.com/sakif/snippets-admin/internal/urls"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages lists each full page and the partials it is parsed with. Every
// page is parsed together with base.html, which pulls in "content".
var pages = map[string][]string{
	"index":  {"index.html"},
	"list":   {"list.html"},
	"create": {"form.html", "create.html"},
	"edit":   {"form.html", "edit.html"},
	"delete": {"delete.html"},
	"login":  {"login.html"},
	"error":  {"error.html"},
}

// fragments are rendered without the base layout.
var fragments = map[string]string{
	"chooser": "chooser.html",
}

var funcs = template.FuncMap{
	"listURL":        urls.List,
	"pageURL":        urls.ListPage,
	"createURL":      urls.Create,
	"editURL":        urls.Edit,
	"deleteURL":      urls.Delete,
	"chooserURL":     urls.Chooser,
	"chooserPageURL": urls.ChooserPage,
	"chosenURL":      urls.Chosen,
	"display":        display,
	"add":            func(a, b int) int { return a + b },
}

// display accepts both model.Snippet (ranged slices) and *model.Snippet.
func display(t *registry.Type, s any) string {
	switch v := s.(type) {
	case model.Snippet:
		return t.Display(&v)
	case *model.Snippet:
		return t.Display(v)
	}
	return ""
}

// basePage carries what base.html needs. Page data structs embed it.
type basePage struct {
	Title    string
	Flash    string
	LoggedIn bool
}

// Renderer holds the parsed templates; they're parsed once at startup.
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewRenderer parses every page and fragment template.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	rr := &Renderer{templates: make(map[string]*template.Template), logger: logger}

	for name, files := range pages {
		patterns := append([]string{"templates/base.html"}, prefixed(files)...)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parsing %s templates: %w", name, err)
		}
		rr.templates[name] = tmpl.Lookup("base")
	}
	for name, file := range fragments {
		tmpl, err := template.New("fragment-" + name).Funcs(funcs).ParseFS(templateFS, "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		rr.templates[name] = tmpl.Lookup(name)
	}
	return rr, nil
}

func prefixed(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = "templates/" + f
	}
	return out
}

// Render executes a template into a buffer first so a template error can
// still become a clean 500 instead of a half-written page.
func (rr *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := rr.templates[name]
	if !ok {
		rr.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		rr.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
