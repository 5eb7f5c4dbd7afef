// Package panels renders a snippet type's edit form as a list of panels.
//
// A Panel describes how one field is edited. Binding a panel to a form (and
// to the snippets currently chosen by reference fields) gives a BoundPanel
// that renders its HTML and, for widgets that need it, a line of JavaScript
// to run once the form is on the page.
package panels

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
)

// Panel edits one field of a snippet type.
type Panel interface {
	FieldName() string
	Bind(form *forms.Form, chosen map[string]*model.Snippet) BoundPanel
}

// BoundPanel is a panel attached to a form's current values.
type BoundPanel interface {
	RenderAsField() template.HTML
	RenderJS() template.JS
}

// EditHandler is the ordered list of panels for one snippet type.
type EditHandler struct {
	Type   *registry.Type
	Panels []Panel
}

// NewEditHandler builds the default edit handler for t: a FieldPanel per
// plain field and a SnippetChooserPanel per snippet reference. types is
// used to resolve reference targets.
func NewEditHandler(t *registry.Type, types *registry.Registry) (*EditHandler, error) {
	h := &EditHandler{Type: t, Panels: make([]Panel, 0, len(t.Fields))}
	for _, f := range t.Fields {
		if f.Kind != registry.KindSnippet {
			h.Panels = append(h.Panels, NewFieldPanel(f.Name))
			continue
		}
		target, err := types.ByLabel(f.Target)
		if err != nil {
			return nil, fmt.Errorf("panels: field %s of %s: %w", f.Name, t.Label(), err)
		}
		h.Panels = append(h.Panels, NewSnippetChooserPanel(f.Name, target))
	}
	return h, nil
}

// Bind binds every panel. chosen maps reference field names to the
// snippets they currently point at.
func (h *EditHandler) Bind(form *forms.Form, chosen map[string]*model.Snippet) []BoundPanel {
	out := make([]BoundPanel, 0, len(h.Panels))
	for _, p := range h.Panels {
		out = append(out, p.Bind(form, chosen))
	}
	return out
}

// render executes a panel template into HTML. The templates are package
// constants, so an execution error is a programming error.
func render(tmpl *template.Template, data any) template.HTML {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("panels: rendering %s: %v", tmpl.Name(), err))
	}
	return template.HTML(buf.String())
}

// missingField is rendered when a panel names a field the form doesn't have.
func missingField(name string) *forms.Field {
	return &forms.Field{Field: registry.Field{Name: name, Label: name}}
}
