package panels

import (
	"fmt"
	"html/template"

	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
	"github.com/sakif/snippets-admin/internal/urls"
)

var chooserTmpl = template.Must(template.New("chooser").Parse(`<li class="field snippet-chooser{{if .Field.Required}} required{{end}}{{if .Field.Errors}} error{{end}}">
<label for="{{.Field.ID}}">{{.Field.Label}}{{if .Field.Required}}<span class="required-mark">*</span>{{end}}</label>
<div id="{{.Field.ID}}-chooser" class="chooser{{if not .Chosen}} blank{{end}}" data-chooser-url="{{.ChooserURL}}">
<div class="chosen">
<span class="title">{{.Title}}</span>
<a class="edit-link" href="{{.EditURL}}"{{if not .Chosen}} hidden{{end}}>Edit this {{.Target.VerboseName}}</a>
<button type="button" class="action-choose">Choose another {{.Target.VerboseName}}</button>
{{- if not .Field.Required}}
<button type="button" class="action-clear">Clear choice</button>
{{- end}}
</div>
<div class="unchosen">
<button type="button" class="action-choose">Choose {{.Target.VerboseName}}</button>
</div>
</div>
<input type="hidden" name="{{.Field.Name}}" id="{{.Field.ID}}" value="{{.Field.Value}}">
{{- range .Field.Errors}}
<p class="error-message">{{.}}</p>
{{- end}}
</li>`))

// SnippetChooserPanel edits a reference to another snippet with a modal
// picker instead of a raw id input.
type SnippetChooserPanel struct {
	Name   string
	Target *registry.Type
}

func NewSnippetChooserPanel(name string, target *registry.Type) *SnippetChooserPanel {
	return &SnippetChooserPanel{Name: name, Target: target}
}

func (p *SnippetChooserPanel) FieldName() string { return p.Name }

func (p *SnippetChooserPanel) Bind(form *forms.Form, chosen map[string]*model.Snippet) BoundPanel {
	fld := form.Field(p.Name)
	if fld == nil {
		fld = missingField(p.Name)
	}
	return &BoundSnippetChooser{
		Field:  fld,
		Target: p.Target,
		Chosen: chosen[p.Name],
	}
}

// BoundSnippetChooser is a chooser panel bound to a form. Chosen is nil
// when nothing is selected.
type BoundSnippetChooser struct {
	Field  *forms.Field
	Target *registry.Type
	Chosen *model.Snippet
}

// Title is the chosen snippet's display value.
func (b *BoundSnippetChooser) Title() string {
	if b.Chosen == nil {
		return ""
	}
	return b.Target.Display(b.Chosen)
}

func (b *BoundSnippetChooser) EditURL() string {
	if b.Chosen == nil {
		return ""
	}
	return urls.Edit(b.Target, b.Chosen.ID)
}

func (b *BoundSnippetChooser) ChooserURL() string { return urls.Chooser(b.Target) }

// RenderAsField renders the chosen snippet's title, the picker buttons and
// the hidden input carrying the chosen id.
func (b *BoundSnippetChooser) RenderAsField() template.HTML {
	return render(chooserTmpl, b)
}

// RenderJS wires the picker to the hidden input, e.g.
//
//	createSnippetChooser(fixPrefix('id_advert'), 'tests/advert');
func (b *BoundSnippetChooser) RenderJS() template.JS {
	return template.JS(fmt.Sprintf("createSnippetChooser(fixPrefix('%s'), '%s');",
		template.JSEscapeString(b.Field.ID()),
		template.JSEscapeString(b.Target.Path()),
	))
}
