package panels

import (
	"html/template"

	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/model"
)

var fieldTmpl = template.Must(template.New("field").Parse(`<li class="field {{.Kind}}{{if .Required}} required{{end}}{{if .Errors}} error{{end}}">
<label for="{{.ID}}">{{.Label}}{{if .Required}}<span class="required-mark">*</span>{{end}}</label>
{{- if eq (print .Kind) "textarea"}}
<textarea name="{{.Name}}" id="{{.ID}}" rows="4">{{.Value}}</textarea>
{{- else}}
<input type="{{if eq (print .Kind) "url"}}url{{else}}text{{end}}" name="{{.Name}}" id="{{.ID}}" value="{{.Value}}"{{if .MaxLength}} maxlength="{{.MaxLength}}"{{end}}>
{{- end}}
{{- if .HelpText}}
<p class="help">{{.HelpText}}</p>
{{- end}}
{{- range .Errors}}
<p class="error-message">{{.}}</p>
{{- end}}
</li>`))

// FieldPanel renders a plain input for one field.
type FieldPanel struct {
	Name string
}

func NewFieldPanel(name string) *FieldPanel { return &FieldPanel{Name: name} }

func (p *FieldPanel) FieldName() string { return p.Name }

func (p *FieldPanel) Bind(form *forms.Form, _ map[string]*model.Snippet) BoundPanel {
	fld := form.Field(p.Name)
	if fld == nil {
		fld = missingField(p.Name)
	}
	return &boundField{field: fld}
}

type boundField struct {
	field *forms.Field
}

func (b *boundField) RenderAsField() template.HTML { return render(fieldTmpl, b.field) }

// RenderJS is empty: plain inputs need no script.
func (b *boundField) RenderJS() template.JS { return "" }
