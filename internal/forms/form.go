// Package forms binds submitted values to a snippet type's fields and
// validates them, collecting field-level error messages for re-rendering.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
)

// Error messages shown next to invalid fields.
const (
	MsgRequired      = "This field is required."
	MsgInvalidURL    = "Enter a valid URL."
	MsgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

// ErrInvalidReference is returned by ReferenceID for values that are not a
// usable snippet id, such as digits that overflow int64.
var ErrInvalidReference = errors.New("invalid snippet reference")

// validate is safe for concurrent use and caches parsed tags.
var validate = validator.New()

// Field is one bound form field.
type Field struct {
	registry.Field
	Value  string
	Errors []string
}

// ID is the HTML id of the field's input, e.g. "id_text".
func (f *Field) ID() string { return "id_" + f.Name }

// Form is a snippet type's fields bound to values.
type Form struct {
	Type   *registry.Type
	Fields []*Field
	bound  bool
}

func newForm(t *registry.Type, value func(name string) string) *Form {
	f := &Form{Type: t, Fields: make([]*Field, 0, len(t.Fields))}
	for _, spec := range t.Fields {
		f.Fields = append(f.Fields, &Field{Field: spec, Value: value(spec.Name)})
	}
	return f
}

// New returns an unbound, empty form.
func New(t *registry.Type) *Form {
	return newForm(t, func(string) string { return "" })
}

// FromSnippet returns an unbound form pre-filled from s.
func FromSnippet(t *registry.Type, s *model.Snippet) *Form {
	return newForm(t, s.Get)
}

// Bind returns a form bound to submitted values. Values are trimmed; keys
// that aren't fields of t are ignored.
func Bind(t *registry.Type, values url.Values) *Form {
	f := newForm(t, func(name string) string {
		return strings.TrimSpace(values.Get(name))
	})
	f.bound = true
	return f
}

// IsBound reports whether the form carries submitted data.
func (f *Form) IsBound() bool { return f.bound }

// Field returns the named field or nil.
func (f *Form) Field(name string) *Field {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld
		}
	}
	return nil
}

// AddError attaches a message to the named field.
func (f *Form) AddError(name, msg string) {
	if fld := f.Field(name); fld != nil {
		fld.Errors = append(fld.Errors, msg)
	}
}

// Valid reports whether the form is bound and no field has errors.
func (f *Form) Valid() bool {
	if !f.bound {
		return false
	}
	for _, fld := range f.Fields {
		if len(fld.Errors) > 0 {
			return false
		}
	}
	return true
}

// Cleaned returns the validated values keyed by field name.
func (f *Form) Cleaned() map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, fld := range f.Fields {
		out[fld.Name] = fld.Value
	}
	return out
}

// Validate runs the per-field rules and reports whether the form is valid.
// Existence of referenced snippets is not checked here; see ReferenceID.
func (f *Form) Validate() bool {
	for _, fld := range f.Fields {
		fld.Errors = nil
		tag := rules(fld.Field)
		if tag == "" {
			continue
		}
		if err := validate.Var(fld.Value, tag); err != nil {
			fld.Errors = append(fld.Errors, messages(fld, err)...)
		}
	}
	return f.Valid()
}

// ReferenceID parses a snippet field's value. ok is false for empty values;
// a value that cannot name a snippet is ErrInvalidReference.
func (f *Field) ReferenceID() (id int64, ok bool, err error) {
	if f.Kind != registry.KindSnippet || f.Value == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(f.Value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidReference, f.Value)
	}
	return id, true, nil
}

// rules builds the validator tag for a field.
func rules(spec registry.Field) string {
	var tags []string
	if spec.Required {
		tags = append(tags, "required")
	} else {
		tags = append(tags, "omitempty")
	}

	switch spec.Kind {
	case registry.KindURL:
		tags = append(tags, "http_url")
	case registry.KindSnippet:
		tags = append(tags, "number")
	}
	if spec.MaxLength > 0 {
		tags = append(tags, fmt.Sprintf("max=%d", spec.MaxLength))
	}

	if len(tags) == 1 && tags[0] == "omitempty" {
		return ""
	}
	return strings.Join(tags, ",")
}

// messages translates validator failures into editor-facing messages.
func messages(fld *Field, err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out = append(out, MsgRequired)
		case "http_url", "url":
			out = append(out, MsgInvalidURL)
		case "number":
			out = append(out, MsgInvalidChoice)
		case "max":
			out = append(out, fmt.Sprintf("Ensure this value has at most %s characters (it has %d).",
				fe.Param(), utf8.RuneCountInString(fld.Value)))
		default:
			out = append(out, fmt.Sprintf("Enter a valid value (%s).", fe.Tag()))
		}
	}
	return out
}

// Errors returns field name → messages for fields that have errors.
func (f *Form) Errors() map[string][]string {
	out := make(map[string][]string)
	for _, fld := range f.Fields {
		if len(fld.Errors) > 0 {
			out[fld.Name] = fld.Errors
		}
	}
	return out
}
