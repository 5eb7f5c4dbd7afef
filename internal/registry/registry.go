// Package registry holds the snippet content types known to the admin.
//
// A content type is addressed in URLs by its (app_label, model_name) pair,
// e.g. /admin/snippets/tests/advert/. Every view resolves that pair through
// the registry first; an unknown pair is a 404.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/model"
)

// FieldKind selects how a field is validated and rendered.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindURL      FieldKind = "url"
	KindSnippet  FieldKind = "snippet" // reference to another snippet, rendered with a chooser
)

// identifiers end up in URLs and in sqlite JSON paths
var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ReservedAppLabel is the path segment the chooser is mounted under, so no
// type may use it as an app label.
const ReservedAppLabel = "choose"

// Field describes one editable field of a snippet type.
type Field struct {
	Name      string    `yaml:"name"`
	Label     string    `yaml:"label"`
	Kind      FieldKind `yaml:"kind"`
	Required  bool      `yaml:"required"`
	MaxLength int       `yaml:"max_length"`
	HelpText  string    `yaml:"help_text"`
	Target    string    `yaml:"target"` // "app_label.model_name", only for KindSnippet
}

// Type is a registered snippet content type.
type Type struct {
	AppLabel          string  `yaml:"app_label"`
	ModelName         string  `yaml:"model_name"`
	VerboseName       string  `yaml:"verbose_name"`
	VerboseNamePlural string  `yaml:"verbose_name_plural"`
	DisplayField      string  `yaml:"display_field"`
	Fields            []Field `yaml:"fields"`
}

// Label is the dotted identifier used for storage, e.g. "tests.advert".
func (t *Type) Label() string { return t.AppLabel + "." + t.ModelName }

// Path is the URL fragment, e.g. "tests/advert".
func (t *Type) Path() string { return t.AppLabel + "/" + t.ModelName }

// Field looks up a field by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Title is the capitalised plural shown on the index, e.g. "Adverts".
func (t *Type) Title() string { return capFirst(t.VerboseNamePlural) }

// Display returns the text an editor sees for s: its display field, falling
// back to "<verbose name> object (<id>)" when that field is empty.
func (t *Type) Display(s *model.Snippet) string {
	if v := s.Get(t.DisplayField); v != "" {
		return v
	}
	return fmt.Sprintf("%s object (%d)", capFirst(t.VerboseName), s.ID)
}

func capFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// normalise fills defaults and validates a type definition in place.
func (t *Type) normalise() error {
	t.AppLabel = strings.ToLower(strings.TrimSpace(t.AppLabel))
	t.ModelName = strings.ToLower(strings.TrimSpace(t.ModelName))

	if !identRe.MatchString(t.AppLabel) {
		return fmt.Errorf("registry: invalid app label %q", t.AppLabel)
	}
	if t.AppLabel == ReservedAppLabel {
		return fmt.Errorf("registry: app label %q is reserved", t.AppLabel)
	}
	if !identRe.MatchString(t.ModelName) {
		return fmt.Errorf("registry: invalid model name %q", t.ModelName)
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("registry: %s has no fields", t.Label())
	}
	if t.VerboseName == "" {
		t.VerboseName = t.ModelName
	}
	if t.VerboseNamePlural == "" {
		t.VerboseNamePlural = t.VerboseName + "s"
	}

	seen := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if !identRe.MatchString(f.Name) {
			return fmt.Errorf("registry: %s: invalid field name %q", t.Label(), f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("registry: %s: duplicate field %q", t.Label(), f.Name)
		}
		seen[f.Name] = true

		if f.Kind == "" {
			f.Kind = KindText
		}
		switch f.Kind {
		case KindText, KindTextarea, KindURL:
		case KindSnippet:
			if f.Target == "" {
				return fmt.Errorf("registry: %s.%s: snippet field needs a target", t.Label(), f.Name)
			}
		default:
			return fmt.Errorf("registry: %s.%s: unknown kind %q", t.Label(), f.Name, f.Kind)
		}
		if f.Label == "" {
			f.Label = capFirst(strings.ReplaceAll(f.Name, "_", " "))
		}
	}

	if t.DisplayField == "" {
		t.DisplayField = t.Fields[0].Name
	}
	if !seen[t.DisplayField] {
		return fmt.Errorf("registry: %s: display field %q is not a field", t.Label(), t.DisplayField)
	}
	return nil
}

// Registry is a concurrency-safe set of snippet types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register adds t. Snippet-reference fields must point at a type that is
// already registered, so register targets first.
func (r *Registry) Register(t Type) error {
	t.Fields = append([]Field(nil), t.Fields...)
	if err := t.normalise(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Label()]; exists {
		return fmt.Errorf("registry: %s already registered", t.Label())
	}
	for _, f := range t.Fields {
		if f.Kind == KindSnippet {
			if _, ok := r.types[f.Target]; !ok {
				return fmt.Errorf("registry: %s.%s: unknown target %q", t.Label(), f.Name, f.Target)
			}
		}
	}

	stored := t
	r.types[t.Label()] = &stored
	return nil
}

// Lookup resolves the URL pair to a type. Matching is case-insensitive, as
// content-type lookups are.
func (r *Registry) Lookup(appLabel, modelName string) (*Type, error) {
	return r.ByLabel(strings.ToLower(appLabel) + "." + strings.ToLower(modelName))
}

// ByLabel resolves a dotted label such as "tests.advert".
func (r *Registry) ByLabel(label string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[label]
	if !ok {
		return nil, apperror.NotFound("snippet type", label)
	}
	return t, nil
}

// All returns every registered type ordered by plural name.
func (r *Registry) All() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].VerboseNamePlural) < strings.ToLower(out[j].VerboseNamePlural)
	})
	return out
}
