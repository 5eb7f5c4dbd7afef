// Package urls builds the admin paths for snippet types, so handlers,
// templates and panels agree on one URL layout.
package urls

import (
	"net/url"
	"strconv"

	"github.com/sakif/snippets-admin/internal/registry"
)

const (
	Root    = "/admin/snippets/"
	Login   = "/admin/login/"
	Logout  = "/admin/logout/"
	Static  = "/static/"
	chooser = Root + registry.ReservedAppLabel + "/"
)

// Index is the list of snippet types.
func Index() string { return Root }

// List is t's listing page.
func List(t *registry.Type) string { return Root + t.Path() + "/" }

// ListPage is List with search and page parameters.
func ListPage(t *registry.Type, query string, page int) string {
	return withParams(List(t), query, page)
}

func Create(t *registry.Type) string { return List(t) + "new/" }

func Edit(t *registry.Type, id int64) string {
	return List(t) + strconv.FormatInt(id, 10) + "/"
}

func Delete(t *registry.Type, id int64) string { return Edit(t, id) + "delete/" }

// Chooser is the modal listing used by the chooser widget.
func Chooser(t *registry.Type) string { return chooser + t.Path() + "/" }

// ChooserPage is Chooser with search and page parameters.
func ChooserPage(t *registry.Type, query string, page int) string {
	return withParams(Chooser(t), query, page)
}

// Chosen returns the JSON description of one snippet for the widget.
func Chosen(t *registry.Type, id int64) string {
	return Chooser(t) + strconv.FormatInt(id, 10) + "/"
}

// withParams adds q and p, leaving out empty values and the first page.
func withParams(base, query string, page int) string {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if page > 1 {
		v.Set("p", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}
