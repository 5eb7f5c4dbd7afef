// Package handler contains the HTTP handlers of the snippets admin.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules: validation lives in forms and service, storage
// behind the repository interfaces.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/auth"
	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/panels"
	"github.com/sakif/snippets-admin/internal/registry"
	"github.com/sakif/snippets-admin/internal/service"
	"github.com/sakif/snippets-admin/internal/urls"
)

// SnippetHandler serves the snippet admin pages for every registered type.
type SnippetHandler struct {
	snippets *service.SnippetService
	types    *registry.Registry
	render   *Renderer
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, types *registry.Registry, render *Renderer, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		snippets: snippets,
		types:    types,
		render:   render,
		logger:   logger,
	}
}

// Routes mounts the admin pages. Paths are relative to /admin/snippets.
func (h *SnippetHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/{app}/{model}/", h.HandleList)
	r.Get("/{app}/{model}/new/", h.HandleCreateForm)
	r.Post("/{app}/{model}/new/", h.HandleCreate)
	r.Get("/{app}/{model}/{id}/", h.HandleEditForm)
	r.Post("/{app}/{model}/{id}/", h.HandleEdit)
	r.Get("/{app}/{model}/{id}/delete/", h.HandleDeleteForm)
	r.Post("/{app}/{model}/{id}/delete/", h.HandleDelete)
}

type indexPage struct {
	basePage
	Types []*registry.Type
}

type listPage struct {
	basePage
	Type *registry.Type
	Page *service.Page
}

// formPage backs both create.html and edit.html. Snippet is nil on create.
type formPage struct {
	basePage
	Type    *registry.Type
	Snippet *model.Snippet
	Panels  []panels.BoundPanel
	Action  string
	Error   string
}

// deletePage lists References instead of offering the delete button while
// other snippets still point at Snippet.
type deletePage struct {
	basePage
	Type       *registry.Type
	Snippet    *model.Snippet
	References []service.Reference
	Error      string
}

// HandleIndex lists the registered snippet types.
//
// HTTP: GET /admin/snippets/
func (h *SnippetHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "index", indexPage{
		basePage: h.base(w, r, "Snippets"),
		Types:    h.snippets.Types(),
	})
}

// HandleList shows one page of a type's snippets.
//
// HTTP: GET /admin/snippets/{app}/{model}/?q=search&p=2
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	t, ok := h.snippetType(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	page, err := h.snippets.List(r.Context(), t, pageNumber(r), query)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.render.Render(w, http.StatusOK, "list", listPage{
		basePage: h.base(w, r, t.Title()),
		Type:     t,
		Page:     page,
	})
}

// HandleCreateForm shows an empty form.
//
// HTTP: GET /admin/snippets/{app}/{model}/new/
func (h *SnippetHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	t, ok := h.snippetType(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, "create", t, nil, forms.New(t), "")
}

// HandleCreate validates the submission. An invalid form is re-rendered
// with its errors (200); a valid one is stored and redirects to the list.
//
// HTTP: POST /admin/snippets/{app}/{model}/new/
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	t, ok := h.snippetType(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.renderError(w, r, apperror.ValidationFailed("", "malformed form submission"))
		return
	}

	form := forms.Bind(t, r.PostForm)
	snippet, err := h.snippets.Create(r.Context(), t, form)
	if err != nil {
		if msg, invalid := formError(err); invalid {
			h.renderForm(w, r, http.StatusOK, "create", t, nil, form, msg)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	setFlash(w, fmt.Sprintf("%s '%s' created.", capFirst(t.VerboseName), t.Display(snippet)))
	http.Redirect(w, r, urls.List(t), http.StatusFound)
}

// HandleEditForm shows the form filled with the stored values.
//
// HTTP: GET /admin/snippets/{app}/{model}/{id}/
func (h *SnippetHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	t, snippet, ok := h.snippetAndType(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, "edit", t, snippet, forms.FromSnippet(t, snippet), "")
}

// HandleEdit updates the snippet in place; the record count is unchanged.
//
// HTTP: POST /admin/snippets/{app}/{model}/{id}/
func (h *SnippetHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	t, snippet, ok := h.snippetAndType(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.renderError(w, r, apperror.ValidationFailed("", "malformed form submission"))
		return
	}

	form := forms.Bind(t, r.PostForm)
	updated, err := h.snippets.Update(r.Context(), t, snippet.ID, form)
	if err != nil {
		if msg, invalid := formError(err); invalid {
			h.renderForm(w, r, http.StatusOK, "edit", t, snippet, form, msg)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	setFlash(w, fmt.Sprintf("%s '%s' updated.", capFirst(t.VerboseName), t.Display(updated)))
	http.Redirect(w, r, urls.List(t), http.StatusFound)
}

// HandleDeleteForm asks for confirmation.
//
// HTTP: GET /admin/snippets/{app}/{model}/{id}/delete/
func (h *SnippetHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	t, snippet, ok := h.snippetAndType(w, r)
	if !ok {
		return
	}
	h.renderDelete(w, r, http.StatusOK, t, snippet, "")
}

// HandleDelete removes the snippet. The body is ignored. A snippet that is
// still referenced gets the confirmation page back with a 409.
//
// HTTP: POST /admin/snippets/{app}/{model}/{id}/delete/
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	t, snippet, ok := h.snippetAndType(w, r)
	if !ok {
		return
	}

	deleted, err := h.snippets.Delete(r.Context(), t, snippet.ID)
	if errors.Is(err, apperror.ErrConflict) {
		h.renderDelete(w, r, http.StatusConflict, t, snippet,
			fmt.Sprintf("This %s can't be deleted while other snippets use it.", t.VerboseName))
		return
	}
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	setFlash(w, fmt.Sprintf("%s '%s' deleted.", capFirst(t.VerboseName), t.Display(deleted)))
	http.Redirect(w, r, urls.List(t), http.StatusFound)
}

func (h *SnippetHandler) renderDelete(
	w http.ResponseWriter, r *http.Request, status int,
	t *registry.Type, snippet *model.Snippet, errMsg string,
) {
	refs, err := h.snippets.Referrers(r.Context(), t, snippet.ID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}
	h.render.Render(w, status, "delete", deletePage{
		basePage:   h.base(w, r, "Delete "+t.VerboseName),
		Type:       t,
		Snippet:    snippet,
		References: refs,
		Error:      errMsg,
	})
}

func (h *SnippetHandler) renderForm(
	w http.ResponseWriter, r *http.Request, status int, page string,
	t *registry.Type, snippet *model.Snippet, form *forms.Form, errMsg string,
) {
	edit, err := panels.NewEditHandler(t, h.types)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	title := "New " + t.VerboseName
	action := urls.Create(t)
	if snippet != nil {
		title = "Editing " + t.VerboseName
		action = urls.Edit(t, snippet.ID)
	}

	h.render.Render(w, status, page, formPage{
		basePage: h.base(w, r, title),
		Type:     t,
		Snippet:  snippet,
		Panels:   edit.Bind(form, h.snippets.Resolve(r.Context(), form)),
		Action:   action,
		Error:    errMsg,
	})
}

// snippetType resolves {app}/{model}, writing a 404 page when unknown.
func (h *SnippetHandler) snippetType(w http.ResponseWriter, r *http.Request) (*registry.Type, bool) {
	t, err := h.snippets.Type(chi.URLParam(r, "app"), chi.URLParam(r, "model"))
	if err != nil {
		h.render.renderError(w, r, err)
		return nil, false
	}
	return t, true
}

// snippetAndType also resolves {id}; unknown or malformed ids are 404.
func (h *SnippetHandler) snippetAndType(w http.ResponseWriter, r *http.Request) (*registry.Type, *model.Snippet, bool) {
	t, ok := h.snippetType(w, r)
	if !ok {
		return nil, nil, false
	}

	id, err := service.ParseID(t, chi.URLParam(r, "id"))
	if err != nil {
		h.render.renderError(w, r, err)
		return nil, nil, false
	}

	snippet, err := h.snippets.Get(r.Context(), t, id)
	if err != nil {
		h.render.renderError(w, r, err)
		return nil, nil, false
	}
	return t, snippet, true
}

func (h *SnippetHandler) base(w http.ResponseWriter, r *http.Request, title string) basePage {
	return basePage{Title: title, Flash: popFlash(w, r), LoggedIn: loggedIn(r)}
}

// formError reports whether err is a form validation failure and returns
// the page-level message to show with it.
func formError(err error) (string, bool) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
		return appErr.Message, true
	}
	return "", false
}

// pageNumber reads ?p=. Unparsable or non-positive values are page 1; a
// number too large for int asks for the last page.
func pageNumber(r *http.Request) int {
	raw := r.URL.Query().Get("p")
	p, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return math.MaxInt
	}
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func loggedIn(r *http.Request) bool {
	_, ok := auth.UserIDFromContext(r.Context())
	return ok
}

func capFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
