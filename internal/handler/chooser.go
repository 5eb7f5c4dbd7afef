package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippets-admin/internal/registry"
	"github.com/sakif/snippets-admin/internal/service"
	"github.com/sakif/snippets-admin/internal/urls"
)

// ChooserHandler backs the snippet chooser widget: an HTML fragment listing
// candidates for the modal, and a JSON lookup of a single choice.
type ChooserHandler struct {
	snippets *service.SnippetService
	render   *Renderer
	logger   *slog.Logger
}

func NewChooserHandler(snippets *service.SnippetService, render *Renderer, logger *slog.Logger) *ChooserHandler {
	return &ChooserHandler{snippets: snippets, render: render, logger: logger}
}

// Routes mounts the chooser endpoints. Paths are relative to
// /admin/snippets/choose.
func (h *ChooserHandler) Routes(r chi.Router) {
	r.Get("/{app}/{model}/", h.HandleChoose)
	r.Get("/{app}/{model}/{id}/", h.HandleChosen)
}

type chooserPage struct {
	Type *registry.Type
	Page *service.Page
}

// ChosenResponse describes one snippet to the widget after a pick.
type ChosenResponse struct {
	ID       int64  `json:"id"`
	String   string `json:"string"`
	EditLink string `json:"edit_link"`
}

// HandleChoose renders the modal body: search box, candidates, pagination.
//
// HTTP: GET /admin/snippets/choose/{app}/{model}/?q=search&p=2
func (h *ChooserHandler) HandleChoose(w http.ResponseWriter, r *http.Request) {
	t, err := h.snippets.Type(chi.URLParam(r, "app"), chi.URLParam(r, "model"))
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	page, err := h.snippets.List(r.Context(), t, pageNumber(r), r.URL.Query().Get("q"))
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.render.Render(w, http.StatusOK, "chooser", chooserPage{Type: t, Page: page})
}

// HandleChosen returns the id, display string and edit link of a snippet.
//
// HTTP: GET /admin/snippets/choose/{app}/{model}/{id}/
func (h *ChooserHandler) HandleChosen(w http.ResponseWriter, r *http.Request) {
	t, err := h.snippets.Type(chi.URLParam(r, "app"), chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := service.ParseID(t, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Get(r.Context(), t, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChosenResponse{
		ID:       snippet.ID,
		String:   t.Display(snippet),
		EditLink: urls.Edit(t, snippet.ID),
	})
}
