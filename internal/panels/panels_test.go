package panels

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
)

// chooserModel has one plain field and a reference to an advert.
var chooserModel = registry.Type{
	AppLabel:  "tests",
	ModelName: "snippetchoosermodel",
	Fields: []registry.Field{
		{Name: "name", Kind: registry.KindText},
		{Name: "advert", Kind: registry.KindSnippet, Target: "tests.advert", Required: true},
	},
}

func setup(t *testing.T) (*registry.Registry, *registry.Type, *registry.Type) {
	t.Helper()
	types := registry.Default()
	require.NoError(t, types.Register(chooserModel))

	advert, err := types.Lookup("tests", "advert")
	require.NoError(t, err)
	owner, err := types.Lookup("tests", "snippetchoosermodel")
	require.NoError(t, err)
	return types, advert, owner
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSnippetChooserPanel(t *testing.T) {
	_, advert, owner := setup(t)

	chosen := &model.Snippet{ID: 1, ContentType: "tests.advert", Fields: map[string]string{
		"text": "test_advert",
		"url":  "http://www.example.com",
	}}
	form := forms.FromSnippet(owner, &model.Snippet{Fields: map[string]string{"advert": "1"}})

	bound := NewSnippetChooserPanel("advert", advert).Bind(form, map[string]*model.Snippet{"advert": chosen})

	t.Run("render as field", func(t *testing.T) {
		html := string(bound.RenderAsField())
		assert.Contains(t, html, "test_advert")

		doc := parse(t, html)
		input := doc.Find("input#id_advert")
		require.Equal(t, 1, input.Length())
		assert.Equal(t, "hidden", input.AttrOr("type", ""))
		assert.Equal(t, "1", input.AttrOr("value", ""))
		assert.Equal(t, "/admin/snippets/tests/advert/1/", doc.Find("a.edit-link").AttrOr("href", ""))
		assert.Equal(t, "/admin/snippets/choose/tests/advert/", doc.Find(".chooser").AttrOr("data-chooser-url", ""))
		assert.False(t, doc.Find(".chooser").HasClass("blank"))
	})

	t.Run("render js", func(t *testing.T) {
		assert.Equal(t,
			"createSnippetChooser(fixPrefix('id_advert'), 'tests/advert');",
			string(bound.RenderJS()))
	})
}

func TestSnippetChooserPanel_NothingChosen(t *testing.T) {
	_, advert, owner := setup(t)

	bound := NewSnippetChooserPanel("advert", advert).Bind(forms.New(owner), nil)
	doc := parse(t, string(bound.RenderAsField()))

	assert.True(t, doc.Find(".chooser").HasClass("blank"))
	assert.Empty(t, doc.Find("span.title").Text())
	assert.Equal(t, "", doc.Find("input#id_advert").AttrOr("value", "x"))
	// Required references can't be cleared.
	assert.Equal(t, 0, doc.Find(".action-clear").Length())
}

func TestSnippetChooserPanel_EscapesTitle(t *testing.T) {
	_, advert, owner := setup(t)

	chosen := &model.Snippet{ID: 2, Fields: map[string]string{"text": "<script>alert(1)</script>"}}
	bound := NewSnippetChooserPanel("advert", advert).Bind(forms.New(owner), map[string]*model.Snippet{"advert": chosen})

	html := string(bound.RenderAsField())
	assert.NotContains(t, html, "<script>")
	assert.Equal(t, "<script>alert(1)</script>", parse(t, html).Find("span.title").Text())
}

func TestFieldPanel(t *testing.T) {
	_, advert, _ := setup(t)

	form := forms.Bind(advert, url.Values{"text": {""}, "url": {"http://example.com"}})
	require.False(t, form.Validate())

	handler, err := NewEditHandler(advert, registry.Default())
	require.NoError(t, err)
	bound := handler.Bind(form, nil)
	require.Len(t, bound, 2)

	text := parse(t, string(bound[0].RenderAsField()))
	assert.Equal(t, "text", text.Find("input#id_text").AttrOr("type", ""))
	assert.Equal(t, "255", text.Find("input#id_text").AttrOr("maxlength", ""))
	assert.Equal(t, forms.MsgRequired, text.Find(".error-message").Text())
	assert.True(t, text.Find("li").HasClass("error"))

	link := parse(t, string(bound[1].RenderAsField()))
	assert.Equal(t, "url", link.Find("input#id_url").AttrOr("type", ""))
	assert.Equal(t, "http://example.com", link.Find("input#id_url").AttrOr("value", ""))
	assert.Empty(t, string(bound[1].RenderJS()))
}

func TestFieldPanel_Textarea(t *testing.T) {
	types := registry.New()
	require.NoError(t, types.Register(registry.Type{
		AppLabel:  "blog",
		ModelName: "note",
		Fields:    []registry.Field{{Name: "body", Kind: registry.KindTextarea, HelpText: "Markdown allowed"}},
	}))
	note, err := types.Lookup("blog", "note")
	require.NoError(t, err)

	form := forms.FromSnippet(note, &model.Snippet{Fields: map[string]string{"body": "hello"}})
	doc := parse(t, string(NewFieldPanel("body").Bind(form, nil).RenderAsField()))

	assert.Equal(t, "hello", doc.Find("textarea#id_body").Text())
	assert.Equal(t, "Markdown allowed", doc.Find("p.help").Text())
}

func TestNewEditHandler(t *testing.T) {
	types, _, owner := setup(t)

	h, err := NewEditHandler(owner, types)
	require.NoError(t, err)
	require.Len(t, h.Panels, 2)

	assert.IsType(t, &FieldPanel{}, h.Panels[0])
	chooser, ok := h.Panels[1].(*SnippetChooserPanel)
	require.True(t, ok)
	assert.Equal(t, "advert", chooser.FieldName())
	assert.Equal(t, "tests.advert", chooser.Target.Label())
}

func TestNewEditHandler_UnknownTarget(t *testing.T) {
	_, _, owner := setup(t)

	// The registry passed in doesn't know the owner's reference target.
	_, err := NewEditHandler(owner, registry.New())
	assert.Error(t, err)
}

func TestBind_UnknownFieldRendersEmpty(t *testing.T) {
	_, advert, _ := setup(t)

	doc := parse(t, string(NewFieldPanel("missing").Bind(forms.New(advert), nil).RenderAsField()))
	assert.Equal(t, 1, doc.Find("input#id_missing").Length())
}
