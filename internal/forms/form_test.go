package forms

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
)

func advertType(t *testing.T) *registry.Type {
	t.Helper()
	advert, err := registry.Default().ByLabel("tests.advert")
	require.NoError(t, err)
	return advert
}

func TestBind_Valid(t *testing.T) {
	form := Bind(advertType(t), url.Values{
		"text": {"  test_advert  "},
		"url":  {"http://www.example.com/"},
	})

	require.True(t, form.Validate())
	assert.Equal(t, map[string]string{
		"text": "test_advert",
		"url":  "http://www.example.com/",
	}, form.Cleaned())
}

func TestBind_MissingRequiredFields(t *testing.T) {
	form := Bind(advertType(t), url.Values{"foo": {"bar"}})

	assert.False(t, form.Validate())
	assert.Equal(t, []string{MsgRequired}, form.Field("text").Errors)
	assert.Equal(t, []string{MsgRequired}, form.Field("url").Errors)
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		field   string
		wantMsg string
	}{
		{
			name:    "whitespace only text is missing",
			values:  url.Values{"text": {"   "}, "url": {"http://example.com/"}},
			field:   "text",
			wantMsg: MsgRequired,
		},
		{
			name:    "url without scheme",
			values:  url.Values{"text": {"a"}, "url": {"www.example.com"}},
			field:   "url",
			wantMsg: MsgInvalidURL,
		},
		{
			name:    "non http scheme",
			values:  url.Values{"text": {"a"}, "url": {"ftp://example.com/file"}},
			field:   "url",
			wantMsg: MsgInvalidURL,
		},
		{
			name:    "text too long",
			values:  url.Values{"text": {strings.Repeat("x", 256)}, "url": {"http://example.com/"}},
			field:   "text",
			wantMsg: "Ensure this value has at most 255 characters (it has 256).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := Bind(advertType(t), tt.values)
			assert.False(t, form.Validate())
			assert.Equal(t, []string{tt.wantMsg}, form.Field(tt.field).Errors)
		})
	}
}

func TestUnboundForm_IsNotValid(t *testing.T) {
	form := New(advertType(t))
	assert.False(t, form.IsBound())
	assert.False(t, form.Valid())
	assert.Empty(t, form.Field("text").Value)
}

func TestFromSnippet_PrefillsValues(t *testing.T) {
	s := &model.Snippet{ID: 1, Fields: map[string]string{"text": "test_advert", "url": "http://www.example.com/"}}
	form := FromSnippet(advertType(t), s)

	assert.Equal(t, "test_advert", form.Field("text").Value)
	assert.Equal(t, "id_url", form.Field("url").ID())
	assert.False(t, form.IsBound())
}

func TestAddError_And_Errors(t *testing.T) {
	form := Bind(advertType(t), url.Values{"text": {"a"}, "url": {"http://example.com/"}})
	require.True(t, form.Validate())

	form.AddError("text", "taken")
	form.AddError("nope", "ignored")

	assert.False(t, form.Valid())
	assert.Equal(t, map[string][]string{"text": {"taken"}}, form.Errors())
}

func TestSnippetReferenceField(t *testing.T) {
	r := registry.Default()
	require.NoError(t, r.Register(registry.Type{
		AppLabel:  "promo",
		ModelName: "placement",
		Fields: []registry.Field{
			{Name: "slot", Required: true},
			{Name: "advert", Kind: registry.KindSnippet, Target: "tests.advert", Required: true},
		},
	}))
	placement, err := r.ByLabel("promo.placement")
	require.NoError(t, err)

	form := Bind(placement, url.Values{"slot": {"sidebar"}, "advert": {"abc"}})
	assert.False(t, form.Validate())
	assert.Equal(t, []string{MsgInvalidChoice}, form.Field("advert").Errors)
	_, ok, err := form.Field("advert").ReferenceID()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidReference)

	// Digits pass the field rules but overflow int64.
	form = Bind(placement, url.Values{"slot": {"sidebar"}, "advert": {"99999999999999999999"}})
	require.True(t, form.Validate())
	_, ok, err = form.Field("advert").ReferenceID()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidReference)

	form = Bind(placement, url.Values{"slot": {"sidebar"}})
	_, ok, err = form.Field("slot").ReferenceID()
	assert.False(t, ok)
	assert.NoError(t, err)

	form = Bind(placement, url.Values{"slot": {"sidebar"}, "advert": {"12"}})
	require.True(t, form.Validate())
	id, ok, err := form.Field("advert").ReferenceID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}
