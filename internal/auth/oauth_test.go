package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and /user with a fixed profile.
func fakeGitHub(t *testing.T, profile map[string]any, userStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "gho_test",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(userStatus)
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GitHubProvider {
	return NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback").
		WithEndpoints(oauth2.Endpoint{
			AuthURL:  srv.URL + "/login/oauth/authorize",
			TokenURL: srv.URL + "/login/oauth/access_token",
		}, srv.URL+"/user")
}

func TestAuthURL_CarriesStateAndClient(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost/cb")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))
}

func TestExchange_ReturnsProfile(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 583231, "login": "octocat", "email": "octo@example.com"}, http.StatusOK)

	user, err := newTestProvider(srv).Exchange(context.Background(), "code")
	require.NoError(t, err)

	assert.Equal(t, int64(583231), user.ID)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "octo@example.com", user.Email)
}

func TestExchange_RejectsBadProfiles(t *testing.T) {
	t.Run("zero id", func(t *testing.T) {
		srv := fakeGitHub(t, map[string]any{"id": 0, "login": "ghost"}, http.StatusOK)
		_, err := newTestProvider(srv).Exchange(context.Background(), "code")
		assert.Error(t, err)
	})

	t.Run("non-200", func(t *testing.T) {
		srv := fakeGitHub(t, map[string]any{"message": "boom"}, http.StatusInternalServerError)
		_, err := newTestProvider(srv).Exchange(context.Background(), "code")
		assert.Error(t, err)
	})
}
