package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/auth"
	"github.com/sakif/snippets-admin/internal/service"
	"github.com/sakif/snippets-admin/internal/urls"
)

const stateCookie = "oauth_state"

// OAuthProvider is the part of auth.GitHubProvider the handler uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves the sign-in pages and the GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginForm / HandleLogin → username + password sign-in
//   - HandleLogout                  → revoke the token, clear the cookie
//   - HandleGitHubLogin             → redirect to GitHub
//   - HandleGitHubCallback          → exchange the code, issue the cookie
type AuthHandler struct {
	auth     *service.AuthService
	github   OAuthProvider // nil when GitHub sign-in isn't configured
	tokenTTL time.Duration
	render   *Renderer
	logger   *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github OAuthProvider,
	tokenTTL time.Duration,
	render *Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		github:   github,
		tokenTTL: tokenTTL,
		render:   render,
		logger:   logger,
	}
}

type loginPage struct {
	basePage
	Next     string
	Username string
	Error    string
	GitHub   bool
}

// HandleLoginForm shows the sign-in form.
//
// HTTP: GET /admin/login/?next=/admin/snippets/tests/advert/
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, safeNext(r.URL.Query().Get("next")), "", "")
}

// HandleLogin checks the credentials. On success the JWT goes into an
// HttpOnly cookie and the browser returns to "next".
//
// HTTP: POST /admin/login/
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, "", "", service.MsgInvalidLogin)
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	next := safeNext(r.PostForm.Get("next"))

	result, err := h.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.logger.Info("login rejected", slog.String("username", username))
			h.renderLogin(w, r, http.StatusOK, next, username, service.MsgInvalidLogin)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	h.setSession(w, result.Token)
	http.Redirect(w, r, next, http.StatusFound)
}

// HandleLogout revokes the current token and clears the cookie. POST only:
// a GET logout could be triggered by a prefetch or a cross-site link.
//
// HTTP: POST /admin/logout/
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			h.logger.Error("logout: revoking token failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, urls.Login, http.StatusFound)
}

// HandleGitHubLogin redirects to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived cookie and must come back
// unchanged on the callback.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Check the allow-list and upsert the user (AuthService)
//  4. Issue the session cookie and redirect to the admin
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: invalid state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, urls.Login, http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.setSession(w, result.Token)
	http.Redirect(w, r, urls.Index(), http.StatusFound)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, next, username, errMsg string) {
	h.render.Render(w, status, "login", loginPage{
		basePage: basePage{Title: "Sign in"},
		Next:     next,
		Username: username,
		Error:    errMsg,
		GitHub:   h.github != nil,
	})
}

// setSession stores the JWT in an HttpOnly cookie (not readable by
// scripts). Secure should be set when served over HTTPS.
func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext only accepts local absolute paths, so the login form can't be
// used as an open redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return urls.Index()
	}
	return next
}
