package auth

import (
	"context"
	"net/http"
	"net/url"
)

// CookieName is the HttpOnly cookie carrying the session JWT.
const CookieName = "token"

// LoginPath is where unauthenticated admin requests are sent.
const LoginPath = "/admin/login/"

// contextKey is unexported so only this package can set or read the user ID.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticator turns a session token into a user ID. AuthService in the
// service package implements it (signature, expiry and revocation checks).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// RequireAdmin guards the admin pages. A request without a valid session
// is redirected to the login page with the original path in "next", the
// way an editor expects a browser admin to behave.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAdmin(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, authn)
			if err != nil {
				http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// LoginURL builds the login page URL that returns to next afterwards.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"next": {next}}.Encode()
}

// WithUserID stores userID in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the session cookie and authenticates it.
func extractUserID(r *http.Request, authn Authenticator) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return authn.Authenticate(r.Context(), cookie.Value)
}
