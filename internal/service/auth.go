package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/auth"
	"github.com/sakif/snippets-admin/internal/metrics"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/repository"
)

// MsgInvalidLogin is shown on the login page for any rejected credentials.
const MsgInvalidLogin = "Please enter a correct username and password."

// githubUsernamePrefix keeps GitHub accounts apart from password accounts
// with the same name.
const githubUsernamePrefix = "github:"

// compile-time check that AuthService can back the admin middleware
var _ auth.Authenticator = (*AuthService)(nil)

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ TokenService (JWT), Revoker (Redis)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoker   auth.Revoker
	allowed   map[string]bool
	logger    *slog.Logger
}

// NewAuthService wires an AuthService. A nil revoker disables revocation.
// allowedLogins lists the GitHub logins let into the admin; with an empty
// list GitHub sign-in is refused for everyone.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoker auth.Revoker,
	allowedLogins []string,
	logger *slog.Logger,
) *AuthService {
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	allowed := make(map[string]bool, len(allowedLogins))
	for _, login := range allowedLogins {
		if login = strings.ToLower(strings.TrimSpace(login)); login != "" {
			allowed[login] = true
		}
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		revoker:   revoker,
		allowed:   allowed,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set
// the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// EnsureAdmin creates the bootstrap account if no user has that username.
// An existing account is left untouched, password included.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: looking up %s: %w", username, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: creating %s: %w", username, err)
	}

	s.logger.Info("bootstrap admin created", slog.String("username", username))
	return nil
}

// Login checks a username and password and issues a session token. Unknown
// users and wrong passwords get the same ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("password", "rejected").Inc()
			return nil, apperror.Unauthorized(MsgInvalidLogin)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", username, err)
	}

	// GitHub-only accounts have no hash and can't sign in with a password.
	if user.PasswordHash == "" {
		metrics.LoginAttempts.WithLabelValues("password", "rejected").Inc()
		return nil, apperror.Unauthorized(MsgInvalidLogin)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		metrics.LoginAttempts.WithLabelValues("password", "rejected").Inc()
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(MsgInvalidLogin)
	}

	return s.issue(user, "password")
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: check the
// allow-list, upsert the account on github_id and issue a token.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	if !s.allowed[strings.ToLower(ghUser.Login)] {
		metrics.LoginAttempts.WithLabelValues("github", "rejected").Inc()
		s.logger.Warn("GitHub login not on allow-list", slog.String("login", ghUser.Login))
		return nil, apperror.Forbidden(fmt.Sprintf("GitHub user %q may not use this admin", ghUser.Login))
	}

	user := &model.User{
		Username: githubUsernamePrefix + ghUser.Login,
		GitHubID: ghUser.ID,
		Email:    ghUser.Email,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	return s.issue(user, "github")
}

// Authenticate implements auth.Authenticator: the token must be valid and
// not revoked. When the revocation store is unreachable the token is
// refused.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}

	revoked, err := s.revoker.IsRevoked(ctx, token)
	if err != nil {
		s.logger.Error("revocation check failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("service/auth: %w", err)
	}
	if revoked {
		return "", apperror.Unauthorized("session has been signed out")
	}

	return userID, nil
}

// Logout revokes token for the rest of its lifetime. Tokens that no longer
// validate need no revocation.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, token, s.tokens.TTL()); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	s.logger.Info("user signed out", slog.String("userID", userID))
	return nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetUserByID(ctx, id)
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	metrics.LoginAttempts.WithLabelValues(method, "accepted").Inc()
	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Token: token}, nil
}
