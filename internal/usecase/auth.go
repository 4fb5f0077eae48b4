package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountFrozen indicates the account is frozen and may not authenticate.
	ErrAccountFrozen = errors.New("account is frozen")
	// ErrInvalidRefreshToken indicates the provided refresh token is malformed,
	// expired, or not a refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// TokenPair carries a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// LoginResult bundles the authenticated user with its effective permissions
// and issued tokens.
type LoginResult struct {
	User        domain.User
	Permissions domain.PermissionSet
	Tokens      TokenPair
}

// AuthService authenticates users and mints token pairs.
type AuthService struct {
	users  port.UserRepository
	tokens *security.TokenIssuer
	events port.EventPublisher
	logger *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(users port.UserRepository, tokens *security.TokenIssuer, events port.EventPublisher, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, events: events, logger: logger}
}

// Login verifies credentials and issues a token pair carrying the user's
// effective permissions. Unknown usernames and wrong passwords collapse to
// the same error so callers cannot probe for accounts.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var result LoginResult

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return result, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, ErrInvalidCredentials
		}
		return result, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return result, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return result, ErrInvalidCredentials
	}

	if !user.CanLogin() {
		return result, ErrAccountFrozen
	}

	_, roles, err := s.users.GetWithRoles(ctx, user.ID)
	if err != nil {
		return result, fmt.Errorf("load user roles: %w", err)
	}

	permissions := PermissionsFor(*user, roles)

	tokens, err := s.issuePair(*user, permissions)
	if err != nil {
		return result, err
	}

	if err := s.events.PublishAudit(ctx, domain.AuditEvent{
		Action:   "login",
		Resource: "auth",
		ActorID:  user.ID,
		At:       time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("publish login audit event failed", zap.Error(err))
	}

	result.User = *user
	result.Permissions = permissions
	result.Tokens = tokens
	return result, nil
}

// Refresh validates a refresh token and mints a fresh pair from current user
// state, so role or freeze changes take effect at rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return pair, ErrInvalidRefreshToken
	}
	if claims.TokenType != security.TokenTypeRefresh {
		return pair, ErrInvalidRefreshToken
	}

	user, roles, err := s.users.GetWithRoles(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pair, ErrInvalidRefreshToken
		}
		return pair, fmt.Errorf("load user: %w", err)
	}

	if !user.CanLogin() {
		return pair, ErrAccountFrozen
	}

	return s.issuePair(*user, PermissionsFor(*user, roles))
}

func (s *AuthService) issuePair(user domain.User, permissions domain.PermissionSet) (TokenPair, error) {
	var pair TokenPair

	claims := security.Claims{
		UserID:             user.ID,
		Username:           user.Username,
		IsSuperAdmin:       user.IsSuperAdmin,
		MenuPermissions:    permissions.Menu,
		FeaturePermissions: permissions.Feature,
		ApiPermissions:     permissions.Api,
	}

	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return pair, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.tokens.IssueRefreshToken(security.Claims{
		UserID:       user.ID,
		Username:     user.Username,
		IsSuperAdmin: user.IsSuperAdmin,
	})
	if err != nil {
		return pair, fmt.Errorf("issue refresh token: %w", err)
	}

	pair.AccessToken = access
	pair.RefreshToken = refresh
	pair.ExpiresIn = int64(s.tokens.AccessTokenTTL().Seconds())
	return pair, nil
}
