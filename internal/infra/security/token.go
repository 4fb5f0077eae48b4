package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
)

// TokenType restricts a claim to access- or refresh-use.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrTokenInvalid indicates the token is malformed or its signature does
	// not verify.
	ErrTokenInvalid = errors.New("token: invalid")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token: expired")
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the verified payload of a signed token. The JSON field names are
// a wire contract with the frontend and the refresh flow.
type Claims struct {
	UserID             int64     `json:"id"`
	Username           string    `json:"username"`
	IsSuperAdmin       bool      `json:"isSuperAdmin"`
	MenuPermissions    []string  `json:"menuPermissions,omitempty"`
	FeaturePermissions []string  `json:"featurePermissions,omitempty"`
	ApiPermissions     []string  `json:"apiPermissions,omitempty"`
	TokenType          TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

// PermissionSet flattens the claim's permission arrays.
func (c *Claims) PermissionSet() domain.PermissionSet {
	return domain.PermissionSet{
		Menu:    c.MenuPermissions,
		Feature: c.FeaturePermissions,
		Api:     c.ApiPermissions,
	}
}

// TokenIssuer signs and verifies HMAC-SHA256 tokens. Purely CPU-bound; safe
// for concurrent use.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer from JWT settings.
func NewTokenIssuer(cfg config.JWTSettings) (*TokenIssuer, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("token: signing secret is required")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     strings.TrimSpace(cfg.Issuer),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the issuer clock for deterministic tests.
func (i *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	if clock != nil {
		i.now = clock
	}
	return i
}

// AccessTokenTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.accessTTL
}

// IssueAccessToken signs an access-typed token carrying the full permission
// claim set.
func (i *TokenIssuer) IssueAccessToken(claims Claims) (string, error) {
	return i.issue(claims, TokenTypeAccess, i.accessTTL)
}

// IssueRefreshToken signs a refresh-typed token.
func (i *TokenIssuer) IssueRefreshToken(claims Claims) (string, error) {
	return i.issue(claims, TokenTypeRefresh, i.refreshTTL)
}

func (i *TokenIssuer) issue(claims Claims, tokenType TokenType, ttl time.Duration) (string, error) {
	if claims.UserID <= 0 {
		return "", fmt.Errorf("token: user id is required")
	}

	now := i.now()
	claims.TokenType = tokenType
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   fmt.Sprintf("%d", claims.UserID),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a signed token. Expired tokens yield
// ErrTokenExpired; every other failure yields ErrTokenInvalid. Callers
// surface both as a single unauthorized condition.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
