package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
)

type verifierStub struct {
	claims *security.Claims
	err    error
}

func (v *verifierStub) Verify(string) (*security.Claims, error) {
	return v.claims, v.err
}

func authRequest(t *testing.T, verifier TokenVerifier, auth RouteAuth, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	engine := gin.New()

	handled := false
	engine.GET("/resource", Authorize(verifier, auth), func(c *gin.Context) {
		handled = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	return rec, handled
}

func TestAuthorizePublicSkipsVerification(t *testing.T) {
	verifier := &verifierStub{err: errors.New("must not be called")}

	rec, handled := authRequest(t, verifier, RouteAuth{Public: true}, "")
	if !handled || rec.Code != http.StatusOK {
		t.Fatalf("public route blocked: code=%d handled=%v", rec.Code, handled)
	}
}

func TestAuthorizeMissingHeader(t *testing.T) {
	verifier := &verifierStub{claims: &security.Claims{UserID: 1}}

	for _, header := range []string{"", "Token abc", "Bearer"} {
		rec, handled := authRequest(t, verifier, RouteAuth{}, header)
		if handled || rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: code=%d handled=%v, want 401", header, rec.Code, handled)
		}
	}
}

func TestAuthorizeInvalidToken(t *testing.T) {
	verifier := &verifierStub{err: security.ErrTokenInvalid}

	rec, handled := authRequest(t, verifier, RouteAuth{}, "Bearer bad-token")
	if handled || rec.Code != http.StatusUnauthorized {
		t.Fatalf("code=%d handled=%v, want 401", rec.Code, handled)
	}
}

func TestAuthorizeRejectsWrongTokenType(t *testing.T) {
	verifier := &verifierStub{claims: &security.Claims{
		UserID:    7,
		TokenType: security.TokenTypeRefresh,
	}}

	rec, handled := authRequest(t, verifier, RouteAuth{}, "Bearer refresh-token")
	if handled || rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token on access route: code=%d handled=%v, want 401", rec.Code, handled)
	}
}

func TestAuthorizePermissionDenied(t *testing.T) {
	verifier := &verifierStub{claims: &security.Claims{
		UserID:         3,
		TokenType:      security.TokenTypeAccess,
		ApiPermissions: []string{"system:user:read"},
	}}

	rec, handled := authRequest(t, verifier,
		RouteAuth{Permissions: []string{"system:user:delete"}}, "Bearer token")
	if handled || rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d handled=%v, want 403", rec.Code, handled)
	}
}

func TestAuthorizeAllPermissionsRequired(t *testing.T) {
	verifier := &verifierStub{claims: &security.Claims{
		UserID:         3,
		TokenType:      security.TokenTypeAccess,
		ApiPermissions: []string{"system:user:read", "system:user:update"},
	}}

	rec, handled := authRequest(t, verifier,
		RouteAuth{Permissions: []string{"system:user:read", "system:user:update"}}, "Bearer token")
	if !handled || rec.Code != http.StatusOK {
		t.Fatalf("code=%d handled=%v, want 200", rec.Code, handled)
	}
}

func TestAuthorizeSuperAdminBypass(t *testing.T) {
	verifier := &verifierStub{claims: &security.Claims{
		UserID:       1,
		TokenType:    security.TokenTypeAccess,
		IsSuperAdmin: true,
	}}

	rec, handled := authRequest(t, verifier,
		RouteAuth{Permissions: []string{"system:user:delete"}}, "Bearer token")
	if !handled || rec.Code != http.StatusOK {
		t.Fatalf("super admin blocked: code=%d handled=%v", rec.Code, handled)
	}
}

func TestAuthorizeStoresIdentity(t *testing.T) {
	verifier := &verifierStub{claims: &security.Claims{
		UserID:    42,
		Username:  "alice",
		TokenType: security.TokenTypeAccess,
	}}

	gin.SetMode(gin.TestMode)
	engine := gin.New()

	var gotID int64
	var gotUsername string
	engine.GET("/whoami", Authorize(verifier, RouteAuth{}), func(c *gin.Context) {
		gotID = UserIDFrom(c)
		if claims, ok := ClaimsFrom(c); ok {
			gotUsername = claims.Username
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if gotID != 42 {
		t.Fatalf("user id = %d, want 42", gotID)
	}
	if gotUsername != "alice" {
		t.Fatalf("username = %q, want alice", gotUsername)
	}
}
