package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

type userRepoMock struct {
	users       map[string]*domain.User
	roles       map[int64][]domain.Role
	assignments map[int64][]int64
	nextID      int64
}

func newUserRepoMock() *userRepoMock {
	return &userRepoMock{
		users:       map[string]*domain.User{},
		roles:       map[int64][]domain.Role{},
		assignments: map[int64][]int64{},
		nextID:      1,
	}
}

func (m *userRepoMock) add(user domain.User, roles ...domain.Role) {
	u := user
	m.users[user.Username] = &u
	m.roles[user.ID] = roles
	ids := make([]int64, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	m.assignments[user.ID] = ids
	if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
}

func (m *userRepoMock) Create(_ context.Context, user domain.User, roleIDs []int64) (int64, error) {
	if _, ok := m.users[user.Username]; ok {
		return 0, repository.ErrConflict
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = &user
	m.assignments[user.ID] = roleIDs
	return user.ID, nil
}

func (m *userRepoMock) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *userRepoMock) GetWithRoles(ctx context.Context, id int64) (*domain.User, []domain.Role, error) {
	user, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return user, m.roles[id], nil
}

func (m *userRepoMock) RoleIDs(_ context.Context, userID int64) ([]int64, error) {
	return m.assignments[userID], nil
}

func (m *userRepoMock) Update(_ context.Context, user domain.User, roleIDs []int64) error {
	stored, ok := m.users[user.Username]
	if !ok {
		return repository.ErrNotFound
	}
	stored.NickName = user.NickName
	stored.Email = user.Email
	stored.Phone = user.Phone
	stored.HeadPic = user.HeadPic
	m.assignments[user.ID] = roleIDs
	return nil
}

func (m *userRepoMock) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	for _, user := range m.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *userRepoMock) SetFrozen(_ context.Context, id int64, frozen bool) error {
	for _, user := range m.users {
		if user.ID == id {
			user.IsFrozen = frozen
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *userRepoMock) Delete(_ context.Context, id int64) error {
	deleted, err := m.DeleteMany(nil, []int64{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (m *userRepoMock) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	var deleted int64
	for _, id := range ids {
		for username, user := range m.users {
			if user.ID == id {
				delete(m.users, username)
				delete(m.assignments, id)
				deleted++
				break
			}
		}
	}
	return deleted, nil
}

func (m *userRepoMock) List(_ context.Context, _ port.UserFilter) ([]domain.User, int64, error) {
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		if user.IsSuperAdmin {
			continue
		}
		users = append(users, *user)
	}
	return users, int64(len(users)), nil
}

type publisherMock struct {
	events []domain.AuditEvent
}

func (m *publisherMock) PublishAudit(_ context.Context, event domain.AuditEvent) error {
	m.events = append(m.events, event)
	return nil
}

func newTestTokenIssuer(t *testing.T) *security.TokenIssuer {
	t.Helper()

	issuer, err := security.NewTokenIssuer(config.JWTSettings{
		Secret:          "auth-test-secret-at-least-32-bytes!!",
		Issuer:          "admin-service-test",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func seedUser(t *testing.T, repo *userRepoMock, username, password string, frozen bool, roles ...domain.Role) domain.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	user := domain.User{
		ID:           int64(len(repo.users) + 1),
		Username:     username,
		PasswordHash: hash,
		IsFrozen:     frozen,
	}
	repo.add(user, roles...)
	return user
}

func TestLoginSuccess(t *testing.T) {
	repo := newUserRepoMock()
	events := &publisherMock{}
	issuer := newTestTokenIssuer(t)
	svc := NewAuthService(repo, issuer, events, zaptest.NewLogger(t))

	role := domain.Role{
		ID:                 1,
		Name:               "Operator",
		Code:               "operator",
		ApiPermissions:     []string{"system:user:read"},
		MenuPermissions:    []string{"system"},
		FeaturePermissions: []string{"system:user:freeze"},
	}
	seedUser(t, repo, "alice", "Str0ng!Passw0rd", false, role)

	result, err := svc.Login(context.Background(), "alice", "Str0ng!Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if result.User.Username != "alice" {
		t.Fatalf("user = %q, want alice", result.User.Username)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("token pair incomplete: %+v", result.Tokens)
	}
	if result.Tokens.ExpiresIn != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("expiresIn = %d", result.Tokens.ExpiresIn)
	}

	claims, err := issuer.Verify(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("Verify access token: %v", err)
	}
	if len(claims.ApiPermissions) != 1 || claims.ApiPermissions[0] != "system:user:read" {
		t.Fatalf("access token permissions = %v", claims.ApiPermissions)
	}

	refreshClaims, err := issuer.Verify(result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Verify refresh token: %v", err)
	}
	if refreshClaims.TokenType != security.TokenTypeRefresh {
		t.Fatalf("refresh token type = %q", refreshClaims.TokenType)
	}
	if len(refreshClaims.ApiPermissions) != 0 {
		t.Fatalf("refresh token carries permissions: %v", refreshClaims.ApiPermissions)
	}

	if len(events.events) != 1 || events.events[0].Action != "login" {
		t.Fatalf("audit events = %+v", events.events)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	repo := newUserRepoMock()
	svc := NewAuthService(repo, newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))

	if _, err := svc.Login(context.Background(), "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newUserRepoMock()
	svc := NewAuthService(repo, newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))
	seedUser(t, repo, "alice", "Str0ng!Passw0rd", false)

	if _, err := svc.Login(context.Background(), "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginEmptyInput(t *testing.T) {
	svc := NewAuthService(newUserRepoMock(), newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))

	if _, err := svc.Login(context.Background(), "  ", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginFrozenAccount(t *testing.T) {
	repo := newUserRepoMock()
	svc := NewAuthService(repo, newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))
	seedUser(t, repo, "alice", "Str0ng!Passw0rd", true)

	if _, err := svc.Login(context.Background(), "alice", "Str0ng!Passw0rd"); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestRefreshIssuesFreshPair(t *testing.T) {
	repo := newUserRepoMock()
	issuer := newTestTokenIssuer(t)
	svc := NewAuthService(repo, issuer, &publisherMock{}, zaptest.NewLogger(t))

	role := domain.Role{ID: 1, Name: "Operator", Code: "operator", ApiPermissions: []string{"system:user:read"}}
	seedUser(t, repo, "alice", "Str0ng!Passw0rd", false, role)

	login, err := svc.Login(context.Background(), "alice", "Str0ng!Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	claims, err := issuer.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify new access token: %v", err)
	}
	if claims.TokenType != security.TokenTypeAccess {
		t.Fatalf("token type = %q", claims.TokenType)
	}
	if len(claims.ApiPermissions) != 1 || claims.ApiPermissions[0] != "system:user:read" {
		t.Fatalf("refreshed permissions = %v", claims.ApiPermissions)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	repo := newUserRepoMock()
	svc := NewAuthService(repo, newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))
	seedUser(t, repo, "alice", "Str0ng!Passw0rd", false)

	login, err := svc.Login(context.Background(), "alice", "Str0ng!Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), login.Tokens.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newUserRepoMock(), newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))

	if _, err := svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshFrozenAccount(t *testing.T) {
	repo := newUserRepoMock()
	svc := NewAuthService(repo, newTestTokenIssuer(t), &publisherMock{}, zaptest.NewLogger(t))
	seedUser(t, repo, "alice", "Str0ng!Passw0rd", false)

	login, err := svc.Login(context.Background(), "alice", "Str0ng!Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	repo.users["alice"].IsFrozen = true

	if _, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}
