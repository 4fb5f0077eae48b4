package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

type apiRepoMock struct {
	apis   map[int64]*domain.Api
	nextID int64
}

func newApiRepoMock() *apiRepoMock {
	return &apiRepoMock{apis: map[int64]*domain.Api{}, nextID: 1}
}

func (m *apiRepoMock) add(api domain.Api) int64 {
	id := m.nextID
	m.nextID++
	api.ID = id
	m.apis[id] = &api
	return id
}

func (m *apiRepoMock) Create(_ context.Context, api domain.Api) (int64, error) {
	return m.add(api), nil
}

func (m *apiRepoMock) GetByID(_ context.Context, id int64) (*domain.Api, error) {
	api, ok := m.apis[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *api
	return &copied, nil
}

func (m *apiRepoMock) Update(_ context.Context, api domain.Api) error {
	if _, ok := m.apis[api.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := api
	m.apis[api.ID] = &copied
	return nil
}

func (m *apiRepoMock) Delete(_ context.Context, id int64) error {
	if _, ok := m.apis[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.apis, id)
	return nil
}

func (m *apiRepoMock) List(_ context.Context) ([]domain.Api, error) {
	apis := make([]domain.Api, 0, len(m.apis))
	for _, api := range m.apis {
		apis = append(apis, *api)
	}
	sort.Slice(apis, func(i, j int) bool {
		if apis[i].Sort != apis[j].Sort {
			return apis[i].Sort < apis[j].Sort
		}
		return apis[i].ID < apis[j].ID
	})
	return apis, nil
}

func newApiService(t *testing.T, repo *apiRepoMock) *ApiService {
	t.Helper()
	return NewApiService(repo, &publisherMock{}, zaptest.NewLogger(t))
}

func TestApiCreateLeafRequiresCode(t *testing.T) {
	svc := newApiService(t, newApiRepoMock())

	_, err := svc.Create(context.Background(), 1, ApiInput{
		Type:  domain.ApiTypeApi,
		Title: "List users",
	})
	if err == nil {
		t.Fatal("expected validation error for code-less leaf")
	}
}

func TestApiCreateRejectsLeafParent(t *testing.T) {
	repo := newApiRepoMock()
	leafID := repo.add(domain.Api{Type: domain.ApiTypeApi, Title: "List users", Code: codePtr("system:user:read"), Sort: 1})
	svc := newApiService(t, repo)

	_, err := svc.Create(context.Background(), 1, ApiInput{
		Type:     domain.ApiTypeApi,
		Title:    "Nested",
		Code:     codePtr("system:user:nested"),
		ParentID: &leafID,
	})
	if !errors.Is(err, ErrApiParentInvalid) {
		t.Fatalf("err = %v, want ErrApiParentInvalid", err)
	}
}

func TestApiDeleteRejectsParent(t *testing.T) {
	repo := newApiRepoMock()
	dirID := repo.add(domain.Api{Type: domain.ApiTypeDirectory, Title: "User", Sort: 1})
	repo.add(domain.Api{Type: domain.ApiTypeApi, Title: "List users", Code: codePtr("system:user:read"), ParentID: &dirID, Sort: 1})
	svc := newApiService(t, repo)

	if err := svc.Delete(context.Background(), 1, dirID); !errors.Is(err, ErrApiHasChildren) {
		t.Fatalf("err = %v, want ErrApiHasChildren", err)
	}
}

func TestApiPermissionsListsCodedLeaves(t *testing.T) {
	repo := newApiRepoMock()
	dirID := repo.add(domain.Api{Type: domain.ApiTypeDirectory, Title: "User", Sort: 1})
	repo.add(domain.Api{Type: domain.ApiTypeApi, Title: "List users", Code: codePtr("system:user:read"), ParentID: &dirID, Sort: 1})
	repo.add(domain.Api{Type: domain.ApiTypeApi, Title: "Create user", Code: codePtr("system:user:create"), ParentID: &dirID, Sort: 2})
	repo.add(domain.Api{Type: domain.ApiTypeApi, Title: "Legacy", Code: codePtr(""), ParentID: &dirID, Sort: 3})
	repo.add(domain.Api{Type: domain.ApiTypeApi, Title: "Untagged", ParentID: &dirID, Sort: 4})
	svc := newApiService(t, repo)

	apis, err := svc.Permissions(context.Background())
	if err != nil {
		t.Fatalf("Permissions: %v", err)
	}

	want := []string{"system:user:read", "system:user:create"}
	if len(apis) != len(want) {
		t.Fatalf("got %d records, want %d", len(apis), len(want))
	}
	for i, code := range want {
		if apis[i].Code == nil || *apis[i].Code != code {
			t.Fatalf("record %d code = %v, want %q", i, apis[i].Code, code)
		}
	}
}
