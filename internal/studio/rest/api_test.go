package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/middleware"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/Theadedamola/snapcode-backend/internal/store"
	"github.com/Theadedamola/snapcode-backend/internal/studio/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectsMock struct {
	list   func(ctx context.Context, userID string) ([]store.Project, error)
	create func(ctx context.Context, r service.CreateProjectRequest) (store.Project, error)
	get    func(ctx context.Context, userID, id string) (store.Project, error)
	update func(ctx context.Context, r service.UpdateProjectRequest) (store.Project, error)
	delete func(ctx context.Context, userID, id string) error
}

func (m *projectsMock) List(ctx context.Context, userID string) ([]store.Project, error) {
	return m.list(ctx, userID)
}

func (m *projectsMock) Create(ctx context.Context, r service.CreateProjectRequest) (store.Project, error) {
	return m.create(ctx, r)
}

func (m *projectsMock) Get(ctx context.Context, userID, id string) (store.Project, error) {
	return m.get(ctx, userID, id)
}

func (m *projectsMock) Update(ctx context.Context, r service.UpdateProjectRequest) (store.Project, error) {
	return m.update(ctx, r)
}

func (m *projectsMock) Delete(ctx context.Context, userID, id string) error {
	return m.delete(ctx, userID, id)
}

type snippetsMock struct {
	create func(ctx context.Context, r service.CreateSnippetRequest) (store.Snippet, error)
	list   func(ctx context.Context, userID, projectID string) ([]store.Snippet, error)
	get    func(ctx context.Context, userID, id string) (store.Snippet, error)
	update func(ctx context.Context, r service.UpdateSnippetRequest) (store.Snippet, error)
	delete func(ctx context.Context, userID, id string) error
}

func (m *snippetsMock) Create(ctx context.Context, r service.CreateSnippetRequest) (store.Snippet, error) {
	return m.create(ctx, r)
}

func (m *snippetsMock) List(ctx context.Context, userID, projectID string) ([]store.Snippet, error) {
	return m.list(ctx, userID, projectID)
}

func (m *snippetsMock) Get(ctx context.Context, userID, id string) (store.Snippet, error) {
	return m.get(ctx, userID, id)
}

func (m *snippetsMock) Update(ctx context.Context, r service.UpdateSnippetRequest) (store.Snippet, error) {
	return m.update(ctx, r)
}

func (m *snippetsMock) Delete(ctx context.Context, userID, id string) error {
	return m.delete(ctx, userID, id)
}

type exportsMock struct {
	render func(ctx context.Context, r service.RenderRequest) (service.RenderResponse, error)
	get    func(ctx context.Context, userID, id string) (store.Export, io.ReadCloser, error)
	list   func(ctx context.Context, userID string) ([]store.Export, error)
}

func (m *exportsMock) Render(ctx context.Context, r service.RenderRequest) (service.RenderResponse, error) {
	return m.render(ctx, r)
}

func (m *exportsMock) Get(ctx context.Context, userID, id string) (store.Export, io.ReadCloser, error) {
	return m.get(ctx, userID, id)
}

func (m *exportsMock) List(ctx context.Context, userID string) ([]store.Export, error) {
	return m.list(ctx, userID)
}

// do runs a request through the API as the given user.
func do(api *API, method, target, body, userID string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, rd)
	req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{ID: userID}))

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func TestListProjects(t *testing.T) {
	api := NewAPI(&projectsMock{
		list: func(ctx context.Context, userID string) ([]store.Project, error) {
			assert.Equal(t, "user-1", userID)
			return []store.Project{
				{ID: "p-1", UserID: userID, Name: "First", Frames: json.RawMessage(`[]`)},
			}, nil
		},
	}, nil, nil)

	rec := do(api, "GET", "/projects", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var out []projectJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "First", out[0].Name)
}

func TestCreateProject(t *testing.T) {
	api := NewAPI(&projectsMock{
		create: func(ctx context.Context, r service.CreateProjectRequest) (store.Project, error) {
			assert.Equal(t, "user-1", r.UserID)
			assert.Equal(t, "New Project", r.Name)
			return store.Project{ID: "p-1", UserID: r.UserID, Name: r.Name, Frames: json.RawMessage(`[]`)}, nil
		},
	}, nil, nil)

	rec := do(api, "POST", "/projects", `{"name":"New Project","frames":[]}`, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code)

	var out projectJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "p-1", out.ID)
}

func TestGetProject_NotFound(t *testing.T) {
	api := NewAPI(&projectsMock{
		get: func(ctx context.Context, userID, id string) (store.Project, error) {
			return store.Project{}, serr.NewServiceError(nil, http.StatusNotFound, "Project not found")
		},
	}, nil, nil)

	rec := do(api, "GET", "/projects/p-404", "", "user-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Project not found")
}

func TestDeleteProject(t *testing.T) {
	api := NewAPI(&projectsMock{
		delete: func(ctx context.Context, userID, id string) error {
			assert.Equal(t, "p-1", id)
			return nil
		},
	}, nil, nil)

	rec := do(api, "DELETE", "/projects/p-1", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestCreateSnippet(t *testing.T) {
	api := NewAPI(nil, &snippetsMock{
		create: func(ctx context.Context, r service.CreateSnippetRequest) (store.Snippet, error) {
			assert.Equal(t, "user-1", r.UserID)
			assert.Equal(t, "p-1", r.ProjectID)
			return store.Snippet{
				ID: "s-1", UserID: r.UserID, ProjectID: r.ProjectID, Title: r.Title,
				Position: r.Position, Size: r.Size, Style: r.Style,
			}, nil
		},
	}, nil)

	body := `{
		"projectId":"p-1","title":"Hello","code":"x","language":"go",
		"position":{"x":0},"size":{"w":1},"style":{"theme":"dark"}
	}`
	rec := do(api, "POST", "/snippets", body, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"s-1"`)
}

func TestListSnippets(t *testing.T) {
	api := NewAPI(nil, &snippetsMock{
		list: func(ctx context.Context, userID, projectID string) ([]store.Snippet, error) {
			assert.Equal(t, "p-1", projectID)
			return []store.Snippet{{ID: "s-2"}, {ID: "s-1"}}, nil
		},
	}, nil)

	rec := do(api, "GET", "/snippets?projectId=p-1", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var out listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Count)
}

func TestGetSnippet_ForeignLooksMissing(t *testing.T) {
	api := NewAPI(nil, &snippetsMock{
		get: func(ctx context.Context, userID, id string) (store.Snippet, error) {
			return store.Snippet{}, serr.NewServiceError(nil, http.StatusNotFound, "Snippet not found")
		},
	}, nil)

	rec := do(api, "GET", "/snippets/s-1", "", "user-b")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Snippet not found")
}

func TestDeleteSnippet(t *testing.T) {
	api := NewAPI(nil, &snippetsMock{
		delete: func(ctx context.Context, userID, id string) error {
			return nil
		},
	}, nil)

	rec := do(api, "DELETE", "/snippets/s-1", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{}}`, rec.Body.String())
}

func TestRenderExport_New(t *testing.T) {
	api := NewAPI(nil, nil, &exportsMock{
		render: func(ctx context.Context, r service.RenderRequest) (service.RenderResponse, error) {
			assert.Equal(t, "<div/>", r.HTML)
			return service.RenderResponse{Export: store.Export{ID: "e-1"}}, nil
		},
	})

	rec := do(api, "POST", "/export/png", `{"html":"<div/>"}`, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/api/export/png/e-1"`)
}

func TestRenderExport_Reused(t *testing.T) {
	api := NewAPI(nil, nil, &exportsMock{
		render: func(ctx context.Context, r service.RenderRequest) (service.RenderResponse, error) {
			return service.RenderResponse{Export: store.Export{ID: "e-old"}, Reused: true}, nil
		},
	})

	rec := do(api, "POST", "/export/png", `{"html":"<div/>","snippetId":"s-1"}`, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"e-old"`)
}

func TestGetExport_StreamsPNG(t *testing.T) {
	api := NewAPI(nil, nil, &exportsMock{
		get: func(ctx context.Context, userID, id string) (store.Export, io.ReadCloser, error) {
			return store.Export{ID: id, UserID: userID},
				io.NopCloser(bytes.NewReader([]byte("png-bytes"))), nil
		},
	})

	rec := do(api, "GET", "/export/png/e-1", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="export-e-1.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestListExports(t *testing.T) {
	api := NewAPI(nil, nil, &exportsMock{
		list: func(ctx context.Context, userID string) ([]store.Export, error) {
			return []store.Export{{ID: "e-1", Format: "png", SnippetID: "s-1"}}, nil
		},
	})

	rec := do(api, "GET", "/export", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var out listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Contains(t, rec.Body.String(), `"/api/export/png/e-1"`)
}
