package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/Theadedamola/snapcode-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeSnippetRequest(userID string) CreateSnippetRequest {
	return CreateSnippetRequest{
		UserID:    userID,
		ProjectID: "p-1",
		Title:     "Hello",
		Code:      `fmt.Println("hi")`,
		Language:  "go",
		Position:  json.RawMessage(`{"x":0,"y":0}`),
		Size:      json.RawMessage(`{"w":400,"h":300}`),
		Style:     json.RawMessage(`{"theme":"dark"}`),
	}
}

func TestSnippets_Create(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getProjectFunc: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id, UserID: "user-1"}, nil
		},
		createSnippetFunc: func(ctx context.Context, r store.CreateSnippetRequest) (store.Snippet, error) {
			assert.Equal(t, "user-1", r.UserID)
			assert.Equal(t, "p-1", r.ProjectID)
			return store.Snippet{ID: "s-1", UserID: r.UserID, ProjectID: r.ProjectID, Title: r.Title}, nil
		},
	})

	snippet, err := srv.Create(context.Background(), completeSnippetRequest("user-1"))

	require.NoError(t, err)
	assert.Equal(t, "s-1", snippet.ID)
}

func TestSnippets_Create_MissingFields(t *testing.T) {
	srv := NewSnippets(&storeMock{})

	r := completeSnippetRequest("user-1")
	r.Code = ""
	_, err := srv.Create(context.Background(), r)

	var se *serr.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "Please provide all required fields", se.Msg)
}

func TestSnippets_Create_ForeignProject(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getProjectFunc: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id, UserID: "user-2"}, nil
		},
		createSnippetFunc: func(ctx context.Context, r store.CreateSnippetRequest) (store.Snippet, error) {
			t.Fatal("snippet must not land in a foreign project")
			return store.Snippet{}, nil
		},
	})

	_, err := srv.Create(context.Background(), completeSnippetRequest("user-1"))
	requireNotFound(t, err, msgProjectNotFound)
}

func TestSnippets_List_RequiresProjectID(t *testing.T) {
	srv := NewSnippets(&storeMock{})

	_, err := srv.List(context.Background(), "user-1", "")

	var se *serr.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "Project ID is required", se.Msg)
}

func TestSnippets_List_ForeignProject(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getProjectFunc: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id, UserID: "user-2"}, nil
		},
	})

	_, err := srv.List(context.Background(), "user-1", "p-1")
	requireNotFound(t, err, msgProjectNotFound)
}

func TestSnippets_List(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getProjectFunc: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id, UserID: "user-1"}, nil
		},
		listSnippetsFunc: func(ctx context.Context, r store.ListSnippetsRequest) ([]store.Snippet, error) {
			assert.Equal(t, "user-1", r.UserID)
			assert.Equal(t, "p-1", r.ProjectID)
			return []store.Snippet{{ID: "s-2"}, {ID: "s-1"}}, nil
		},
	})

	snippets, err := srv.List(context.Background(), "user-1", "p-1")

	require.NoError(t, err)
	assert.Len(t, snippets, 2)
}

// Caller B asking for caller A's snippet learns nothing beyond "not found".
func TestSnippets_Get_ForeignSnippetLooksMissing(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getSnippetFunc: func(ctx context.Context, id string) (store.Snippet, error) {
			return store.Snippet{ID: id, UserID: "user-a"}, nil
		},
	})

	_, errForeign := srv.Get(context.Background(), "user-b", "s-1")
	requireNotFound(t, errForeign, msgSnippetNotFound)

	srv = NewSnippets(&storeMock{
		getSnippetFunc: func(ctx context.Context, id string) (store.Snippet, error) {
			return store.Snippet{}, store.ErrNotFound
		},
	})

	_, errMissing := srv.Get(context.Background(), "user-b", "s-404")
	requireNotFound(t, errMissing, msgSnippetNotFound)

	var seForeign, seMissing *serr.ServiceError
	require.ErrorAs(t, errForeign, &seForeign)
	require.ErrorAs(t, errMissing, &seMissing)
	assert.Equal(t, seMissing.Msg, seForeign.Msg)
	assert.Equal(t, seMissing.StatusCode, seForeign.StatusCode)
}

func TestSnippets_Get(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getSnippetFunc: func(ctx context.Context, id string) (store.Snippet, error) {
			return store.Snippet{ID: id, UserID: "user-1", Title: "Hello"}, nil
		},
	})

	snippet, err := srv.Get(context.Background(), "user-1", "s-1")

	require.NoError(t, err)
	assert.Equal(t, "Hello", snippet.Title)
}

func TestSnippets_Update_Guarded(t *testing.T) {
	srv := NewSnippets(&storeMock{
		getSnippetFunc: func(ctx context.Context, id string) (store.Snippet, error) {
			return store.Snippet{ID: id, UserID: "user-2"}, nil
		},
		updateSnippetFunc: func(ctx context.Context, r store.UpdateSnippetRequest) (store.Snippet, error) {
			t.Fatal("foreign snippet must not be updated")
			return store.Snippet{}, nil
		},
	})

	_, err := srv.Update(context.Background(), UpdateSnippetRequest{UserID: "user-1", ID: "s-1"})
	requireNotFound(t, err, msgSnippetNotFound)
}

func TestSnippets_Delete(t *testing.T) {
	deleted := ""
	srv := NewSnippets(&storeMock{
		getSnippetFunc: func(ctx context.Context, id string) (store.Snippet, error) {
			return store.Snippet{ID: id, UserID: "user-1"}, nil
		},
		deleteSnippetFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	require.NoError(t, srv.Delete(context.Background(), "user-1", "s-1"))
	assert.Equal(t, "s-1", deleted)
}
