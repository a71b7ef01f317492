package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Theadedamola/snapcode-backend/internal/authz"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/Theadedamola/snapcode-backend/internal/store"
)

const msgSnippetNotFound = "Snippet not found"

type snippetStore interface {
	projectStore
	CreateSnippet(ctx context.Context, r store.CreateSnippetRequest) (store.Snippet, error)
	GetSnippet(ctx context.Context, id string) (store.Snippet, error)
	ListSnippets(ctx context.Context, r store.ListSnippetsRequest) ([]store.Snippet, error)
	UpdateSnippet(ctx context.Context, r store.UpdateSnippetRequest) (store.Snippet, error)
	DeleteSnippet(ctx context.Context, id string) error
}

// Snippets manages the styled code fragments inside projects.
type Snippets struct {
	store snippetStore
}

func NewSnippets(st snippetStore) *Snippets {
	if st == nil {
		panic("snippet store is required")
	}

	return &Snippets{store: st}
}

type CreateSnippetRequest struct {
	UserID    string
	ProjectID string
	Title     string
	Code      string
	Language  string
	Position  json.RawMessage
	Size      json.RawMessage
	Style     json.RawMessage
}

func (r CreateSnippetRequest) complete() bool {
	return r.Title != "" && r.Code != "" && r.Language != "" && r.ProjectID != "" &&
		len(r.Position) > 0 && len(r.Size) > 0 && len(r.Style) > 0
}

// Create adds a snippet to a project the caller owns. A project belonging to
// someone else is reported as missing.
func (s *Snippets) Create(ctx context.Context, r CreateSnippetRequest) (store.Snippet, error) {
	if !r.complete() {
		return store.Snippet{}, serr.NewServiceError(nil, http.StatusBadRequest, "Please provide all required fields")
	}

	if err := s.requireOwnedProject(ctx, r.UserID, r.ProjectID); err != nil {
		return store.Snippet{}, err
	}

	snippet, err := s.store.CreateSnippet(ctx, store.CreateSnippetRequest{
		UserID:    r.UserID,
		ProjectID: r.ProjectID,
		Title:     r.Title,
		Code:      r.Code,
		Language:  r.Language,
		Position:  r.Position,
		Size:      r.Size,
		Style:     r.Style,
	})
	if err != nil {
		return store.Snippet{}, fmt.Errorf("create snippet: %w", err)
	}

	return snippet, nil
}

// List returns the caller's snippets in a project they own, newest first.
func (s *Snippets) List(ctx context.Context, userID, projectID string) ([]store.Snippet, error) {
	if projectID == "" {
		return nil, serr.NewServiceError(nil, http.StatusBadRequest, "Project ID is required")
	}

	if err := s.requireOwnedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	snippets, err := s.store.ListSnippets(ctx, store.ListSnippetsRequest{
		UserID:    userID,
		ProjectID: projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}

	return snippets, nil
}

func (s *Snippets) Get(ctx context.Context, userID, id string) (store.Snippet, error) {
	return s.ownedSnippet(ctx, userID, id)
}

type UpdateSnippetRequest struct {
	UserID   string
	ID       string
	Title    string
	Code     string
	Language string
	Position json.RawMessage
	Size     json.RawMessage
	Style    json.RawMessage
}

func (s *Snippets) Update(ctx context.Context, r UpdateSnippetRequest) (store.Snippet, error) {
	if _, err := s.ownedSnippet(ctx, r.UserID, r.ID); err != nil {
		return store.Snippet{}, err
	}

	snippet, err := s.store.UpdateSnippet(ctx, store.UpdateSnippetRequest{
		ID:       r.ID,
		Title:    r.Title,
		Code:     r.Code,
		Language: r.Language,
		Position: r.Position,
		Size:     r.Size,
		Style:    r.Style,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Snippet{}, snippetNotFound(err, r.ID)
		}

		return store.Snippet{}, fmt.Errorf("update snippet: %w", err)
	}

	return snippet, nil
}

func (s *Snippets) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedSnippet(ctx, userID, id); err != nil {
		return err
	}

	if err := s.store.DeleteSnippet(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return snippetNotFound(err, id)
		}

		return fmt.Errorf("delete snippet: %w", err)
	}

	return nil
}

func (s *Snippets) ownedSnippet(ctx context.Context, userID, id string) (store.Snippet, error) {
	snippet, err := s.store.GetSnippet(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Snippet{}, snippetNotFound(err, id)
		}

		return store.Snippet{}, fmt.Errorf("get snippet: %w", err)
	}

	if err := authz.CheckOwner(userID, snippet); err != nil {
		return store.Snippet{}, snippetNotFound(err, id)
	}

	return snippet, nil
}

func (s *Snippets) requireOwnedProject(ctx context.Context, userID, projectID string) error {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return projectNotFound(err, projectID)
		}

		return fmt.Errorf("get project: %w", err)
	}

	if err := authz.CheckOwner(userID, project); err != nil {
		return projectNotFound(err, projectID)
	}

	return nil
}

func snippetNotFound(err error, id string) *serr.ServiceError {
	se := serr.NewServiceError(err, http.StatusNotFound, msgSnippetNotFound)
	se.Env["snippet_id"] = id
	return se
}
