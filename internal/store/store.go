// Package store is the postgres persistence layer for users, projects,
// snippets and exports.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

type DataStore interface {
	GetUserByGoogleID(ctx context.Context, googleID string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, r CreateUserRequest) (User, error)

	CreateProject(ctx context.Context, r CreateProjectRequest) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context, userID string) ([]Project, error)
	UpdateProject(ctx context.Context, r UpdateProjectRequest) (Project, error)
	DeleteProject(ctx context.Context, id string) error

	CreateSnippet(ctx context.Context, r CreateSnippetRequest) (Snippet, error)
	GetSnippet(ctx context.Context, id string) (Snippet, error)
	ListSnippets(ctx context.Context, r ListSnippetsRequest) ([]Snippet, error)
	UpdateSnippet(ctx context.Context, r UpdateSnippetRequest) (Snippet, error)
	DeleteSnippet(ctx context.Context, id string) error

	CreateExport(ctx context.Context, r CreateExportRequest) (Export, error)
	GetExport(ctx context.Context, id string) (Export, error)
	ListExports(ctx context.Context, userID string) ([]Export, error)
	LatestExportForSnippet(ctx context.Context, userID, snippetID string) (Export, error)

	WithTx(ctx context.Context, fn func(tx DataStore) error) error
}

type CreateUserRequest struct {
	GoogleID string
	Email    string
	Name     string
	Avatar   string
}

type CreateProjectRequest struct {
	UserID string
	Name   string
	Frames json.RawMessage
}

type UpdateProjectRequest struct {
	ID     string
	Name   string
	Frames json.RawMessage
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

type ListSnippetsRequest struct {
	UserID    string
	ProjectID string
}

type UpdateSnippetRequest struct {
	ID       string
	Title    string
	Code     string
	Language string
	Position json.RawMessage
	Size     json.RawMessage
	Style    json.RawMessage
}

type CreateExportRequest struct {
	UserID    string
	SnippetID string
	BlobKey   string
	Format    string
}
