// Package service implements the studio domain: projects, snippets and PNG
// exports. Every by-id operation checks ownership and reports a foreign
// resource exactly like a missing one.
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
	"github.com/google/uuid"
)

const msgProjectNotFound = "Project not found"

type projectStore interface {
	CreateProject(ctx context.Context, r store.CreateProjectRequest) (store.Project, error)
	GetProject(ctx context.Context, id string) (store.Project, error)
	ListProjects(ctx context.Context, userID string) ([]store.Project, error)
	UpdateProject(ctx context.Context, r store.UpdateProjectRequest) (store.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// Projects manages the caller's project canvases.
type Projects struct {
	store projectStore
}

func NewProjects(st projectStore) *Projects {
	if st == nil {
		panic("project store is required")
	}

	return &Projects{store: st}
}

func (s *Projects) List(ctx context.Context, userID string) ([]store.Project, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

type CreateProjectRequest struct {
	UserID string
	Name   string
	Frames json.RawMessage
}

func (s *Projects) Create(ctx context.Context, r CreateProjectRequest) (store.Project, error) {
	if r.Name == "" {
		return store.Project{}, serr.NewServiceError(nil, http.StatusBadRequest, "Project name is required")
	}

	frames, err := framesWithIDs(r.Frames)
	if err != nil {
		return store.Project{}, serr.NewServiceError(err, http.StatusBadRequest, "Invalid frames")
	}

	project, err := s.store.CreateProject(ctx, store.CreateProjectRequest{
		UserID: r.UserID,
		Name:   r.Name,
		Frames: frames,
	})
	if err != nil {
		return store.Project{}, fmt.Errorf("create project: %w", err)
	}

	return project, nil
}

// Get returns the project only to its owner; anyone else sees a 404.
func (s *Projects) Get(ctx context.Context, userID, id string) (store.Project, error) {
	return s.ownedProject(ctx, userID, id)
}

type UpdateProjectRequest struct {
	UserID string
	ID     string
	Name   string
	Frames json.RawMessage
}

func (s *Projects) Update(ctx context.Context, r UpdateProjectRequest) (store.Project, error) {
	if _, err := s.ownedProject(ctx, r.UserID, r.ID); err != nil {
		return store.Project{}, err
	}

	frames, err := framesWithIDs(r.Frames)
	if err != nil {
		return store.Project{}, serr.NewServiceError(err, http.StatusBadRequest, "Invalid frames")
	}

	project, err := s.store.UpdateProject(ctx, store.UpdateProjectRequest{
		ID:     r.ID,
		Name:   r.Name,
		Frames: frames,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Project{}, projectNotFound(err, r.ID)
		}

		return store.Project{}, fmt.Errorf("update project: %w", err)
	}

	return project, nil
}

func (s *Projects) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedProject(ctx, userID, id); err != nil {
		return err
	}

	if err := s.store.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return projectNotFound(err, id)
		}

		return fmt.Errorf("delete project: %w", err)
	}

	return nil
}

func (s *Projects) ownedProject(ctx context.Context, userID, id string) (store.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Project{}, projectNotFound(err, id)
		}

		return store.Project{}, fmt.Errorf("get project: %w", err)
	}

	if err := authz.CheckOwner(userID, project); err != nil {
		return store.Project{}, projectNotFound(err, id)
	}

	return project, nil
}

func projectNotFound(err error, id string) *serr.ServiceError {
	se := serr.NewServiceError(err, http.StatusNotFound, msgProjectNotFound)
	se.Env["project_id"] = id
	return se
}

// framesWithIDs assigns a uuid to every frame missing an id, leaving frames
// that already carry one untouched. A nil input becomes an empty list.
func framesWithIDs(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("[]"), nil
	}

	var frames []map[string]any
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, fmt.Errorf("unmarshal frames: %w", err)
	}

	for _, frame := range frames {
		if id, ok := frame["id"].(string); !ok || id == "" {
			frame["id"] = uuid.NewString()
		}
	}

	out, err := json.Marshal(frames)
	if err != nil {
		return nil, fmt.Errorf("marshal frames: %w", err)
	}

	return out, nil
}
