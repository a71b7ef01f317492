// Package rest exposes the studio endpoints: project and snippet CRUD plus
// PNG export generation and download. Every route sits behind the auth gate.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/httpx"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/middleware"
	"github.com/Theadedamola/snapcode-backend/internal/store"
	"github.com/Theadedamola/snapcode-backend/internal/studio/service"
)

type projectService interface {
	List(ctx context.Context, userID string) ([]store.Project, error)
	Create(ctx context.Context, r service.CreateProjectRequest) (store.Project, error)
	Get(ctx context.Context, userID, id string) (store.Project, error)
	Update(ctx context.Context, r service.UpdateProjectRequest) (store.Project, error)
	Delete(ctx context.Context, userID, id string) error
}

type snippetService interface {
	Create(ctx context.Context, r service.CreateSnippetRequest) (store.Snippet, error)
	List(ctx context.Context, userID, projectID string) ([]store.Snippet, error)
	Get(ctx context.Context, userID, id string) (store.Snippet, error)
	Update(ctx context.Context, r service.UpdateSnippetRequest) (store.Snippet, error)
	Delete(ctx context.Context, userID, id string) error
}

type exportService interface {
	Render(ctx context.Context, r service.RenderRequest) (service.RenderResponse, error)
	Get(ctx context.Context, userID, id string) (store.Export, io.ReadCloser, error)
	List(ctx context.Context, userID string) ([]store.Export, error)
}

type API struct {
	projects projectService
	snippets snippetService
	exports  exportService
	mux      *http.ServeMux
}

func NewAPI(projects projectService, snippets snippetService, exports exportService) *API {
	api := &API{
		projects: projects,
		snippets: snippets,
		exports:  exports,
		mux:      http.NewServeMux(),
	}
	api.mount()
	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) mount() {
	a.mux.HandleFunc("GET /projects", a.handleListProjects)
	a.mux.HandleFunc("POST /projects", a.handleCreateProject)
	a.mux.HandleFunc("GET /projects/{id}", a.handleGetProject)
	a.mux.HandleFunc("PUT /projects/{id}", a.handleUpdateProject)
	a.mux.HandleFunc("DELETE /projects/{id}", a.handleDeleteProject)

	a.mux.HandleFunc("POST /snippets", a.handleCreateSnippet)
	a.mux.HandleFunc("GET /snippets", a.handleListSnippets)
	a.mux.HandleFunc("GET /snippets/{id}", a.handleGetSnippet)
	a.mux.HandleFunc("PUT /snippets/{id}", a.handleUpdateSnippet)
	a.mux.HandleFunc("DELETE /snippets/{id}", a.handleDeleteSnippet)

	a.mux.HandleFunc("POST /export/png", a.handleRenderExport)
	a.mux.HandleFunc("GET /export/png/{id}", a.handleGetExport)
	a.mux.HandleFunc("GET /export", a.handleListExports)
}

type projectJSON struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Frames    json.RawMessage `json:"frames"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toProjectJSON(p store.Project) projectJSON {
	return projectJSON{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		Frames:    p.Frames,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	projects, err := a.projects.List(r.Context(), id.ID)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	out := make([]projectJSON, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectJSON(p))
	}

	if err := httpx.WriteJSON(w, http.StatusOK, out); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type projectRequest struct {
	Name   string          `json:"name"`
	Frames json.RawMessage `json:"frames"`
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	var req projectRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	project, err := a.projects.Create(r.Context(), service.CreateProjectRequest{
		UserID: id.ID,
		Name:   req.Name,
		Frames: req.Frames,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, toProjectJSON(project)); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	project, err := a.projects.Get(r.Context(), id.ID, r.PathValue("id"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, toProjectJSON(project)); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	var req projectRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	project, err := a.projects.Update(r.Context(), service.UpdateProjectRequest{
		UserID: id.ID,
		ID:     r.PathValue("id"),
		Name:   req.Name,
		Frames: req.Frames,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, toProjectJSON(project)); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	if err := a.projects.Delete(r.Context(), id.ID, r.PathValue("id")); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, successResponse{Success: true}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type snippetJSON struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Code      string          `json:"code"`
	Language  string          `json:"language"`
	Position  json.RawMessage `json:"position"`
	Size      json.RawMessage `json:"size"`
	Style     json.RawMessage `json:"style"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toSnippetJSON(s store.Snippet) snippetJSON {
	return snippetJSON{
		ID:        s.ID,
		UserID:    s.UserID,
		ProjectID: s.ProjectID,
		Title:     s.Title,
		Code:      s.Code,
		Language:  s.Language,
		Position:  s.Position,
		Size:      s.Size,
		Style:     s.Style,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type listResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

type snippetRequest struct {
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Code      string          `json:"code"`
	Language  string          `json:"language"`
	Position  json.RawMessage `json:"position"`
	Size      json.RawMessage `json:"size"`
	Style     json.RawMessage `json:"style"`
}

func (a *API) handleCreateSnippet(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	var req snippetRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	snippet, err := a.snippets.Create(r.Context(), service.CreateSnippetRequest{
		UserID:    id.ID,
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Code:      req.Code,
		Language:  req.Language,
		Position:  req.Position,
		Size:      req.Size,
		Style:     req.Style,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, dataResponse{Success: true, Data: toSnippetJSON(snippet)}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	snippets, err := a.snippets.List(r.Context(), id.ID, r.URL.Query().Get("projectId"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	out := make([]snippetJSON, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, toSnippetJSON(s))
	}

	if err := httpx.WriteJSON(w, http.StatusOK, listResponse{Success: true, Count: len(out), Data: out}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	snippet, err := a.snippets.Get(r.Context(), id.ID, r.PathValue("id"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: toSnippetJSON(snippet)}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleUpdateSnippet(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	var req snippetRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	snippet, err := a.snippets.Update(r.Context(), service.UpdateSnippetRequest{
		UserID:   id.ID,
		ID:       r.PathValue("id"),
		Title:    req.Title,
		Code:     req.Code,
		Language: req.Language,
		Position: req.Position,
		Size:     req.Size,
		Style:    req.Style,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: toSnippetJSON(snippet)}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	if err := a.snippets.Delete(r.Context(), id.ID, r.PathValue("id")); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: struct{}{}}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type renderExportRequest struct {
	HTML      string `json:"html"`
	SnippetID string `json:"snippetId"`
}

type exportRefJSON struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (a *API) handleRenderExport(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	var req renderExportRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	resp, err := a.exports.Render(r.Context(), service.RenderRequest{
		UserID:    id.ID,
		HTML:      req.HTML,
		SnippetID: req.SnippetID,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	status := http.StatusCreated
	if resp.Reused {
		status = http.StatusOK
	}

	out := dataResponse{Success: true, Data: exportRefJSON{
		ID:  resp.Export.ID,
		URL: "/api/export/png/" + resp.Export.ID,
	}}
	if err := httpx.WriteJSON(w, status, out); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	exp, png, err := a.exports.Get(r.Context(), id.ID, r.PathValue("id"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
	defer png.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="export-%s.png"`, exp.ID))
	_, _ = io.Copy(w, png)
}

type exportJSON struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	SnippetID string    `json:"snippetId,omitempty"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *API) handleListExports(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	exports, err := a.exports.List(r.Context(), id.ID)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	out := make([]exportJSON, 0, len(exports))
	for _, e := range exports {
		out = append(out, exportJSON{
			ID:        e.ID,
			URL:       "/api/export/png/" + e.ID,
			SnippetID: e.SnippetID,
			Format:    e.Format,
			CreatedAt: e.CreatedAt,
		})
	}

	if err := httpx.WriteJSON(w, http.StatusOK, listResponse{Success: true, Count: len(out), Data: out}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}
