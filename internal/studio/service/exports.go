package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Theadedamola/snapcode-backend/internal/authz"
	"github.com/Theadedamola/snapcode-backend/internal/blob"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/Theadedamola/snapcode-backend/internal/render"
	"github.com/Theadedamola/snapcode-backend/internal/store"
	"github.com/dgraph-io/ristretto/v2"
)

const msgExportNotFound = "Export not found"

type exportStore interface {
	GetSnippet(ctx context.Context, id string) (store.Snippet, error)
	CreateExport(ctx context.Context, r store.CreateExportRequest) (store.Export, error)
	GetExport(ctx context.Context, id string) (store.Export, error)
	ListExports(ctx context.Context, userID string) ([]store.Export, error)
	LatestExportForSnippet(ctx context.Context, userID, snippetID string) (store.Export, error)
}

type blobStore interface {
	Save(r io.Reader) (string, error)
	Open(key string) (io.ReadCloser, error)
}

type exportMetrics interface {
	RecordExportServed()
	RecordRenderFailure()
}

// Exports renders snippet HTML to PNG and serves the results back.
type Exports struct {
	store    exportStore
	renderer render.Renderer
	blobs    blobStore
	cache    *ristretto.Cache[string, []byte]
	metrics  exportMetrics
}

type ExportsOption func(*Exports) *Exports

func WithExportStore(st exportStore) ExportsOption {
	return func(s *Exports) *Exports {
		s.store = st
		return s
	}
}

func WithRenderer(r render.Renderer) ExportsOption {
	return func(s *Exports) *Exports {
		s.renderer = r
		return s
	}
}

func WithBlobs(b blobStore) ExportsOption {
	return func(s *Exports) *Exports {
		s.blobs = b
		return s
	}
}

func WithExportMetrics(m exportMetrics) ExportsOption {
	return func(s *Exports) *Exports {
		s.metrics = m
		return s
	}
}

// WithRenderCache caches rendered PNGs by content hash so identical HTML is
// rendered once. maxCost is the cache budget in bytes.
func WithRenderCache(maxKeys, maxCost int64) ExportsOption {
	return func(s *Exports) *Exports {
		c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
			NumCounters: maxKeys * 10,
			MaxCost:     maxCost,
			BufferItems: 64,
		})
		if err != nil {
			panic(fmt.Sprintf("failed to create render cache: %v", err))
		}

		s.cache = c
		return s
	}
}

func NewExports(opts ...ExportsOption) *Exports {
	s := &Exports{}
	for _, opt := range opts {
		s = opt(s)
	}

	if s.store == nil {
		panic("export store is required")
	}

	if s.renderer == nil {
		panic("renderer is required")
	}

	if s.blobs == nil {
		panic("blob store is required")
	}

	return s
}

type RenderRequest struct {
	UserID    string
	HTML      string
	SnippetID string
}

type RenderResponse struct {
	Export store.Export
	// Reused reports that an earlier export for the snippet was returned
	// instead of rendering again.
	Reused bool
}

// Render produces a PNG export of the given HTML. When the export targets a
// snippet, the snippet must belong to the caller and the most recent export
// for it is reused if one exists.
func (s *Exports) Render(ctx context.Context, r RenderRequest) (RenderResponse, error) {
	if r.HTML == "" {
		return RenderResponse{}, serr.NewServiceError(nil, http.StatusBadRequest, "HTML content is required")
	}

	if r.SnippetID != "" {
		if err := s.requireOwnedSnippet(ctx, r.UserID, r.SnippetID); err != nil {
			return RenderResponse{}, err
		}

		existing, err := s.store.LatestExportForSnippet(ctx, r.UserID, r.SnippetID)
		if err == nil {
			return RenderResponse{Export: existing, Reused: true}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return RenderResponse{}, fmt.Errorf("get latest export: %w", err)
		}
	}

	png, err := s.renderPNG(ctx, r.HTML)
	if err != nil {
		return RenderResponse{}, err
	}

	key, err := s.blobs.Save(bytes.NewReader(png))
	if err != nil {
		return RenderResponse{}, fmt.Errorf("save export blob: %w", err)
	}

	exp, err := s.store.CreateExport(ctx, store.CreateExportRequest{
		UserID:    r.UserID,
		SnippetID: r.SnippetID,
		BlobKey:   key,
		Format:    "png",
	})
	if err != nil {
		return RenderResponse{}, fmt.Errorf("create export: %w", err)
	}

	return RenderResponse{Export: exp}, nil
}

// Get returns the export record and a reader over its PNG bytes. The reader
// must be closed by the caller.
func (s *Exports) Get(ctx context.Context, userID, id string) (store.Export, io.ReadCloser, error) {
	exp, err := s.store.GetExport(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Export{}, nil, exportNotFound(err, id)
		}

		return store.Export{}, nil, fmt.Errorf("get export: %w", err)
	}

	if err := authz.CheckOwner(userID, exp); err != nil {
		return store.Export{}, nil, exportNotFound(err, id)
	}

	f, err := s.blobs.Open(exp.BlobKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return store.Export{}, nil, exportNotFound(err, id)
		}

		return store.Export{}, nil, fmt.Errorf("open export blob: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordExportServed()
	}

	return exp, f, nil
}

func (s *Exports) List(ctx context.Context, userID string) ([]store.Export, error) {
	exports, err := s.store.ListExports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}

	return exports, nil
}

func (s *Exports) renderPNG(ctx context.Context, html string) ([]byte, error) {
	sum := sha256.Sum256([]byte(html))
	key := hex.EncodeToString(sum[:])

	if s.cache != nil {
		if png, found := s.cache.Get(key); found {
			return png, nil
		}
	}

	png, err := s.renderer.Render(ctx, html)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRenderFailure()
		}

		if errors.Is(err, render.ErrUnavailable) {
			return nil, serr.NewServiceError(err, http.StatusServiceUnavailable, "Export service unavailable")
		}

		return nil, fmt.Errorf("render: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key, png, int64(len(png)))
	}

	return png, nil
}

func (s *Exports) requireOwnedSnippet(ctx context.Context, userID, snippetID string) error {
	snippet, err := s.store.GetSnippet(ctx, snippetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return snippetNotFound(err, snippetID)
		}

		return fmt.Errorf("get snippet: %w", err)
	}

	if err := authz.CheckOwner(userID, snippet); err != nil {
		return snippetNotFound(err, snippetID)
	}

	return nil
}

func exportNotFound(err error, id string) *serr.ServiceError {
	se := serr.NewServiceError(err, http.StatusNotFound, msgExportNotFound)
	se.Env["export_id"] = id
	return se
}
