// Package render turns snippet HTML into PNG bytes. Rendering runs in a
// separate headless-browser service; this package is the client for it.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable reports that the render backend could not be reached or
// refused the job. Callers translate it to a 503.
var ErrUnavailable = errors.New("render backend unavailable")

type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// HTTPRenderer posts render jobs to the external renderer over HTTP.
type HTTPRenderer struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

type HTTPRendererConfig struct {
	URL     string
	Timeout time.Duration
}

func NewHTTPRenderer(cfg HTTPRendererConfig) *HTTPRenderer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPRenderer{
		url:     cfg.URL,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type renderRequest struct {
	HTML string `json:"html"`
}

func (r *HTTPRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(renderRequest{HTML: html})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: renderer returned %d", ErrUnavailable, resp.StatusCode)
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}

	return png, nil
}

var _ Renderer = (*HTTPRenderer)(nil)
