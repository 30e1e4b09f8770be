package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
)

// HTTPClient is a thin JSON client shared by all collaborator wrappers.
// Every call carries the configured timeout and a generated request id.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Get performs a GET and decodes the response into out (when non-nil).
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, out)
}

// Post performs a POST with a JSON body and decodes the response into out.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// PostWithHeaders is Post with extra request headers attached.
func (c *HTTPClient) PostWithHeaders(ctx context.Context, path string, headers map[string]string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, headers, body, out)
}

// Put performs a PUT with a JSON body and decodes the response into out.
func (c *HTTPClient) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Unavailable(method+" "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.Unavailable(method+" "+url,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Unavailable(method+" "+url, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
