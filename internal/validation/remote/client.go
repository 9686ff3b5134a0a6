// Package remote calls a validation endpoint over HTTP. The onboarding service
// uses it when validation is delegated to another deployment, and fdcctl uses
// it to check identifiers against a running server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fdctax/internal/validation"
	"fdctax/pkg/platform/sentinel"
)

const defaultTimeout = 5 * time.Second

// Client implements validation.Checker against POST /api/validate-{kind}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func (c *Client) Check(ctx context.Context, kind validation.Kind, raw string) (validation.Result, error) {
	body, err := json.Marshal(map[string]string{string(kind): raw})
	if err != nil {
		return validation.Result{}, fmt.Errorf("encode %s request: %w", kind, err)
	}

	url := fmt.Sprintf("%s/api/validate-%s", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return validation.Result{}, fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return validation.Result{}, fmt.Errorf("validate %s: %w: %w", kind, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return validation.Result{}, fmt.Errorf("validate %s: status %d: %s: %w", kind, resp.StatusCode, bytes.TrimSpace(snippet), sentinel.ErrUnavailable)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return validation.Result{}, fmt.Errorf("decode %s response: %w", kind, err)
	}
	if out.Valid {
		return validation.Passed(out.Message), nil
	}
	return validation.Failed(out.Message), nil
}
