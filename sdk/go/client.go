package testbuildersdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Testbuilder status API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Status is the pipeline status summary.
type Status struct {
	Workdir  string `json:"workdir"`
	Manifest string `json:"manifest"`
	Sources  int    `json:"sources"`
	Runs     int    `json:"runs"`
}

// Manifest is the build manifest source list.
type Manifest struct {
	Path   string   `json:"path"`
	Source []string `json:"source"`
}

// Run is one run-log entry.
type Run struct {
	ID     string `json:"id"`
	TS     string `json:"ts"`
	Verb   string `json:"verb"`
	Model  string `json:"model"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Readiness reports whether a model's inputs are complete.
type Readiness struct {
	Model   string   `json:"model"`
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health checks the unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	return c.get(ctx, "health", nil, &resp)
}

// Status fetches the pipeline status summary.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.get(ctx, "status", nil, &resp)
	return resp, err
}

// Manifest fetches the manifest source list.
func (c *Client) Manifest(ctx context.Context) (Manifest, error) {
	var resp Manifest
	err := c.get(ctx, "manifest", nil, &resp)
	return resp, err
}

// Runs lists up to n recent run-log entries.
func (c *Client) Runs(ctx context.Context, n int) ([]Run, error) {
	var resp struct {
		Items []Run `json:"items"`
	}
	q := url.Values{}
	if n > 0 {
		q.Set("n", strconv.Itoa(n))
	}
	err := c.get(ctx, "runs", q, &resp)
	return resp.Items, err
}

// Readiness reports the model's input readiness.
func (c *Client) Readiness(ctx context.Context, model string) (Readiness, error) {
	var resp Readiness
	err := c.get(ctx, "models/"+url.PathEscape(model)+"/readiness", nil, &resp)
	return resp, err
}

func (c *Client) get(ctx context.Context, p string, q url.Values, out any) error {
	base := strings.TrimRight(c.BaseURL, "/")
	u := base + "/" + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
