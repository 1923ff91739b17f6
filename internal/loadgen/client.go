package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks JSON to the tasting service.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// request describes one call. want lists the accepted statuses.
type request struct {
	method      string
	path        string
	body        any
	participant string
	idemKey     string
	want        []int
}

// do sends req and decodes the response into out when out is non-nil. It
// returns the status code so callers can tell accepted outcomes apart.
func (c *Client) do(ctx context.Context, req request, out any) (int, error) {
	var body io.Reader = http.NoBody
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, c.base+req.path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	if req.participant != "" {
		hreq.Header.Set("X-Participant", url.PathEscape(req.participant))
	}
	if req.idemKey != "" {
		hreq.Header.Set("Idempotency-Key", req.idemKey)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if !accepted(resp.StatusCode, req.want) {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: HTTP %d: %s", ErrUnexpectedStatus, req.method, req.path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func accepted(status int, want []int) bool {
	if len(want) == 0 {
		return status == http.StatusOK
	}
	for _, w := range want {
		if status == w {
			return true
		}
	}
	return false
}
