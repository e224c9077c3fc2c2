package callservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CallAPI is the authoritative source of call-service URLs.
type CallAPI interface {
	ServiceURLs(ctx context.Context) ([]string, error)
}

type serviceURLsResponse struct {
	ServiceURLs []string `json:"serviceUrls"`
}

type HTTPClient struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient returns a CallAPI that GETs url and reads {"serviceUrls": [...]}.
func NewHTTPClient(url string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{url: url, client: client, timeout: 5 * time.Second}
}

func (c *HTTPClient) ServiceURLs(ctx context.Context) ([]string, error) {
	if c.url == "" {
		return nil, errors.New("call api url not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("call api returned %d", resp.StatusCode)
	}
	var raw serviceURLsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode call api response: %w", err)
	}
	if raw.ServiceURLs == nil {
		return nil, errors.New("call api response missing serviceUrls field")
	}
	return raw.ServiceURLs, nil
}
