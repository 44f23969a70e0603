// Package client is the CLI's HTTP client for the hooky API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/davidfries/hooky/internal/models"
)

// Endpoint mirrors the API's endpoint representation.
type Endpoint struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExpiresIn    int64     `json:"expires_in"`
	RequestCount int       `json:"request_count"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to one hooky server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// CreateEndpoint provisions a new endpoint; ttlSeconds <= 0 uses the server
// default.
func (c *Client) CreateEndpoint(ttlSeconds int64) (*Endpoint, error) {
	var ep Endpoint
	body := map[string]int64{"ttl_seconds": ttlSeconds}
	if err := c.do(http.MethodPost, "/api/endpoints", body, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

func (c *Client) ListEndpoints() ([]Endpoint, error) {
	var endpoints []Endpoint
	if err := c.do(http.MethodGet, "/api/endpoints", nil, &endpoints); err != nil {
		return nil, err
	}
	return endpoints, nil
}

func (c *Client) GetEndpoint(id string) (*Endpoint, error) {
	var ep Endpoint
	if err := c.do(http.MethodGet, "/api/endpoints/"+id, nil, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// DeleteEndpoint reports whether the endpoint existed.
func (c *Client) DeleteEndpoint(id string) (bool, error) {
	var result struct {
		Removed bool `json:"removed"`
	}
	if err := c.do(http.MethodDelete, "/api/endpoints/"+id, nil, &result); err != nil {
		return false, err
	}
	return result.Removed, nil
}

func (c *Client) ListRequests(id string) ([]models.CapturedRequest, error) {
	var requests []models.CapturedRequest
	if err := c.do(http.MethodGet, "/api/endpoints/"+id+"/requests", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// Health fetches the server's readiness payload, including the backend mode.
func (c *Client) Health() (map[string]string, error) {
	var status map[string]string
	if err := c.do(http.MethodGet, "/readyz", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// Stream attaches to an endpoint's live stream and invokes fn for each event
// until the context is cancelled, the stream ends, or fn returns an error.
// Connection drop is returned as an error; callers decide whether to
// reconnect.
func (c *Client) Stream(ctx context.Context, id string, fn func(models.CapturedRequest) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/endpoints/"+id+"/stream", nil)
	if err != nil {
		return err
	}

	// no client timeout: the stream is long-lived by design
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("stream connect failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event models.CapturedRequest
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	return scanner.Err()
}
