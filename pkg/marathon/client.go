package marathon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client fetches application state from the Marathon API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient returns a client for one Marathon endpoint. Credentials are
// optional; empty means unauthenticated.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Apps fetches every application with its tasks embedded and expands the
// result into per-service-port entries with healthy backends attached.
func (c *Client) Apps() ([]App, error) {
	url := c.baseURL + "/v2/apps?embed=apps.tasks"

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build marathon request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch marathon apps: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marathon returned status %d for %s", resp.StatusCode, url)
	}

	var response appsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode marathon response: %w", err)
	}

	return expandApps(response.Apps), nil
}
