package kubernetes

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Client fetches the service state document over HTTP.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient returns a client for the state endpoint at baseURL.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Services retrieves and decodes the current service state.
func (c *Client) Services() ([]Service, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("state endpoint returned status %d for %s", resp.StatusCode, c.baseURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeState(data)
}

// Source adapts the HTTP client into a desired-state source.
type Source struct {
	client  *Client
	builder *Builder
}

// NewSource wires a client and builder into a source.
func NewSource(client *Client, builder *Builder) *Source {
	return &Source{client: client, builder: builder}
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "kubernetes" }

// Fetch retrieves the service state and builds desired configuration.
func (s *Source) Fetch() (*types.Config, error) {
	services, err := s.client.Services()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch services: %w", err)
	}
	return s.builder.Build(services), nil
}

// FileSource reads the service state document from a local file. Useful
// when a sidecar maintains the document on shared storage.
type FileSource struct {
	path    string
	builder *Builder
}

// NewFileSource returns a source backed by the document at path.
func NewFileSource(path string, builder *Builder) *FileSource {
	return &FileSource{path: path, builder: builder}
}

// Name identifies the source in logs and metrics.
func (s *FileSource) Name() string { return "kubernetes-file" }

// Fetch reads the state file and builds desired configuration.
func (s *FileSource) Fetch() (*types.Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service state: %w", err)
	}
	services, err := decodeState(data)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(services), nil
}
