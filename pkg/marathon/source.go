package marathon

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Source combines the client and builder into a single fetch of desired
// state.
type Source struct {
	client  *Client
	builder *Builder
}

// NewSource returns a source that polls one Marathon endpoint.
func NewSource(client *Client, builder *Builder) *Source {
	return &Source{client: client, builder: builder}
}

// Name identifies the orchestrator kind in logs and the journal.
func (s *Source) Name() string {
	return "marathon"
}

// Fetch pulls the current app state and builds desired load-balancer state
// from it.
func (s *Source) Fetch() (*types.Config, error) {
	apps, err := s.client.Apps()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch apps: %w", err)
	}
	return s.builder.Build(apps), nil
}

// FileSource reads a saved /v2/apps response from a local file. Useful for
// replaying captured state and for dry runs without a reachable API.
type FileSource struct {
	path    string
	builder *Builder
}

// NewFileSource returns a source backed by the app document at path.
func NewFileSource(path string, builder *Builder) *FileSource {
	return &FileSource{path: path, builder: builder}
}

// Name identifies the source in logs and the journal.
func (s *FileSource) Name() string { return "marathon-file" }

// Fetch reads the app file and builds desired load-balancer state. The file
// holds either the full response envelope or a bare app array.
func (s *FileSource) Fetch() (*types.Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read app state: %w", err)
	}

	var response appsResponse
	if err := json.Unmarshal(data, &response); err == nil && response.Apps != nil {
		return s.builder.Build(expandApps(response.Apps)), nil
	}

	var raw []marathonApp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode app state: %w", err)
	}
	return s.builder.Build(expandApps(raw)), nil
}
