package bigip

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// ClientOptions configure the management connection.
type ClientOptions struct {
	URL       string
	Username  string
	Password  string
	VerifyTLS bool
	Timeout   time.Duration
}

// Client talks to the device's iControl REST API with basic auth. It
// implements Adapter.
type Client struct {
	base       string
	username   string
	password   string
	httpClient *http.Client
}

var _ Adapter = (*Client)(nil)

// NewClient returns a client for one management endpoint. The URL carries
// scheme and host, for example https://10.190.25.80.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid management URL %q: %w", opts.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("management URL %q must include scheme and host", opts.URL)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if !opts.VerifyTLS {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		base:       strings.TrimRight(opts.URL, "/") + "/mgmt/tm",
		username:   opts.Username,
		password:   opts.Password,
		httpClient: httpClient,
	}, nil
}

// pathID encodes a partition-scoped object name into the URL identifier the
// API expects. Slashes inside names become tildes.
func pathID(partition, name string) string {
	return "~" + partition + "~" + strings.ReplaceAll(name, "/", "~")
}

// iappID encodes an application service name, which lives inside its own
// .app folder.
func iappID(partition, name string) string {
	encoded := strings.ReplaceAll(name, "/", "~")
	return "~" + partition + "~" + encoded + ".app~" + encoded
}

// partitionFilter scopes a collection request to one partition and trims
// the response to names.
func partitionFilter(partition string) url.Values {
	return url.Values{
		"$filter": []string{"partition eq " + partition},
		"$select": []string{"name"},
	}
}

// monitorPath maps a monitor protocol onto its collection endpoint.
func monitorPath(protocol string) (string, error) {
	switch protocol {
	case types.ProtocolHTTP, types.ProtocolTCP:
		return "/ltm/monitor/" + protocol, nil
	}
	return "", fmt.Errorf("unknown monitor protocol: %q", protocol)
}

func (c *Client) requestURL(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues one request and decodes the response into out when out is
// non-nil. Transport failures and non-2xx statuses come back as
// *TransientError.
func (c *Client) do(op, method, path string, query url.Values, body, out any) error {
	u := c.requestURL(path, query)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return &TransientError{Op: op, URL: u, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &TransientError{Op: op, URL: u, Status: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Op: op, URL: u, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// getOptional reads one object, reporting absence instead of failing when
// the device returns 404.
func (c *Client) getOptional(op, path string, out any) (bool, error) {
	u := c.requestURL(path, nil)

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return false, &TransientError{Op: op, URL: u, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &TransientError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return false, &TransientError{Op: op, URL: u, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &TransientError{Op: op, URL: u, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return true, nil
}

// names lists a collection and returns the item names in response order.
func (c *Client) names(op, path string, query url.Values) ([]string, error) {
	var out struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := c.do(op, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		names = append(names, item.Name)
	}
	return names, nil
}

// Partitions lists all folder names on the device, including ones the
// controller does not manage. The caller filters.
func (c *Client) Partitions() ([]string, error) {
	return c.names("list partitions", "/sys/folder", url.Values{"$select": []string{"name"}})
}

// IAppNames lists the partition's application services.
func (c *Client) IAppNames(partition string) ([]string, error) {
	return c.names("list iapps", "/sys/application/service", partitionFilter(partition))
}

// CreateIApp deploys an application service from its template definition.
func (c *Client) CreateIApp(partition, name string, def *IAppDefinition) error {
	return c.do("create iapp", http.MethodPost, "/sys/application/service", nil,
		iappBody(partition, name, def, false), nil)
}

// UpdateIApp redeploys an application service against a new definition.
func (c *Client) UpdateIApp(partition, name string, def *IAppDefinition) error {
	path := "/sys/application/service/" + iappID(partition, name)
	return c.do("update iapp", http.MethodPatch, path, nil,
		iappBody(partition, name, def, true), nil)
}

// DeleteIApp removes an application service and everything it deployed.
func (c *Client) DeleteIApp(partition, name string) error {
	path := "/sys/application/service/" + iappID(partition, name)
	return c.do("delete iapp", http.MethodDelete, path, nil, nil, nil)
}

// iappBody flattens a definition into one request payload with template
// option keys at the top level. A redeploy must ask the device to re-run
// the template against the new definition; the template reference itself
// is only accepted at creation time.
func iappBody(partition, name string, def *IAppDefinition, redeploy bool) map[string]any {
	body := map[string]any{
		"name":      name,
		"partition": partition,
		"variables": def.Variables,
		"tables":    def.Tables,
	}
	for k, v := range def.Options {
		body[k] = v
	}
	if redeploy {
		body["executeAction"] = "definition"
	} else {
		body["template"] = def.Template
	}
	return body
}

// MonitorNames lists the partition's monitors as a name-to-protocol map,
// merging the http and tcp collections. A name claimed by both keeps the
// tcp entry.
func (c *Client) MonitorNames(partition string) (map[string]string, error) {
	monitors := make(map[string]string)
	for _, protocol := range []string{types.ProtocolHTTP, types.ProtocolTCP} {
		names, err := c.names("list "+protocol+" monitors", "/ltm/monitor/"+protocol,
			partitionFilter(partition))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			monitors[name] = protocol
		}
	}
	return monitors, nil
}

// ReadMonitor reads one monitor's writable fields.
func (c *Client) ReadMonitor(partition, name, protocol string) (*MonitorState, error) {
	path, err := monitorPath(protocol)
	if err != nil {
		return nil, err
	}
	var state MonitorState
	if err := c.do("read monitor", http.MethodGet, path+"/"+pathID(partition, name), nil, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CreateMonitor creates a monitor under its protocol's collection.
func (c *Client) CreateMonitor(partition string, monitor types.Monitor) error {
	path, err := monitorPath(monitor.Protocol)
	if err != nil {
		return err
	}
	body := struct {
		Name      string `json:"name"`
		Partition string `json:"partition"`
		MonitorState
	}{
		Name:         monitor.Name,
		Partition:    partition,
		MonitorState: monitorState(monitor),
	}
	return c.do("create monitor", http.MethodPost, path, nil, body, nil)
}

// UpdateMonitor rewrites a monitor's writable fields.
func (c *Client) UpdateMonitor(partition string, monitor types.Monitor) error {
	path, err := monitorPath(monitor.Protocol)
	if err != nil {
		return err
	}
	state := monitorState(monitor)
	return c.do("update monitor", http.MethodPatch, path+"/"+pathID(partition, monitor.Name), nil, state, nil)
}

// DeleteMonitor removes a monitor from its protocol's collection.
func (c *Client) DeleteMonitor(partition, name, protocol string) error {
	path, err := monitorPath(protocol)
	if err != nil {
		return err
	}
	return c.do("delete monitor", http.MethodDelete, path+"/"+pathID(partition, name), nil, nil, nil)
}

// monitorState maps a desired monitor onto its writable fields.
func monitorState(m types.Monitor) MonitorState {
	return MonitorState{
		Interval: m.Interval,
		Timeout:  m.Timeout,
		Send:     m.Send,
		Recv:     m.Recv,
		Username: m.Username,
		Password: m.Password,
	}
}

// PoolNames lists the partition's pools.
func (c *Client) PoolNames(partition string) ([]string, error) {
	return c.names("list pools", "/ltm/pool", partitionFilter(partition))
}

// ReadPool reads one pool's writable fields.
func (c *Client) ReadPool(partition, name string) (*PoolState, error) {
	var state PoolState
	if err := c.do("read pool", http.MethodGet, "/ltm/pool/"+pathID(partition, name), nil, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CreatePool creates a pool. An empty monitor expression is sent as null so
// the pool starts unmonitored.
func (c *Client) CreatePool(partition, name string, fields PoolFields) error {
	body := poolBody(fields)
	body["name"] = name
	body["partition"] = partition
	return c.do("create pool", http.MethodPost, "/ltm/pool", nil, body, nil)
}

// UpdatePool rewrites a pool's writable fields. An empty monitor expression
// is sent as null to detach whatever the pool had.
func (c *Client) UpdatePool(partition, name string, fields PoolFields) error {
	return c.do("update pool", http.MethodPatch, "/ltm/pool/"+pathID(partition, name), nil,
		poolBody(fields), nil)
}

// DeletePool removes a pool and its members.
func (c *Client) DeletePool(partition, name string) error {
	return c.do("delete pool", http.MethodDelete, "/ltm/pool/"+pathID(partition, name), nil, nil, nil)
}

func poolBody(fields PoolFields) map[string]any {
	body := map[string]any{
		"loadBalancingMode": fields.Balance,
	}
	if fields.Monitor != "" {
		body["monitor"] = fields.Monitor
	} else {
		body["monitor"] = nil
	}
	return body
}

// MemberKeys lists a pool's member names, each a host:port key.
func (c *Client) MemberKeys(partition, pool string) ([]string, error) {
	path := "/ltm/pool/" + pathID(partition, pool) + "/members"
	return c.names("list members", path, url.Values{"$select": []string{"name"}})
}

// ReadMember reads one member's administrative state.
func (c *Client) ReadMember(partition, pool, member string) (*types.Member, error) {
	path := "/ltm/pool/" + pathID(partition, pool) + "/members/" + pathID(partition, member)
	var state types.Member
	if err := c.do("read member", http.MethodGet, path, nil, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CreateMember adds a member to a pool in the given administrative state.
func (c *Client) CreateMember(partition, pool, member string, state types.Member) error {
	path := "/ltm/pool/" + pathID(partition, pool) + "/members"
	body := struct {
		Name      string `json:"name"`
		Partition string `json:"partition"`
		types.Member
	}{
		Name:      member,
		Partition: partition,
		Member:    state,
	}
	return c.do("create member", http.MethodPost, path, nil, body, nil)
}

// UpdateMember rewrites a member's administrative state.
func (c *Client) UpdateMember(partition, pool, member string, state types.Member) error {
	path := "/ltm/pool/" + pathID(partition, pool) + "/members/" + pathID(partition, member)
	return c.do("update member", http.MethodPatch, path, nil, state, nil)
}

// DeleteMember removes a member from a pool.
func (c *Client) DeleteMember(partition, pool, member string) error {
	path := "/ltm/pool/" + pathID(partition, pool) + "/members/" + pathID(partition, member)
	return c.do("delete member", http.MethodDelete, path, nil, nil, nil)
}

// Nodes lists the partition's nodes with their administrative state.
func (c *Client) Nodes(partition string) ([]NodeState, error) {
	var out struct {
		Items []NodeState `json:"items"`
	}
	query := url.Values{
		"$filter": []string{"partition eq " + partition},
		"$select": []string{"name,state,session"},
	}
	if err := c.do("list nodes", http.MethodGet, "/ltm/node", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// EnableNode forces a node back to the up, enabled state.
func (c *Client) EnableNode(partition, name string) error {
	return c.do("enable node", http.MethodPatch, "/ltm/node/"+pathID(partition, name), nil,
		types.NewMember(), nil)
}

// DeleteNode removes a node from the partition.
func (c *Client) DeleteNode(partition, name string) error {
	return c.do("delete node", http.MethodDelete, "/ltm/node/"+pathID(partition, name), nil, nil, nil)
}

// VirtualNames lists the partition's virtual servers.
func (c *Client) VirtualNames(partition string) ([]string, error) {
	return c.names("list virtuals", "/ltm/virtual", partitionFilter(partition))
}

// ReadVirtual reads one virtual server's writable fields.
func (c *Client) ReadVirtual(partition, name string) (*VirtualState, error) {
	var state VirtualState
	if err := c.do("read virtual", http.MethodGet, "/ltm/virtual/"+pathID(partition, name), nil, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// VirtualProfiles lists the profiles attached to a virtual server.
func (c *Client) VirtualProfiles(partition, name string) ([]types.ProfileRef, error) {
	var out struct {
		Items []types.ProfileRef `json:"items"`
	}
	path := "/ltm/virtual/" + pathID(partition, name) + "/profiles"
	query := url.Values{"$select": []string{"name,partition"}}
	if err := c.do("list virtual profiles", http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateVirtual creates a virtual server.
func (c *Client) CreateVirtual(partition, name string, fields VirtualFields) error {
	body := struct {
		Name      string `json:"name"`
		Partition string `json:"partition"`
		VirtualFields
	}{
		Name:          name,
		Partition:     partition,
		VirtualFields: fields,
	}
	return c.do("create virtual", http.MethodPost, "/ltm/virtual", nil, body, nil)
}

// UpdateVirtual rewrites a virtual server's writable fields, profiles
// included.
func (c *Client) UpdateVirtual(partition, name string, fields VirtualFields) error {
	return c.do("update virtual", http.MethodPatch, "/ltm/virtual/"+pathID(partition, name), nil, fields, nil)
}

// DeleteVirtual removes a virtual server.
func (c *Client) DeleteVirtual(partition, name string) error {
	return c.do("delete virtual", http.MethodDelete, "/ltm/virtual/"+pathID(partition, name), nil, nil, nil)
}

// VirtualAddress reads one virtual address, or nil when the device has no
// such address in the partition.
func (c *Client) VirtualAddress(partition, addr string) (*VirtualAddressState, error) {
	var state VirtualAddressState
	found, err := c.getOptional("read virtual address", "/ltm/virtual-address/"+pathID(partition, addr), &state)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &state, nil
}

// CreateVirtualAddress creates a virtual address, enabled by default.
func (c *Client) CreateVirtualAddress(partition, addr string) error {
	body := struct {
		Name      string `json:"name"`
		Partition string `json:"partition"`
	}{Name: addr, Partition: partition}
	return c.do("create virtual address", http.MethodPost, "/ltm/virtual-address", nil, body, nil)
}

// EnableVirtualAddress flips a disabled virtual address back to enabled.
func (c *Client) EnableVirtualAddress(partition, addr string) error {
	body := struct {
		Enabled string `json:"enabled"`
	}{Enabled: VirtualAddressEnabled}
	return c.do("enable virtual address", http.MethodPatch, "/ltm/virtual-address/"+pathID(partition, addr), nil, body, nil)
}
