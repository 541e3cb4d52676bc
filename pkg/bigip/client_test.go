package bigip

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		URL:      server.URL,
		Username: "admin",
		Password: "default",
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client, server
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(ClientOptions{URL: "10.190.25.80"}); err == nil {
		t.Error("Expected URL without scheme to be rejected")
	}
	if _, err := NewClient(ClientOptions{URL: "://bad"}); err == nil {
		t.Error("Expected unparseable URL to be rejected")
	}
}

func TestPathID(t *testing.T) {
	if got := pathID("velcro", "server-app_10.128.10.240_80"); got != "~velcro~server-app_10.128.10.240_80" {
		t.Errorf("Unexpected path id: %s", got)
	}

	// Names derived from nested app identities keep their slashes, which
	// must become tildes on the wire.
	if got := pathID("velcro", "group/server-app_10.128.10.240_80"); got != "~velcro~group~server-app_10.128.10.240_80" {
		t.Errorf("Unexpected path id for nested name: %s", got)
	}

	if got := iappID("velcro", "server-app_iapp_10000"); got != "~velcro~server-app_iapp_10000.app~server-app_iapp_10000" {
		t.Errorf("Unexpected iapp id: %s", got)
	}
}

func TestClientSendsBasicAuth(t *testing.T) {
	// Create test HTTP server that checks credentials
	var sawAuth bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		sawAuth = ok && user == "admin" && pass == "default"
		w.Write([]byte(`{"items":[]}`))
	}))

	if _, err := client.PoolNames("velcro"); err != nil {
		t.Fatalf("Expected list to succeed, got: %v", err)
	}
	if !sawAuth {
		t.Error("Expected request to carry basic auth credentials")
	}
}

func TestPartitions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mgmt/tm/sys/folder" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"items":[{"name":"/"},{"name":"Common"},{"name":"velcro"},{"name":"server-app_iapp_10000.app"}]}`))
	}))

	names, err := client.Partitions()
	if err != nil {
		t.Fatalf("Failed to list partitions: %v", err)
	}
	if len(names) != 4 || names[2] != "velcro" {
		t.Errorf("Expected raw folder names in order, got %v", names)
	}
}

func TestListFiltersByPartition(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("$filter"); got != "partition eq velcro" {
			t.Errorf("Expected partition filter, got %q", got)
		}
		if got := query.Get("$select"); got != "name" {
			t.Errorf("Expected name selection, got %q", got)
		}
		w.Write([]byte(`{"items":[{"name":"server-app_10.128.10.240_80"}]}`))
	}))

	names, err := client.VirtualNames("velcro")
	if err != nil {
		t.Fatalf("Failed to list virtuals: %v", err)
	}
	if len(names) != 1 || names[0] != "server-app_10.128.10.240_80" {
		t.Errorf("Unexpected virtual names: %v", names)
	}
}

func TestMonitorNamesMergesProtocols(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mgmt/tm/ltm/monitor/http":
			w.Write([]byte(`{"items":[{"name":"web-app_10.0.0.1_80"},{"name":"shared"}]}`))
		case "/mgmt/tm/ltm/monitor/tcp":
			w.Write([]byte(`{"items":[{"name":"tcp-app_10.0.0.2_443"},{"name":"shared"}]}`))
		default:
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
	}))

	monitors, err := client.MonitorNames("velcro")
	if err != nil {
		t.Fatalf("Failed to list monitors: %v", err)
	}
	if monitors["web-app_10.0.0.1_80"] != types.ProtocolHTTP {
		t.Errorf("Expected http monitor, got %s", monitors["web-app_10.0.0.1_80"])
	}
	if monitors["tcp-app_10.0.0.2_443"] != types.ProtocolTCP {
		t.Errorf("Expected tcp monitor, got %s", monitors["tcp-app_10.0.0.2_443"])
	}
	// A name in both collections keeps the tcp entry
	if monitors["shared"] != types.ProtocolTCP {
		t.Errorf("Expected tcp to win for shared name, got %s", monitors["shared"])
	}
}

func TestUnexpectedStatusIsTransient(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ltm unavailable", http.StatusServiceUnavailable)
	}))

	_, err := client.PoolNames("velcro")
	if err == nil {
		t.Fatal("Expected error from 503 response")
	}
	if !IsTransient(err) {
		t.Errorf("Expected transient error, got: %v", err)
	}

	var te *TransientError
	if !errors.As(err, &te) || te.Status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 in error, got: %v", err)
	}
}

func TestConnectionFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(ClientOptions{URL: server.URL, Username: "admin", Password: "default"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	server.Close()

	if _, err := client.PoolNames("velcro"); !IsTransient(err) {
		t.Errorf("Expected transient error from closed server, got: %v", err)
	}
}

func TestVirtualAddressAbsent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	state, err := client.VirtualAddress("velcro", "10.128.10.240")
	if err != nil {
		t.Fatalf("Expected absence, not error: %v", err)
	}
	if state != nil {
		t.Errorf("Expected nil state for missing address, got %+v", state)
	}
}

func TestVirtualAddressRead(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mgmt/tm/ltm/virtual-address/~velcro~10.128.10.240" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"address":"10.128.10.240","enabled":"no"}`))
	}))

	state, err := client.VirtualAddress("velcro", "10.128.10.240")
	if err != nil {
		t.Fatalf("Failed to read virtual address: %v", err)
	}
	if state.Enabled != VirtualAddressDisabled {
		t.Errorf("Expected disabled address, got %q", state.Enabled)
	}
}

func TestCreateMemberBody(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/mgmt/tm/ltm/pool/~velcro~server-app_10.128.10.240_80/members" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
	}))

	err := client.CreateMember("velcro", "server-app_10.128.10.240_80", "10.0.0.1:31256", types.NewMember())
	if err != nil {
		t.Fatalf("Failed to create member: %v", err)
	}
	if body["name"] != "10.0.0.1:31256" || body["partition"] != "velcro" {
		t.Errorf("Unexpected member identity in body: %v", body)
	}
	if body["state"] != "user-up" || body["session"] != "user-enabled" {
		t.Errorf("Expected forced-up state in body, got %v", body)
	}
}

func TestPoolBodyMonitor(t *testing.T) {
	bodies := make([]map[string]any, 0, 2)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		bodies = append(bodies, body)
	}))

	err := client.CreatePool("velcro", "with-monitor", PoolFields{
		Balance: "round-robin",
		Monitor: "/velcro/with-monitor",
	})
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}

	err = client.UpdatePool("velcro", "no-monitor", PoolFields{Balance: "round-robin"})
	if err != nil {
		t.Fatalf("Failed to update pool: %v", err)
	}

	if bodies[0]["monitor"] != "/velcro/with-monitor" {
		t.Errorf("Expected monitor expression, got %v", bodies[0]["monitor"])
	}
	// An empty expression must be an explicit null so the device detaches
	// the old monitor instead of keeping it
	if val, present := bodies[1]["monitor"]; !present || val != nil {
		t.Errorf("Expected explicit null monitor, got %v (present=%v)", val, present)
	}
}

func TestUpdateIAppBody(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH, got %s", r.Method)
		}
		if r.URL.Path != "/mgmt/tm/sys/application/service/~velcro~server-app_iapp_10000.app~server-app_iapp_10000" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
	}))

	def := &IAppDefinition{
		Template: "/Common/f5.http",
		Variables: []IAppVariable{
			{Name: "pool__port", Value: "8080"},
		},
		Tables: []IAppTable{{
			Name:        "pool__members",
			ColumnNames: []string{"addr", "port", "connection_limit"},
			Rows:        []IAppRow{{Row: []string{"10.0.0.1", "31256", "0"}}},
		}},
		Options: map[string]any{"description": "managed"},
	}
	if err := client.UpdateIApp("velcro", "server-app_iapp_10000", def); err != nil {
		t.Fatalf("Failed to update iapp: %v", err)
	}

	if body["executeAction"] != "definition" {
		t.Errorf("Expected redeploy action, got %v", body["executeAction"])
	}
	// The template reference is fixed at creation time
	if _, present := body["template"]; present {
		t.Errorf("Expected no template on redeploy, got %v", body["template"])
	}
	// Option keys sit at the top level of the payload
	if body["description"] != "managed" {
		t.Errorf("Expected merged option, got %v", body["description"])
	}
}

func TestMonitorUnknownProtocol(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request for unknown protocol")
	}))

	err := client.CreateMonitor("velcro", types.Monitor{Name: "bad", Protocol: "udp"})
	if err == nil {
		t.Fatal("Expected error for unknown monitor protocol")
	}
	// Not retryable: the desired state itself is wrong
	if IsTransient(err) {
		t.Errorf("Expected non-transient error, got: %v", err)
	}
}

func TestEnableVirtualAddress(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
	}))

	if err := client.EnableVirtualAddress("velcro", "10.128.10.240"); err != nil {
		t.Fatalf("Failed to enable virtual address: %v", err)
	}
	if body["enabled"] != "yes" {
		t.Errorf("Expected enabled yes, got %v", body["enabled"])
	}
}
