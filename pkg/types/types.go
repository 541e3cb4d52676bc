package types

import (
	"fmt"
	"sort"
	"strings"
)

// Config is the desired load-balancer state for one reconciliation pass.
// It is rebuilt from scratch on every pass and is immutable once built.
type Config struct {
	Services map[string]*Service
}

// NewConfig returns an empty desired-state config.
func NewConfig() *Config {
	return &Config{Services: make(map[string]*Service)}
}

// Add registers a service under its derived name.
func (c *Config) Add(svc *Service) {
	c.Services[svc.Name] = svc
}

// Names returns all service names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PartitionServices returns the services scoped to one partition, split into
// iApp-managed and individually-managed sets, each sorted by name.
func (c *Config) PartitionServices(partition string) (iapps, virtuals []*Service) {
	for _, name := range c.Names() {
		svc := c.Services[name]
		if svc.Partition != partition {
			continue
		}
		switch svc.Spec.(type) {
		case *IAppSpec:
			iapps = append(iapps, svc)
		case *VirtualServerSpec:
			virtuals = append(virtuals, svc)
		}
	}
	return iapps, virtuals
}

// Service is one load-balanced frontend. The name is derived from the
// app/service identity, the bind address (or the iApp marker), and the port,
// and is stable across passes.
type Service struct {
	Name      string
	Partition string
	Members   map[string]Member
	Spec      ServiceSpec
}

// ServiceSpec is the management variant of a Service: template-managed by an
// iApp, or individually managed as a virtual server with pool and monitors.
// A service is exactly one of the two.
type ServiceSpec interface {
	serviceSpec()
}

// VirtualServerSpec describes an individually-managed service: a virtual
// server, its pool, and the pool's health monitors.
type VirtualServerSpec struct {
	BindAddr string
	Port     int
	Mode     string
	Balance  string
	Profiles []ProfileRef
	Monitors []Monitor
}

func (*VirtualServerSpec) serviceSpec() {}

// Destination returns the virtual server destination within a partition.
func (v *VirtualServerSpec) Destination(partition string) string {
	return fmt.Sprintf("/%s/%s:%d", partition, v.BindAddr, v.Port)
}

// IAppSpec describes a service managed entirely by an iApp template. The
// template owns the underlying virtual, pool, and monitor sub-resources.
type IAppSpec struct {
	Template  string
	TableName string
	Variables map[string]string
	Options   map[string]any
}

func (*IAppSpec) serviceSpec() {}

// IAppManaged reports whether the service is owned by an iApp template.
func (s *Service) IAppManaged() bool {
	_, ok := s.Spec.(*IAppSpec)
	return ok
}

// SortedMemberKeys returns the member keys (host:port) in sorted order for
// deterministic iteration.
func (s *Service) SortedMemberKeys() []string {
	keys := make([]string, 0, len(s.Members))
	for key := range s.Members {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Forced administrative state applied to every pool member at creation and
// to nodes re-enabled by the garbage collector.
const (
	StateUserUp        = "user-up"
	SessionUserEnabled = "user-enabled"
)

// Member is one backend endpoint's administrative state.
type Member struct {
	State   string `json:"state"`
	Session string `json:"session"`
}

// NewMember returns a member in the forced-up, enabled state.
func NewMember() Member {
	return Member{State: StateUserUp, Session: SessionUserEnabled}
}

// MemberKey formats the host:port key a member is identified by.
func MemberKey(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// Monitor is an active health probe attached to a service's pool. Username
// and Password apply to HTTP monitors only.
type Monitor struct {
	Name     string
	Protocol string
	Interval int
	Timeout  int
	Send     string
	Recv     string
	Username string
	Password string
}

// Monitor protocols the load balancer can apply directly.
const (
	ProtocolHTTP = "http"
	ProtocolTCP  = "tcp"
)

// MonitorName returns the name for the index-th monitor of a service. The
// first monitor reuses the service name, later ones get a positional suffix.
func MonitorName(service string, index int) string {
	if index == 0 {
		return service
	}
	return fmt.Sprintf("%s_%d", service, index)
}

// JoinMonitorRefs builds a pool's monitor expression: full monitor paths
// joined with " and ", meaning every monitor must pass. Empty when the
// service declares no monitors.
func JoinMonitorRefs(partition string, monitors []Monitor) string {
	if len(monitors) == 0 {
		return ""
	}
	refs := make([]string, len(monitors))
	for i, m := range monitors {
		refs[i] = "/" + partition + "/" + m.Name
	}
	return strings.Join(refs, " and ")
}

// PoolPath returns the full path reference to a named pool.
func PoolPath(partition, name string) string {
	return "/" + partition + "/" + name
}

// ProfileRef identifies a virtual server profile by partition and name.
type ProfileRef struct {
	Partition string `json:"partition"`
	Name      string `json:"name"`
}

// Path returns the full path reference to the profile.
func (p ProfileRef) Path() string {
	return "/" + p.Partition + "/" + p.Name
}

// ParseProfileRef splits a "partition/name" profile reference.
func ParseProfileRef(ref string) (ProfileRef, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 {
		return ProfileRef{}, fmt.Errorf("could not parse partition and name from profile: %s", ref)
	}
	return ProfileRef{Partition: parts[0], Name: parts[1]}, nil
}

// IPProtocol maps a declared service mode to the virtual server's transport
// protocol. HTTP services ride a TCP virtual. Unknown modes report false.
func IPProtocol(mode string) (string, bool) {
	switch strings.ToLower(mode) {
	case "tcp", "http":
		return "tcp", true
	case "udp":
		return "udp", true
	}
	return "", false
}

// MonitorTimeout computes a monitor timeout from an orchestrator
// health-check policy. The monitor must not mark a member down faster than
// the policy that drives it:
//
//	((maxConsecutiveFailures - 1) * intervalSeconds) + timeoutSeconds + 1
func MonitorTimeout(maxConsecutiveFailures, intervalSeconds, timeoutSeconds int) int {
	return (maxConsecutiveFailures-1)*intervalSeconds + timeoutSeconds + 1
}

// HTTPSendString builds the probe request for an HTTP monitor. The escape
// sequences are stored literally; the load balancer interprets them when
// the probe runs.
func HTTPSendString(path string) string {
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("GET %s HTTP/1.0\\r\\n\\r\\n", path)
}

// ManagesPartition reports whether a service's partition is one the
// controller is responsible for. A wildcard entry matches any partition; a
// service with no partition is never managed.
func ManagesPartition(managed []string, partition string) bool {
	if partition == "" {
		return false
	}
	for _, p := range managed {
		if p == "*" || p == partition {
			return true
		}
	}
	return false
}
