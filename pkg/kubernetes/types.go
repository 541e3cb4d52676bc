package kubernetes

import (
	"encoding/json"
	"fmt"
)

// Service is one entry of the service state document a cluster watcher
// maintains. Field names follow the document schema.
type Service struct {
	VirtualServer VirtualServer `json:"virtualServer"`
}

// VirtualServer pairs a frontend declaration with its backend endpoints.
type VirtualServer struct {
	Backend  Backend  `json:"backend"`
	Frontend Frontend `json:"frontend"`
}

// Backend carries the service identity, its endpoints, and the monitors to
// probe them with.
type Backend struct {
	ServiceName     string          `json:"serviceName"`
	ServicePort     int             `json:"servicePort"`
	PoolMemberPort  int             `json:"poolMemberPort"`
	PoolMemberAddrs []string        `json:"poolMemberAddrs"`
	HealthMonitors  []HealthMonitor `json:"healthMonitors"`
}

// Frontend declares how the service is exposed: individually via a virtual
// address, or through an iApp template.
type Frontend struct {
	Partition      string            `json:"partition"`
	Mode           string            `json:"mode"`
	Balance        string            `json:"balance"`
	VirtualAddress *VirtualAddress   `json:"virtualAddress"`
	SSLProfile     *SSLProfile       `json:"sslProfile"`
	IApp           string            `json:"iapp"`
	IAppTableName  string            `json:"iappTableName"`
	IAppVariables  map[string]string `json:"iappVariables"`
	IAppOptions    map[string]any    `json:"iappOptions"`
}

// VirtualAddress is the frontend's bind address and port.
type VirtualAddress struct {
	BindAddr string `json:"bindAddr"`
	Port     int    `json:"port"`
}

// SSLProfile names a client-ssl profile as partition/name.
type SSLProfile struct {
	F5ProfileName string `json:"f5ProfileName"`
}

// HealthMonitor is one monitor declaration, handed to the load balancer
// as-is except for naming.
type HealthMonitor struct {
	Protocol string `json:"protocol"`
	Interval int    `json:"interval"`
	Timeout  int    `json:"timeout"`
	Send     string `json:"send"`
	Recv     string `json:"recv"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type serviceList struct {
	Services []Service `json:"services"`
}

// decodeState accepts both document formats: an object with a services key,
// or the older bare service array.
func decodeState(data []byte) ([]Service, error) {
	var envelope serviceList
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Services != nil {
		return envelope.Services, nil
	}

	var services []Service
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("failed to decode service state: %w", err)
	}
	return services, nil
}
