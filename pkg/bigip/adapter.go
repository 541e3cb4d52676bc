package bigip

import (
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Adapter is the device-facing surface of the reconciler. A pass lists and
// reads actual state and issues creates, updates, and deletes through it.
// Failures a later pass could clear come back as *TransientError; anything
// else signals a fault the caller must not retry.
type Adapter interface {
	// Partitions
	Partitions() ([]string, error)

	// Application services (iApps)
	IAppNames(partition string) ([]string, error)
	CreateIApp(partition, name string, def *IAppDefinition) error
	UpdateIApp(partition, name string, def *IAppDefinition) error
	DeleteIApp(partition, name string) error

	// Health monitors
	MonitorNames(partition string) (map[string]string, error)
	ReadMonitor(partition, name, protocol string) (*MonitorState, error)
	CreateMonitor(partition string, monitor types.Monitor) error
	UpdateMonitor(partition string, monitor types.Monitor) error
	DeleteMonitor(partition, name, protocol string) error

	// Pools
	PoolNames(partition string) ([]string, error)
	ReadPool(partition, name string) (*PoolState, error)
	CreatePool(partition, name string, fields PoolFields) error
	UpdatePool(partition, name string, fields PoolFields) error
	DeletePool(partition, name string) error

	// Pool members
	MemberKeys(partition, pool string) ([]string, error)
	ReadMember(partition, pool, member string) (*types.Member, error)
	CreateMember(partition, pool, member string, state types.Member) error
	UpdateMember(partition, pool, member string, state types.Member) error
	DeleteMember(partition, pool, member string) error

	// Nodes
	Nodes(partition string) ([]NodeState, error)
	EnableNode(partition, name string) error
	DeleteNode(partition, name string) error

	// Virtual servers
	VirtualNames(partition string) ([]string, error)
	ReadVirtual(partition, name string) (*VirtualState, error)
	VirtualProfiles(partition, name string) ([]types.ProfileRef, error)
	CreateVirtual(partition, name string, fields VirtualFields) error
	UpdateVirtual(partition, name string, fields VirtualFields) error
	DeleteVirtual(partition, name string) error

	// Virtual addresses
	VirtualAddress(partition, addr string) (*VirtualAddressState, error)
	CreateVirtualAddress(partition, addr string) error
	EnableVirtualAddress(partition, addr string) error
}

// MonitorState is the writable field set of a health monitor. A read
// decodes into it and an update sends it, so desired and actual compare
// field for field.
type MonitorState struct {
	Interval int    `json:"interval,omitempty"`
	Timeout  int    `json:"timeout,omitempty"`
	Send     string `json:"send,omitempty"`
	Recv     string `json:"recv,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// PoolFields is the writable field set of a pool. Monitor is the full
// monitor expression, empty when the pool has none.
type PoolFields struct {
	Balance string `json:"loadBalancingMode,omitempty"`
	Monitor string `json:"monitor,omitempty"`
}

// PoolState is a pool as read back from the device.
type PoolState struct {
	Balance string `json:"loadBalancingMode"`
	Monitor string `json:"monitor"`
}

// VirtualFields is the writable field set of a virtual server. Enabled and
// Disabled are distinct keys on the wire, so both are sent explicitly.
type VirtualFields struct {
	Enabled                  bool                     `json:"enabled"`
	Disabled                 bool                     `json:"disabled"`
	IPProtocol               string                   `json:"ipProtocol"`
	Destination              string                   `json:"destination"`
	Pool                     string                   `json:"pool"`
	SourceAddressTranslation SourceAddressTranslation `json:"sourceAddressTranslation"`
	Profiles                 []types.ProfileRef       `json:"profiles"`
}

// SourceAddressTranslation selects the SNAT mode of a virtual server.
type SourceAddressTranslation struct {
	Type string `json:"type"`
}

// SNATAutomap is the source-address translation applied to every managed
// virtual server.
var SNATAutomap = SourceAddressTranslation{Type: "automap"}

// VirtualState is a virtual server as read back from the device. The wire
// carries whichever of enabled or disabled is in effect; the missing key
// decodes to false. Profiles live in a subcollection and are read
// separately.
type VirtualState struct {
	Enabled                  bool                     `json:"enabled"`
	Disabled                 bool                     `json:"disabled"`
	IPProtocol               string                   `json:"ipProtocol"`
	Destination              string                   `json:"destination"`
	Pool                     string                   `json:"pool"`
	SourceAddressTranslation SourceAddressTranslation `json:"sourceAddressTranslation"`
}

// NodeState is a node's name and administrative state as read from the
// partition's node collection.
type NodeState struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Session string `json:"session"`
}

// VirtualAddressState is a virtual address as read back from the device.
// Enabled is the device's yes/no string, not a boolean.
type VirtualAddressState struct {
	Address string `json:"address"`
	Enabled string `json:"enabled"`
}

// Virtual address enabled values.
const (
	VirtualAddressEnabled  = "yes"
	VirtualAddressDisabled = "no"
)

// IAppDefinition is everything needed to create or redeploy an application
// service from a template. Options are template-specific top-level fields
// merged into the request body as-is.
type IAppDefinition struct {
	Template  string
	Variables []IAppVariable
	Tables    []IAppTable
	Options   map[string]any
}

// IAppVariable is one name/value pair handed to an iApp template.
type IAppVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// IAppTable is a tabular input to an iApp template, one row per pool
// member.
type IAppTable struct {
	Name        string    `json:"name"`
	ColumnNames []string  `json:"columnNames"`
	Rows        []IAppRow `json:"rows"`
}

// IAppRow is one table row; values are strings regardless of column type.
type IAppRow struct {
	Row []string `json:"row"`
}
