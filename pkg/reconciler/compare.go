package reconciler

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/bigip"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// monitorFields maps a declared monitor onto the device fields the engine
// may write for its protocol. http monitors accept probe credentials, tcp
// monitors do not. A protocol outside the supported set is a fault in the
// desired model itself, not something a retry can fix.
func monitorFields(monitor types.Monitor) (bigip.MonitorState, error) {
	switch monitor.Protocol {
	case types.ProtocolHTTP:
		return bigip.MonitorState{
			Interval: monitor.Interval,
			Timeout:  monitor.Timeout,
			Send:     monitor.Send,
			Recv:     monitor.Recv,
			Username: monitor.Username,
			Password: monitor.Password,
		}, nil
	case types.ProtocolTCP:
		return bigip.MonitorState{
			Interval: monitor.Interval,
			Timeout:  monitor.Timeout,
			Send:     monitor.Send,
			Recv:     monitor.Recv,
		}, nil
	}
	return bigip.MonitorState{}, fmt.Errorf("protocol %s is not supported", monitor.Protocol)
}

// monitorChanged reports whether any declared monitor field differs from
// the live one. Unset desired fields are left alone, matching a
// declaration that simply omits them.
func monitorChanged(desired bigip.MonitorState, actual *bigip.MonitorState) bool {
	if desired.Interval != 0 && desired.Interval != actual.Interval {
		return true
	}
	if desired.Timeout != 0 && desired.Timeout != actual.Timeout {
		return true
	}
	if desired.Send != "" && desired.Send != actual.Send {
		return true
	}
	if desired.Recv != "" && desired.Recv != actual.Recv {
		return true
	}
	if desired.Username != "" && desired.Username != actual.Username {
		return true
	}
	return desired.Password != "" && desired.Password != actual.Password
}

// poolFields computes the desired pool attributes for a service. The
// monitor expression is empty when the service declares no checks, which
// an update turns into an explicit detach.
func poolFields(partition string, spec *types.VirtualServerSpec) bigip.PoolFields {
	return bigip.PoolFields{
		Balance: spec.Balance,
		Monitor: types.JoinMonitorRefs(partition, spec.Monitors),
	}
}

// poolChanged compares desired pool fields against the live pool. The
// device pads some string attributes with whitespace.
func poolChanged(desired bigip.PoolFields, actual *bigip.PoolState) bool {
	if desired.Balance != strings.TrimSpace(actual.Balance) {
		return true
	}
	return desired.Monitor != strings.TrimSpace(actual.Monitor)
}

// virtualFields computes the full desired state of a virtual server.
func virtualFields(svc *types.Service, spec *types.VirtualServerSpec) bigip.VirtualFields {
	protocol, _ := types.IPProtocol(spec.Mode)
	return bigip.VirtualFields{
		Enabled:                  true,
		Disabled:                 false,
		IPProtocol:               protocol,
		Destination:              spec.Destination(svc.Partition),
		Pool:                     types.PoolPath(svc.Partition, svc.Name),
		SourceAddressTranslation: bigip.SNATAutomap,
		Profiles:                 spec.Profiles,
	}
}

// virtualChanged compares desired virtual fields and profiles against the
// live ones. Profile comparison is order-insensitive.
func virtualChanged(desired bigip.VirtualFields, actual *bigip.VirtualState, actualProfiles []types.ProfileRef) bool {
	if desired.Enabled != actual.Enabled || desired.Disabled != actual.Disabled {
		return true
	}
	if desired.IPProtocol != actual.IPProtocol {
		return true
	}
	if desired.Destination != actual.Destination {
		return true
	}
	if desired.Pool != actual.Pool {
		return true
	}
	if desired.SourceAddressTranslation.Type != actual.SourceAddressTranslation.Type {
		return true
	}
	return !profilesEqual(desired.Profiles, actualProfiles)
}

func profilesEqual(desired, actual []types.ProfileRef) bool {
	desiredSet := mapset.NewThreadUnsafeSet[string]()
	for _, profile := range desired {
		desiredSet.Add(profile.Path())
	}
	actualSet := mapset.NewThreadUnsafeSet[string]()
	for _, profile := range actual {
		actualSet.Add(profile.Path())
	}
	return desiredSet.Equal(actualSet)
}

// memberNeedsEnable reports whether a member or node must be forced back
// to the administratively-up state. Monitored members report state up,
// unmonitored ones unchecked; an enabled session in either state means
// nobody disabled it by hand.
func memberNeedsEnable(state, session string) bool {
	if (state == "up" || state == "unchecked") && strings.Contains(session, "enabled") {
		return false
	}
	return true
}

// iappDefinition renders a template-managed service into the variable and
// table payload the device's application layer consumes. Members feed the
// template's pool table with an unbounded connection limit.
func iappDefinition(svc *types.Service, spec *types.IAppSpec) *bigip.IAppDefinition {
	def := &bigip.IAppDefinition{
		Template: spec.Template,
		Options:  spec.Options,
	}

	keys := make([]string, 0, len(spec.Variables))
	for key := range spec.Variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		def.Variables = append(def.Variables, bigip.IAppVariable{Name: key, Value: spec.Variables[key]})
	}

	table := bigip.IAppTable{
		Name:        spec.TableName,
		ColumnNames: []string{"addr", "port", "connection_limit"},
	}
	for _, member := range svc.SortedMemberKeys() {
		host, port, _ := strings.Cut(member, ":")
		table.Rows = append(table.Rows, bigip.IAppRow{Row: []string{host, port, "0"}})
	}
	def.Tables = []bigip.IAppTable{table}

	return def
}
