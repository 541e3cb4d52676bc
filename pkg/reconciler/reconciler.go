package reconciler

import (
	"sort"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/bigip"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/log"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/metrics"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Engine converges live load-balancer state toward a desired configuration.
// Partitions are independent reconciliation units; resources within one
// partition are applied in dependency order.
type Engine struct {
	adapter     bigip.Adapter
	partitions  []string
	concurrency int
	logger      zerolog.Logger
}

// NewEngine creates an engine writing through the given adapter for the
// configured partitions. Concurrency bounds how many partitions reconcile
// at once; anything below one serializes them.
func NewEngine(adapter bigip.Adapter, partitions []string, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		adapter:     adapter,
		partitions:  partitions,
		concurrency: concurrency,
		logger:      log.WithComponent("reconciler"),
	}
}

// Apply reconciles every managed partition against the desired
// configuration. A failing partition does not stop the others; the first
// error is returned once all partitions have finished.
func (e *Engine) Apply(cfg *types.Config) (*Stats, error) {
	partitions, err := e.resolvePartitions()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Partitions: len(partitions),
		Services:   len(cfg.Services),
	}

	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(e.concurrency)

	for _, partition := range partitions {
		partition := partition // per-iteration copy; required under go <= 1.21 loop semantics
		group.Go(func() error {
			partStats, err := e.applyPartition(partition, cfg)
			if err != nil {
				e.logger.Error().Err(err).Str("partition", partition).
					Msg("Failed to reconcile partition")
				return err
			}
			mu.Lock()
			stats.merge(partStats)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// resolvePartitions expands a wildcard into the partitions present on the
// device, skipping the shared system scopes and iApp-generated folders.
// Without a wildcard the configured list is taken as-is.
func (e *Engine) resolvePartitions() ([]string, error) {
	wildcard := false
	for _, partition := range e.partitions {
		if partition == "*" {
			wildcard = true
			break
		}
	}
	if !wildcard {
		return e.partitions, nil
	}

	folders, err := e.adapter.Partitions()
	if err != nil {
		return nil, err
	}
	var partitions []string
	for _, folder := range folders {
		if folder == "Common" || folder == "/" || strings.HasSuffix(folder, ".app") {
			continue
		}
		partitions = append(partitions, folder)
	}
	return partitions, nil
}

// applyPartition runs the phases for one partition in dependency order:
// iApps, then monitors, pools, and virtuals, then pool members, then node
// cleanup. Later phases rely on earlier phases' device-side effects.
func (e *Engine) applyPartition(partition string, cfg *types.Config) (*Stats, error) {
	logger := e.logger.With().Str("partition", partition).Logger()
	logger.Debug().Msg("Reconciling partition")

	stats := &Stats{}
	iapps, virtuals := cfg.PartitionServices(partition)

	if err := e.applyIApps(logger, partition, iapps, stats); err != nil {
		return stats, err
	}

	actualPools, err := e.adapter.PoolNames(partition)
	if err != nil {
		return stats, err
	}
	actualVirtuals, err := e.adapter.VirtualNames(partition)
	if err != nil {
		return stats, err
	}
	monitorKinds, err := e.adapter.MonitorNames(partition)
	if err != nil {
		return stats, err
	}

	// Sub-resources under an iApp's name prefix answer to their template,
	// not to us.
	iappNames := serviceNames(iapps)
	actualPools = withoutOwned(actualPools, iappNames)
	actualVirtuals = withoutOwned(actualVirtuals, iappNames)
	for name := range monitorKinds {
		if ownedByIApp(name, iappNames) {
			delete(monitorKinds, name)
		}
	}

	if err := e.applyMonitors(logger, partition, virtuals, monitorKinds, stats); err != nil {
		return stats, err
	}

	poolChanges, err := e.applyPools(logger, partition, virtuals, actualPools, stats)
	if err != nil {
		return stats, err
	}

	if err := e.applyVirtuals(logger, partition, virtuals, actualVirtuals, stats); err != nil {
		return stats, err
	}

	// Deleted pools took their members with them, so only created and
	// surviving pools need member reconciliation.
	memberPools := append(append([]string{}, poolChanges.ToAdd...), poolChanges.ToUpdate...)
	if err := e.applyMembers(logger, partition, memberPools, servicesByName(virtuals), stats); err != nil {
		return stats, err
	}

	if err := e.cleanupNodes(logger, partition, stats); err != nil {
		return stats, err
	}

	return stats, nil
}

// applyIApps converges the partition's application services. Redeploys for
// the intersection are unconditional: applying the definition is what
// makes the iApp converge its own sub-resources.
func (e *Engine) applyIApps(logger zerolog.Logger, partition string, iapps []*types.Service, stats *Stats) error {
	actual, err := e.adapter.IAppNames(partition)
	if err != nil {
		return err
	}

	changes := Diff(serviceNames(iapps), actual)
	logChanges(logger, "iapps", changes)

	for _, name := range changes.ToDelete {
		logger.Debug().Str("iapp", name).Msg("Deleting iapp")
		if err := e.adapter.DeleteIApp(partition, name); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("iapp", "delete").Inc()
		stats.IApps.Deleted++
	}

	byName := servicesByName(iapps)

	for _, name := range changes.ToAdd {
		svc := byName[name]
		spec := svc.Spec.(*types.IAppSpec)
		logger.Debug().Str("iapp", name).Str("template", spec.Template).Msg("Creating iapp")
		if err := e.adapter.CreateIApp(partition, name, iappDefinition(svc, spec)); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("iapp", "create").Inc()
		stats.IApps.Created++
	}

	for _, name := range changes.ToUpdate {
		svc := byName[name]
		spec := svc.Spec.(*types.IAppSpec)
		logger.Debug().Str("iapp", name).Msg("Redeploying iapp")
		if err := e.adapter.UpdateIApp(partition, name, iappDefinition(svc, spec)); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("iapp", "update").Inc()
		stats.IApps.Updated++
	}

	return nil
}

// applyMonitors converges the partition's health monitors. A service's
// first monitor carries the service name, later ones a positional suffix;
// creates must land before the pool phase references them.
func (e *Engine) applyMonitors(logger zerolog.Logger, partition string, virtuals []*types.Service, actual map[string]string, stats *Stats) error {
	// Services with at least one protocol-bearing check own monitors.
	var owners []*types.Service
	declared := mapset.NewThreadUnsafeSet[string]()
	for _, svc := range virtuals {
		spec := svc.Spec.(*types.VirtualServerSpec)
		owned := false
		for _, monitor := range spec.Monitors {
			if monitor.Protocol != "" {
				owned = true
			}
		}
		if !owned {
			continue
		}
		owners = append(owners, svc)
		for _, monitor := range spec.Monitors {
			declared.Add(monitor.Name)
		}
	}

	actualNames := make([]string, 0, len(actual))
	for name := range actual {
		actualNames = append(actualNames, name)
	}
	sort.Strings(actualNames)

	// Monitors no declared check claims anymore go first, freeing their
	// names for reuse.
	for _, name := range actualNames {
		if declared.Contains(name) {
			continue
		}
		logger.Debug().Str("monitor", name).Msg("Deleting monitor")
		if err := e.adapter.DeleteMonitor(partition, name, actual[name]); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("monitor", "delete").Inc()
		stats.Monitors.Deleted++
	}

	changes := Diff(serviceNames(owners), actualNames)
	logChanges(logger, "monitors", changes)
	byName := servicesByName(owners)

	for _, name := range changes.ToAdd {
		spec := byName[name].Spec.(*types.VirtualServerSpec)
		for _, monitor := range spec.Monitors {
			if _, err := monitorFields(monitor); err != nil {
				return err
			}
			logger.Debug().Str("monitor", monitor.Name).Msg("Creating monitor")
			if err := e.adapter.CreateMonitor(partition, monitor); err != nil {
				return err
			}
			metrics.OperationsTotal.WithLabelValues("monitor", "create").Inc()
			stats.Monitors.Created++
		}
	}

	for _, name := range changes.ToUpdate {
		spec := byName[name].Spec.(*types.VirtualServerSpec)
		for _, monitor := range spec.Monitors {
			fields, err := monitorFields(monitor)
			if err != nil {
				return err
			}
			if _, ok := actual[monitor.Name]; !ok {
				// A later check joined an existing service.
				logger.Debug().Str("monitor", monitor.Name).Msg("Creating monitor")
				if err := e.adapter.CreateMonitor(partition, monitor); err != nil {
					return err
				}
				metrics.OperationsTotal.WithLabelValues("monitor", "create").Inc()
				stats.Monitors.Created++
				continue
			}
			state, err := e.adapter.ReadMonitor(partition, monitor.Name, monitor.Protocol)
			if err != nil {
				return err
			}
			if !monitorChanged(fields, state) {
				continue
			}
			logger.Debug().Str("monitor", monitor.Name).Msg("Updating monitor")
			if err := e.adapter.UpdateMonitor(partition, monitor); err != nil {
				return err
			}
			metrics.OperationsTotal.WithLabelValues("monitor", "update").Inc()
			stats.Monitors.Updated++
		}
	}

	return nil
}

// applyPools converges the partition's pools and returns the computed
// changes so the member phase can cover created and surviving pools.
func (e *Engine) applyPools(logger zerolog.Logger, partition string, virtuals []*types.Service, actual []string, stats *Stats) (Changes, error) {
	changes := Diff(serviceNames(virtuals), actual)
	logChanges(logger, "pools", changes)

	for _, name := range changes.ToDelete {
		logger.Debug().Str("pool", name).Msg("Deleting pool")
		if err := e.adapter.DeletePool(partition, name); err != nil {
			return changes, err
		}
		metrics.OperationsTotal.WithLabelValues("pool", "delete").Inc()
		stats.Pools.Deleted++
	}

	byName := servicesByName(virtuals)

	for _, name := range changes.ToAdd {
		spec := byName[name].Spec.(*types.VirtualServerSpec)
		logger.Debug().Str("pool", name).Msg("Creating pool")
		if err := e.adapter.CreatePool(partition, name, poolFields(partition, spec)); err != nil {
			return changes, err
		}
		metrics.OperationsTotal.WithLabelValues("pool", "create").Inc()
		stats.Pools.Created++
	}

	for _, name := range changes.ToUpdate {
		spec := byName[name].Spec.(*types.VirtualServerSpec)
		fields := poolFields(partition, spec)
		state, err := e.adapter.ReadPool(partition, name)
		if err != nil {
			return changes, err
		}
		if !poolChanged(fields, state) {
			continue
		}
		logger.Debug().Str("pool", name).Msg("Updating pool")
		if err := e.adapter.UpdatePool(partition, name, fields); err != nil {
			return changes, err
		}
		metrics.OperationsTotal.WithLabelValues("pool", "update").Inc()
		stats.Pools.Updated++
	}

	return changes, nil
}

// applyVirtuals converges the partition's virtual servers. Updates first
// make sure the referenced virtual address still exists and is enabled;
// the device silently drops addresses that lose their last reference.
func (e *Engine) applyVirtuals(logger zerolog.Logger, partition string, virtuals []*types.Service, actual []string, stats *Stats) error {
	changes := Diff(serviceNames(virtuals), actual)
	logChanges(logger, "virtuals", changes)

	for _, name := range changes.ToDelete {
		logger.Debug().Str("virtual", name).Msg("Deleting virtual server")
		if err := e.adapter.DeleteVirtual(partition, name); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("virtual", "delete").Inc()
		stats.Virtuals.Deleted++
	}

	byName := servicesByName(virtuals)

	for _, name := range changes.ToAdd {
		svc := byName[name]
		spec := svc.Spec.(*types.VirtualServerSpec)
		logger.Debug().Str("virtual", name).Msg("Creating virtual server")
		if err := e.adapter.CreateVirtual(partition, name, virtualFields(svc, spec)); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("virtual", "create").Inc()
		stats.Virtuals.Created++
	}

	for _, name := range changes.ToUpdate {
		svc := byName[name]
		spec := svc.Spec.(*types.VirtualServerSpec)

		if err := e.ensureVirtualAddress(logger, partition, spec.BindAddr); err != nil {
			return err
		}

		fields := virtualFields(svc, spec)
		state, err := e.adapter.ReadVirtual(partition, name)
		if err != nil {
			return err
		}
		profiles, err := e.adapter.VirtualProfiles(partition, name)
		if err != nil {
			return err
		}
		if !virtualChanged(fields, state, profiles) {
			continue
		}
		logger.Debug().Str("virtual", name).Msg("Updating virtual server")
		if err := e.adapter.UpdateVirtual(partition, name, fields); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("virtual", "update").Inc()
		stats.Virtuals.Updated++
	}

	return nil
}

// ensureVirtualAddress recreates an address object the device dropped and
// re-enables one an operator disabled.
func (e *Engine) ensureVirtualAddress(logger zerolog.Logger, partition, addr string) error {
	state, err := e.adapter.VirtualAddress(partition, addr)
	if err != nil {
		return err
	}
	if state == nil {
		logger.Debug().Str("address", addr).Msg("Creating virtual address")
		return e.adapter.CreateVirtualAddress(partition, addr)
	}
	if state.Enabled == bigip.VirtualAddressDisabled {
		logger.Debug().Str("address", addr).Msg("Enabling virtual address")
		return e.adapter.EnableVirtualAddress(partition, addr)
	}
	return nil
}

// applyMembers converges the member lists of the given pools. Host or port
// changes surface as delete/create pairs because the key carries both, so
// the update branch only corrects members someone disabled by hand.
func (e *Engine) applyMembers(logger zerolog.Logger, partition string, pools []string, byName map[string]*types.Service, stats *Stats) error {
	for _, pool := range pools {
		svc := byName[pool]

		actual, err := e.adapter.MemberKeys(partition, pool)
		if err != nil {
			return err
		}
		changes := Diff(svc.SortedMemberKeys(), actual)
		logChanges(logger.With().Str("pool", pool).Logger(), "members", changes)

		for _, member := range changes.ToDelete {
			if err := e.adapter.DeleteMember(partition, pool, member); err != nil {
				return err
			}
			metrics.OperationsTotal.WithLabelValues("member", "delete").Inc()
			stats.Members.Deleted++
		}

		for _, member := range changes.ToAdd {
			if err := e.adapter.CreateMember(partition, pool, member, svc.Members[member]); err != nil {
				return err
			}
			metrics.OperationsTotal.WithLabelValues("member", "create").Inc()
			stats.Members.Created++
		}

		for _, member := range changes.ToUpdate {
			state, err := e.adapter.ReadMember(partition, pool, member)
			if err != nil {
				return err
			}
			if !memberNeedsEnable(state.State, state.Session) {
				continue
			}
			logger.Debug().Str("pool", pool).Str("member", member).Msg("Re-enabling member")
			if err := e.adapter.UpdateMember(partition, pool, member, svc.Members[member]); err != nil {
				return err
			}
			metrics.OperationsTotal.WithLabelValues("member", "update").Inc()
			stats.Members.Updated++
		}
	}

	return nil
}

func serviceNames(services []*types.Service) []string {
	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.Name)
	}
	return names
}

func servicesByName(services []*types.Service) map[string]*types.Service {
	byName := make(map[string]*types.Service, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}
	return byName
}

func withoutOwned(names, iapps []string) []string {
	if len(iapps) == 0 {
		return names
	}
	var kept []string
	for _, name := range names {
		if !ownedByIApp(name, iapps) {
			kept = append(kept, name)
		}
	}
	return kept
}

func ownedByIApp(name string, iapps []string) bool {
	for _, iapp := range iapps {
		if strings.HasPrefix(name, iapp) {
			return true
		}
	}
	return false
}

func logChanges(logger zerolog.Logger, kind string, changes Changes) {
	logger.Debug().
		Strs("add", changes.ToAdd).
		Strs("delete", changes.ToDelete).
		Strs("update", changes.ToUpdate).
		Msg("Computed " + kind + " changes")
}
