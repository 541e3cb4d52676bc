package marathon

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/log"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Resolver turns backend hostnames into IPv4 addresses. Marathon reports
// agent hostnames, but pool members need addresses.
type Resolver interface {
	LookupIPv4(host string) (string, error)
}

// NetResolver resolves through the system resolver. An address literal
// resolves to itself.
type NetResolver struct{}

// LookupIPv4 returns the first IPv4 address of a host.
func (NetResolver) LookupIPv4(host string) (string, error) {
	addrs, err := net.LookupIP(host)
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", fmt.Errorf("no IPv4 address for host %s", host)
}

// Builder turns Marathon application state into desired load-balancer
// state.
type Builder struct {
	partitions []string
	resolver   Resolver
	logger     zerolog.Logger
}

// NewBuilder returns a builder scoped to the managed partitions. A nil
// resolver falls back to the system resolver.
func NewBuilder(partitions []string, resolver Resolver) *Builder {
	if resolver == nil {
		resolver = NetResolver{}
	}
	return &Builder{
		partitions: partitions,
		resolver:   resolver,
		logger:     log.WithComponent("marathon"),
	}
}

// Build produces desired state for the apps the controller manages. Apps in
// unmanaged partitions, without an address or template, or with invalid
// labels drop out with a log line; they never abort the pass. Apps are
// walked in (app id, service port) order so the result is deterministic.
func (b *Builder) Build(apps []App) *types.Config {
	cfg := types.NewConfig()

	sorted := make([]App, len(apps))
	copy(sorted, apps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AppID != sorted[j].AppID {
			return sorted[i].AppID < sorted[j].AppID
		}
		return sorted[i].ServicePort < sorted[j].ServicePort
	})

	for i := range sorted {
		app := &sorted[i]

		if !types.ManagesPartition(b.partitions, app.Partition) {
			b.logger.Debug().Str("app", app.AppID).Str("partition", app.Partition).
				Msg("Skipping app in unmanaged partition")
			continue
		}
		if app.BindAddr == "" && app.IApp == "" {
			b.logger.Debug().Str("app", app.AppID).Int("port", app.ServicePort).
				Msg("Skipping app with no bind address or iApp template")
			continue
		}
		if app.IApp == "" && !b.validLabels(app) {
			continue
		}

		b.logger.Info().Str("app", app.AppID).Str("partition", app.Partition).
			Msg("Configuring app")

		svc := &types.Service{
			Name:      serviceName(app),
			Partition: app.Partition,
			Members:   make(map[string]types.Member),
		}
		if app.IApp != "" {
			svc.Spec = &types.IAppSpec{
				Template:  app.IApp,
				TableName: app.IAppTableName,
				Variables: app.IAppVariables,
				Options:   app.IAppOptions,
			}
		} else {
			svc.Spec = b.virtualSpec(app)
		}

		for _, backend := range app.Backends {
			ipv4, err := b.resolver.LookupIPv4(backend.Host)
			if err != nil {
				b.logger.Warn().Str("host", backend.Host).Err(err).
					Msg("Could not resolve ip for host, ignoring this backend")
				continue
			}
			svc.Members[types.MemberKey(ipv4, backend.Port)] = types.NewMember()
		}

		cfg.Add(svc)
	}

	return cfg
}

// serviceName derives the stable service name for one app port. Leading
// slashes drop from the app id; interior path separators stay.
func serviceName(app *App) string {
	frontend := app.BindAddr
	if app.IApp != "" {
		frontend = "iapp"
	}
	return fmt.Sprintf("%s_%s_%d", strings.TrimLeft(app.AppID, "/"), frontend, app.ServicePort)
}

// validLabels checks every label-derived field so one bad app logs all of
// its problems at once.
func (b *Builder) validLabels(app *App) bool {
	valid := true
	const msg = "Application label %s for %s contains an invalid value: %v"

	if _, ok := types.IPProtocol(app.Mode); !ok {
		b.logger.Error().Msgf(msg, "F5_MODE", app.AppID, app.Mode)
		valid = false
	}
	if app.ServicePort < 1 || app.ServicePort > 65535 {
		b.logger.Error().Msgf(msg, "F5_PORT", app.AppID, app.ServicePort)
		valid = false
	}
	if net.ParseIP(app.BindAddr) == nil {
		b.logger.Error().Msgf(msg, "F5_BIND_ADDR", app.AppID, app.BindAddr)
		valid = false
	}
	if !types.ValidBalance(app.Balance) {
		b.logger.Error().Msgf(msg, "F5_BALANCE", app.AppID, app.Balance)
		valid = false
	}

	return valid
}

// virtualSpec builds the virtual-server spec for an individually-managed
// app.
func (b *Builder) virtualSpec(app *App) *types.VirtualServerSpec {
	spec := &types.VirtualServerSpec{
		BindAddr: app.BindAddr,
		Port:     app.ServicePort,
		Mode:     app.Mode,
		Balance:  app.Balance,
	}

	if app.Profile != "" {
		ref, err := types.ParseProfileRef(app.Profile)
		if err != nil {
			b.logger.Error().Msgf("Could not parse partition and name from SSL profile: %s", app.Profile)
		} else {
			spec.Profiles = append(spec.Profiles, ref)
		}
	}

	// HTTP services get the http profile, other TCP-carried services the
	// tcp profile. UDP gets neither.
	if strings.ToLower(app.Mode) == "http" {
		spec.Profiles = append(spec.Profiles, types.ProfileRef{Partition: "Common", Name: "http"})
	} else if protocol, _ := types.IPProtocol(app.Mode); protocol == "tcp" {
		spec.Profiles = append(spec.Profiles, types.ProfileRef{Partition: "Common", Name: "tcp"})
	}

	if hc := app.HealthCheck; hc != nil {
		monitor := types.Monitor{
			Name:     serviceName(app),
			Protocol: strings.ToLower(hc.Protocol),
			Interval: hc.IntervalSeconds,
			Timeout:  types.MonitorTimeout(hc.MaxConsecutiveFailures, hc.IntervalSeconds, hc.TimeoutSeconds),
		}
		if monitor.Protocol == types.ProtocolHTTP {
			monitor.Send = types.HTTPSendString(hc.Path)
		}
		spec.Monitors = append(spec.Monitors, monitor)
	}

	return spec
}
