package kubernetes

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/log"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Builder turns the cluster's service state document into desired
// load-balancer state. Unlike the Marathon path there is no label
// validation here: the document is produced by machinery, not typed in by
// operators.
type Builder struct {
	partitions []string
	logger     zerolog.Logger
}

// NewBuilder returns a builder scoped to the managed partitions.
func NewBuilder(partitions []string) *Builder {
	return &Builder{
		partitions: partitions,
		logger:     log.WithComponent("kubernetes"),
	}
}

// Build produces desired state for the services the controller manages.
// Services outside the managed partitions or without an address and
// template drop out quietly.
func (b *Builder) Build(services []Service) *types.Config {
	cfg := types.NewConfig()

	for i := range services {
		frontend := &services[i].VirtualServer.Frontend
		backend := &services[i].VirtualServer.Backend

		if !types.ManagesPartition(b.partitions, frontend.Partition) {
			b.logger.Debug().Str("service", backend.ServiceName).Str("partition", frontend.Partition).
				Msg("Skipping service in unmanaged partition")
			continue
		}
		if (frontend.VirtualAddress == nil || frontend.VirtualAddress.BindAddr == "") && frontend.IApp == "" {
			b.logger.Debug().Str("service", backend.ServiceName).
				Msg("Skipping service with no address for this port")
			continue
		}

		name := frontendName(frontend, backend)

		svc := &types.Service{
			Name:      name,
			Partition: frontend.Partition,
			Members:   make(map[string]types.Member),
		}
		if frontend.IApp != "" {
			svc.Spec = &types.IAppSpec{
				Template:  frontend.IApp,
				TableName: frontend.IAppTableName,
				Variables: frontend.IAppVariables,
				Options:   frontend.IAppOptions,
			}
		} else {
			svc.Spec = b.virtualSpec(name, frontend, backend)
		}

		for _, addr := range backend.PoolMemberAddrs {
			svc.Members[types.MemberKey(addr, backend.PoolMemberPort)] = types.NewMember()
		}

		cfg.Add(svc)
	}

	return cfg
}

// frontendName derives the stable service name. The address slot holds the
// bind address, or the template marker for iApp frontends; the port is the
// frontend port when an address block exists and the backend port
// otherwise.
func frontendName(frontend *Frontend, backend *Backend) string {
	addr := "iapp"
	if frontend.IApp == "" {
		addr = frontend.VirtualAddress.BindAddr
	}

	port := backend.ServicePort
	if frontend.VirtualAddress != nil {
		port = frontend.VirtualAddress.Port
	}

	return fmt.Sprintf("%s_%s_%d", strings.Trim(backend.ServiceName, "/"), addr, port)
}

// virtualSpec builds the virtual-server spec for an individually-managed
// service.
func (b *Builder) virtualSpec(name string, frontend *Frontend, backend *Backend) *types.VirtualServerSpec {
	balance := frontend.Balance
	if balance == "" {
		balance = types.DefaultBalance
	}

	spec := &types.VirtualServerSpec{
		BindAddr: frontend.VirtualAddress.BindAddr,
		Port:     frontend.VirtualAddress.Port,
		Mode:     frontend.Mode,
		Balance:  balance,
	}

	if frontend.SSLProfile != nil {
		ref, err := types.ParseProfileRef(frontend.SSLProfile.F5ProfileName)
		if err != nil {
			b.logger.Error().Msgf("Could not parse partition and name from SSL profile: %s",
				frontend.SSLProfile.F5ProfileName)
		} else {
			spec.Profiles = append(spec.Profiles, ref)
		}
	}

	// HTTP services get the http profile, other TCP-carried services the
	// tcp profile. UDP gets neither.
	if strings.ToLower(frontend.Mode) == "http" {
		spec.Profiles = append(spec.Profiles, types.ProfileRef{Partition: "Common", Name: "http"})
	} else if protocol, _ := types.IPProtocol(frontend.Mode); protocol == "tcp" {
		spec.Profiles = append(spec.Profiles, types.ProfileRef{Partition: "Common", Name: "tcp"})
	}

	// Monitor declarations pass through; only the names are ours.
	for index, monitor := range backend.HealthMonitors {
		b.logger.Debug().Str("service", backend.ServiceName).Int("monitor", index).
			Msg("Adding health monitor for service")
		spec.Monitors = append(spec.Monitors, types.Monitor{
			Name:     types.MonitorName(name, index),
			Protocol: monitor.Protocol,
			Interval: monitor.Interval,
			Timeout:  monitor.Timeout,
			Send:     monitor.Send,
			Recv:     monitor.Recv,
			Username: monitor.Username,
			Password: monitor.Password,
		})
	}

	return spec
}
