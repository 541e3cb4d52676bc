/*
Package types defines the desired-state model shared by every other package.

A types.Config is the contract between the orchestrator side and the device
side of the controller. The Marathon and Kubernetes builders produce one, the
reconciler consumes one, and neither side knows anything else about the
other. Everything in a Config is plain data; nothing here talks to the
network.

# Core Types

Config:
  - Map of service name to Service for one desired snapshot
  - Names returns the sorted name list, the basis for deterministic diffs
  - PartitionServices splits one partition's services into iApps and
    virtual servers, the two groups the reconciler treats differently

Service:
  - One load-balanced frontend: a name, a partition, and a member set
  - Members map "addr:port" keys to their desired Member state
  - Spec carries the kind-specific half as a ServiceSpec

ServiceSpec:
  - Closed interface over the two service kinds
  - VirtualServerSpec: bind address, port, mode, balance method, profiles,
    and health monitors for an explicitly configured frontend
  - IAppSpec: template path, variables, options, and the member table name
    for a template-deployed application service

Member and Monitor:
  - Member holds the state and session strings the device understands;
    NewMember returns the enabled defaults (user-up, user-enabled)
  - Monitor is one health probe with interval, timeout, and send/recv
    strings already in device form

# Naming

Service names encode their identity so that diffing name sets is enough to
detect adds and removes:

	<app>_<bind-addr>_<port>     virtual server services
	<app>_iapp_<port>            iApp services

The app part comes from the orchestrator identifier with its leading path
separator removed and interior separators kept. Health monitors reuse the
service name, with numbered suffixes (_1, _2) when one service declares more
than one probe. MonitorName builds those names; JoinMonitorRefs renders a
monitor list into the single ref string pool objects carry.

# Helpers

The device-facing conversions live here so both builders and the reconciler
agree on them:

  - MonitorTimeout computes the device timeout from a health check's
    failure allowance: (maxConsecutiveFailures - 1) * intervalSeconds +
    timeoutSeconds + 1
  - HTTPSendString renders the HTTP probe request line for a path
  - IPProtocol maps a service mode (http, tcp, udp) to the device protocol
  - ValidBalance and DefaultBalance bound the accepted load-balancing
    methods
  - ParseProfileRef parses "Partition/Name" profile references; parsing is
    strict and the builders drop labels that fail it
  - ManagesPartition answers whether a partition list (possibly the "*"
    wildcard) covers a given partition

# Usage

Building a config by hand, as the builders and tests do:

	cfg := types.NewConfig()
	svc := &types.Service{
		Name:      "web_10.0.0.1_80",
		Partition: "mesos",
		Members: map[string]types.Member{
			"10.1.0.4:31800": types.NewMember(),
		},
		Spec: &types.VirtualServerSpec{
			BindAddr: "10.0.0.1",
			Port:     80,
			Mode:     "http",
			Balance:  types.DefaultBalance,
		},
	}
	cfg.Add(svc)

	iapps, virtuals := cfg.PartitionServices("mesos")

# See Also

  - pkg/marathon and pkg/kubernetes for the builders that produce Configs
  - pkg/reconciler for the engine that consumes them
  - pkg/bigip for the device-side state structs these types convert into
*/
package types
