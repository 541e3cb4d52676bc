/*
Package metrics exposes Prometheus metrics for the reconciliation loop.

All collectors are package-level variables registered at init, so any
package can record without plumbing a registry around. The run command
serves them on the configured metrics address via Handler.

# Metric Inventory

Pass metrics:
  - bigip_ctlr_passes_total{result}: passes by outcome (applied, retry,
    fatal)
  - bigip_ctlr_pass_duration_seconds: full pass latency, fetch included
  - bigip_ctlr_services_desired: services in the last desired snapshot
  - bigip_ctlr_partitions_managed: partitions reconciled in the last pass

Device write metrics:
  - bigip_ctlr_operations_total{kind,op}: REST writes by resource kind
    (monitor, pool, virtual, member, node, iapp) and operation (create,
    update, delete)

Source metrics:
  - bigip_ctlr_source_fetches_total{status}: orchestrator fetches by ok or
    error
  - bigip_ctlr_source_fetch_duration_seconds: fetch latency alone

Reads are deliberately not counted. Every pass reads the full actual state,
so read volume tracks pass rate and says nothing interesting; writes are
the signal that the desired state moved.

# Timers

Timer wraps duration measurement for the two histograms:

	timer := metrics.NewTimer()
	// ... work ...
	timer.ObserveDuration(metrics.PassDuration)

ObserveDurationVec does the same for labeled histograms, and Duration
returns the elapsed time for callers that also record it elsewhere, as the
controller does when writing journal entries.

# Health Endpoints

Next to the metrics the package tracks component health for the HTTP
health surface. The controller reports the source after every fetch and
the device after every apply, and three handlers expose the aggregate:

  - LivenessHandler (/healthz): 200 whenever the process serves HTTP
  - HealthHandler (/health): 503 if the last fetch or apply failed
  - ReadyHandler (/ready): 503 until both ends of a pass have succeeded
    once, the signal an orchestrator waits for before routing to a fresh
    controller instance

# Alerting Hints

The useful signals for a dashboard:

  - rate(bigip_ctlr_passes_total{result="retry"}) above zero for longer
    than a few intervals means the device or the orchestrator is down
  - any bigip_ctlr_passes_total{result="fatal"} increase means the loop
    exited and the process needs attention
  - a sudden bigip_ctlr_operations_total spike on a quiet cluster means
    something else is editing the managed partitions

# See Also

  - pkg/controller for where pass and fetch metrics are recorded
  - pkg/reconciler for where write operations are counted
  - Prometheus client: https://github.com/prometheus/client_golang
*/
package metrics
