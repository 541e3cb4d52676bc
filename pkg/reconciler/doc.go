/*
Package reconciler converges BIG-IP partitions toward a desired configuration.

The reconciler package implements the diff-and-apply engine at the center of
the controller. Each pass takes the desired state built from the orchestrator
(a types.Config), reads the actual state of every managed partition through
the bigip.Adapter interface, and issues the minimal set of create, update, and
delete calls that make the partition match. Resources the engine never created
but that live in managed partitions are removed; resources in unmanaged
partitions are never touched.

# Architecture

One pass fans out over the managed partitions and runs the same phase pipeline
in each:

	┌───────────────────── RECONCILIATION PASS ─────────────────────┐
	│                                                                │
	│  types.Config (desired)          bigip.Adapter (actual)        │
	│        │                                │                      │
	│        ▼                                ▼                      │
	│  ┌──────────────────────────────────────────────┐             │
	│  │ resolvePartitions                             │             │
	│  │  - configured list, or discovery via "*"      │             │
	│  │  - Common and system folders excluded         │             │
	│  └──────────────────┬───────────────────────────┘             │
	│                     │  errgroup, bounded concurrency           │
	│        ┌────────────┼────────────┐                             │
	│        ▼            ▼            ▼                             │
	│  ┌──────────────────────────────────────────────┐             │
	│  │ applyPartition (one partition)                │             │
	│  │                                               │             │
	│  │   1. iApps        delete / create / redeploy  │             │
	│  │   2. exclusion    drop iApp-owned resources   │             │
	│  │   3. monitors     delete, create, update      │             │
	│  │   4. pools        delete, create, update      │             │
	│  │   5. virtuals     delete, create, update      │             │
	│  │      + virtual-address ensure                 │             │
	│  │   6. members      per surviving pool          │             │
	│  │   7. node GC      re-enable or delete         │             │
	│  └──────────────────┬───────────────────────────┘             │
	│                     │                                          │
	│                     ▼                                          │
	│  ┌──────────────────────────────────────────────┐             │
	│  │ Stats merge (mutex)                           │             │
	│  │  - per-kind created/updated/deleted counts    │             │
	│  │  - nodes deleted, partitions, services        │             │
	│  └──────────────────────────────────────────────┘             │
	└────────────────────────────────────────────────────────────────┘

# Core Components

Engine:
  - Holds the adapter, the managed partition list, and the concurrency limit
  - Apply runs one full pass and returns aggregate Stats
  - Stateless between passes; every pass re-reads actual state

Adapter:
  - The bigip.Adapter interface is the only way the engine touches a device
  - Read methods return name lists or typed state structs
  - Write methods map one-to-one onto iControl REST calls
  - Tests substitute an in-memory fake for the REST client

Diff and Changes:
  - Diff compares desired and actual name sets for one resource kind
  - Changes carries the pairwise-disjoint ToAdd, ToUpdate, and ToDelete
    name lists
  - Additions and updates follow the sorted desired names, deletions the
    device listing, so call order is stable for a given pair of states

Stats:
  - Counts created, updated, and deleted per resource kind
  - Changed reports whether the pass wrote anything at all
  - The controller stores Stats in the journal after every pass

# Phase Order

Within a partition the phases always run in the same order. Monitors are
written before the pools that reference them, and pools before the virtual
servers that reference them, so a resource never points at a missing
dependency during creation.

iApps run first. An iApp deploys its own pools and virtual servers under a
<name>.app/ folder, so desired iApps are reconciled before anything else and
every actual resource whose name starts with a desired iApp's name is dropped
from the later phases. Deleting the template deployment removes the owned
resources with it. Updates redeploy unconditionally because the template
execution on the device decides whether anything changes.

Monitors carry a guard the other kinds do not need: a health check with a
secondary port publishes several monitors under numbered suffixes, so the
delete list is filtered against the full set of declared monitor names, not
just the owning service names. A monitor in the update list that has gone
missing on the device since the name listing is created instead.

Virtual servers ensure their virtual address after each create or update. The
device creates the address object implicitly, but it can be left disabled by
an earlier partial teardown, and a disabled address silently blackholes
traffic.

Members are reconciled for every pool that survived the pool phase. A member
present on both sides is re-enabled if an operator forced it down; its
monitor state is otherwise left to the device.

Node cleanup runs last. FQDN-resolved pool members leave node objects behind
when the member is deleted. Nodes still referenced by any pool are re-enabled
if disabled; unreferenced nodes are deleted.

# Error Handling

The engine distinguishes errors it expects to heal from errors that mean the
desired state itself is wrong:

Transient errors:
  - Connection failures and unexpected REST status codes
  - Wrapped as bigip.TransientError by the client
  - Abort the current partition and surface from Apply
  - The controller retries on the next tick

Configuration errors:
  - An unsupported health-check protocol cannot be expressed as a monitor
  - Returned as plain errors and treated as fatal by the controller
  - Retrying cannot help; the orchestrator labels have to change

Partition failures are independent. A transient failure in one partition does
not stop the others in the same pass; Apply returns the first error after all
partitions finish.

# Consistency Model

The engine reads actual state, computes a diff, and then writes. Nothing
locks the device in between, so a concurrent writer (an operator in the GUI,
a second controller) can invalidate the diff mid-pass. Individual writes are
atomic on the device, and every pass starts from a fresh read, so drift
introduced during a pass is corrected on the next one. Running two
controllers against the same partition is not supported; they will fight over
any resource they disagree on.

Deletes are the rough edge of the ordering above. Creates must flow monitor
to pool to virtual, while deletes would ideally flow in reverse. A delete of
a monitor that a doomed pool still references can therefore be rejected by
the device for one pass and succeed on the next, after the pool delete lands.
The engine accepts that extra pass instead of maintaining a second, reversed
pipeline.

# Usage

Creating and running an engine:

	engine := reconciler.NewEngine(client, []string{"mesos", "velcro"}, 2)

	stats, err := engine.Apply(cfg)
	if err != nil {
		if bigip.IsTransient(err) {
			// device unreachable, try again later
		}
		return err
	}
	if stats.Changed() {
		fmt.Printf("pools: %+v virtuals: %+v\n", stats.Pools, stats.Virtuals)
	}

Discovering partitions instead of listing them:

	engine := reconciler.NewEngine(client, []string{"*"}, 1)

With the wildcard, every partition on the device except Common is managed.
Anything in those partitions that the desired state does not name gets
deleted, so the wildcard belongs on devices the controller owns outright.

# See Also

  - pkg/bigip for the Adapter interface and the REST client behind it
  - pkg/types for the desired-state model the engine consumes
  - pkg/controller for the loop that schedules passes and classifies errors
  - pkg/journal for where pass Stats end up
*/
package reconciler
