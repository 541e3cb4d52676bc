/*
Package kubernetes builds desired configuration from a cluster service state
document.

Unlike the Marathon path, nothing here watches a cluster directly. A watcher
elsewhere condenses Kubernetes services into one JSON document of
virtualServer entries, and this package fetches and translates that
document. Each entry pairs a frontend (partition, bind address or iApp
template, mode, balance, SSL profile) with a backend (service identity,
pool member addresses, health monitors), which maps almost one-to-one onto
a types.Service.

# The State Document

The document is either an object with a services array or, from older
watchers, the bare array itself. Both decode the same way. Entries name
their monitors only by protocol; the builder applies the shared naming
scheme so monitor names line up with what the reconciler expects to own.

Member addresses arrive as IPs with a single pool member port, so no
resolution step exists on this path.

# Sources

The HTTP source polls a state endpoint with optional basic auth. The file
source reads the same document from disk, for watchers that publish onto
shared storage:

	client := kubernetes.NewClient("http://watcher:8001/state", user, pass)
	source := kubernetes.NewSource(client, kubernetes.NewBuilder(partitions))

	source := kubernetes.NewFileSource("/var/run/state.json", builder)

Validation mirrors the Marathon builder: entries with unusable modes,
balance methods, or profiles are logged and skipped, and builds are
deterministic for a given document.

# See Also

  - pkg/marathon for the label-driven equivalent
  - pkg/types for the emitted model
*/
package kubernetes
