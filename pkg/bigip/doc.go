/*
Package bigip talks to a BIG-IP's iControl REST management endpoint.

The package has two faces. Adapter is the interface the reconciler programs
against: typed reads and writes for every resource kind the controller
manages. Client is the production implementation, a thin HTTP layer over
/mgmt/tm that handles authentication, URL encoding, JSON bodies, and error
classification, and nothing else. Policy about what to write and when lives
entirely in the reconciler.

# Architecture

One Client serves all partitions on one device:

	┌──────────────────── DEVICE CLIENT ────────────────────┐
	│                                                        │
	│  Adapter interface                                     │
	│   - read: name listings and per-object state           │
	│   - write: create, update, delete per resource kind    │
	│        │                                               │
	│        ▼                                               │
	│  Client                                                │
	│   - base URL <mgmt>/mgmt/tm                            │
	│   - basic auth on every request                        │
	│   - 30s request timeout by default                     │
	│   - optional TLS verification skip                     │
	│        │                                               │
	│        ▼                                               │
	│  iControl REST resources                               │
	│   /ltm/virtual            virtual servers              │
	│   /ltm/virtual-address    virtual addresses            │
	│   /ltm/pool               pools and /members           │
	│   /ltm/node               nodes                        │
	│   /ltm/monitor/<proto>    health monitors              │
	│   /sys/application/service  iApp deployments           │
	│   /sys/folder             partition discovery          │
	└────────────────────────────────────────────────────────┘

# Core Components

Adapter:
  - The full device surface as one interface
  - Name listings (PoolNames, VirtualNames, MonitorNames) feed diffs
  - State reads (ReadPool, ReadVirtual, ReadMonitor) feed comparisons
  - Writes mirror the REST verbs: POST create, PATCH update, DELETE delete

Client:
  - Stateless apart from credentials and the HTTP client
  - Object names are encoded with pathID; slashes inside names become
    tildes, the API's convention for folder-qualified identifiers
  - List calls filter server-side with a $filter=partition query so a busy
    device does not ship every partition's objects on every pass

State structs:
  - MonitorState, PoolState, VirtualState, NodeState, VirtualAddressState
    carry only the fields the controller compares or writes
  - Fields structs (PoolFields, VirtualFields) are the writable subset
  - Anything the device adds beyond these fields survives updates
    untouched, because PATCH bodies only carry known fields

IApp types:
  - IAppDefinition captures a template deployment: template path,
    variables, tables, and options
  - Creates send the template reference; redeploys send only execute-action
    so the device re-runs the existing template

# Error Handling

Every failure from the device is classified at the client boundary:

TransientError:
  - Connection errors, timeouts, and unexpected HTTP status codes
  - Carries the operation, URL, and status for logging
  - IsTransient matches it through wrapped chains
  - The caller retries the pass; nothing is retried inside the client

Plain errors:
  - Malformed management URLs and unsupported monitor protocols
  - These cannot succeed on retry and are surfaced as fatal

Reads of single objects return TransientError for 404 as well. The
reconciler only reads objects it just listed, so an absent object means the
device changed underneath the pass, and rereading next pass is the right
response.

# TLS

VerifyTLS false disables certificate verification. Appliances ship with
self-signed management certificates, so this is the common setting in lab
and test environments. Production devices with real certificates should run
with verification on.

# Usage

	client, err := bigip.NewClient(bigip.ClientOptions{
		URL:       "https://10.190.25.80",
		Username:  "admin",
		Password:  "admin",
		VerifyTLS: false,
	})
	if err != nil {
		return err
	}

	pools, err := client.PoolNames("mesos")
	if err != nil {
		if bigip.IsTransient(err) {
			// device unreachable, retry later
		}
		return err
	}

# See Also

  - pkg/reconciler for the only caller of Adapter
  - pkg/types for the desired-state side of the conversion helpers
  - iControl REST reference: https://clouddocs.f5.com/api/icontrol-rest/
*/
package bigip
