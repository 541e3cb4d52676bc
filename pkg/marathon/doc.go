/*
Package marathon turns Marathon application state into desired load-balancer
configuration.

Applications opt in through labels. The client fetches /v2/apps with tasks
embedded, the response expands into one App per published service port, and
the builder validates each App's labels and emits a types.Config service for
the ones that pass. Apps without the labels, or with labels the builder
cannot accept, simply produce no service, which makes the reconciler remove
anything they previously had.

# Label Scheme

F5_PARTITION selects the partition and marks the application as load
balanced. Everything else is per service-port, with the port index embedded
in the label name:

	F5_PARTITION                     partition for all ports
	F5_0_BIND_ADDR                   virtual server address for port 0
	F5_0_PORT                        override the published service port
	F5_0_MODE                        http, tcp, or udp (default tcp)
	F5_0_BALANCE                     pool method (default round-robin)
	F5_0_SSL_PROFILE                 client-ssl profile as Partition/Name
	F5_0_IAPP_TEMPLATE               deploy through an iApp instead
	F5_0_IAPP_POOL_MEMBER_TABLE_NAME iApp table that receives the members
	F5_0_IAPP_VARIABLE_<name>        one iApp variable each
	F5_0_IAPP_OPTION_<name>          one iApp option each

A port declares either BIND_ADDR for an explicit virtual server or
IAPP_TEMPLATE for a template deployment. Declaring neither leaves the port
unmanaged.

# Expansion

Marathon publishes service ports three ways depending on deployment style:
the ports array, portDefinitions, or Docker container port mappings. The
expansion takes whichever is present, in that order, and produces one App
per port with its index.

Backends come from the embedded tasks. A task with health checks must have
results and every result alive to be included; apps without health checks
trust all running tasks. Task hosts are agent hostnames, so the builder
resolves each to an IPv4 address before it becomes a pool member, through a
Resolver that tests replace with a fixed table. A host that fails to
resolve costs that one member, not the service.

# Validation

The builder drops rather than guesses. An invalid mode, balance method,
port, or SSL profile reference logs a warning naming the app and label and
skips the service for this pass. Label validation does not apply to iApp
ports, where the template defines what is valid.

Apps are sorted before building and every emitted collection is ordered, so
the same Marathon state always produces the same Config regardless of
response order.

# Sources

Two source flavors satisfy the controller's Source interface:

	client := marathon.NewClient("http://marathon:8080", user, pass)
	source := marathon.NewSource(client, marathon.NewBuilder(partitions, nil))

	source := marathon.NewFileSource("/var/run/apps.json", builder)

The file flavor reads a saved /v2/apps response (or a bare app array) and
is wired up when the source URL uses the file scheme. It exists for
replaying captured state against a device and for tests.

# See Also

  - pkg/types for the Config the builder emits
  - pkg/kubernetes for the same shape fed from a cluster state document
  - pkg/controller for the fetch loop driving Source
*/
package marathon
