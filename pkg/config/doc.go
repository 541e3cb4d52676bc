/*
Package config loads and validates the controller's YAML configuration.

One file configures a run: the device, the orchestrator source, the managed
partitions, and the loop's tuning. Load reads the file, applies defaults
for anything unset, and lets environment variables override credentials so
secrets can stay out of the file:

	bigip:
	  url: https://10.190.25.80
	  username: admin
	  password: admin
	  verify-tls: false
	source:
	  kind: marathon
	  url: http://marathon:8080
	partitions: [mesos]
	poll-interval: 30s
	concurrency: 1
	metrics-addr: ":9090"
	journal-path: /var/lib/bigip-ctlr/journal.db
	journal-keep: 256
	log-level: info
	log-json: true

BIGIP_USERNAME, BIGIP_PASSWORD, SOURCE_USERNAME, and SOURCE_PASSWORD win
over the file when set.

Durations are plain Go duration strings via the Duration wrapper type.
Validate rejects configurations that cannot work (no device URL, no
credentials, an unknown source kind, no partitions, a non-positive interval
or concurrency) before anything connects anywhere. An empty journal-path
disables the journal rather than failing.

# See Also

  - pkg/controller for how the loaded values are wired
  - the run subcommand, which loads this at startup
*/
package config
