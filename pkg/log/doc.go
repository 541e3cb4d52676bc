/*
Package log provides structured logging on top of zerolog.

Every component logs through this package so that output is uniform: one
line per event, leveled, with a component field identifying the emitter and
whatever context fields the call site adds. Output is JSON for machine
consumption or zerolog's console format for humans.

# Configuration

Init configures the process-wide logger once, early in startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

Levels are the usual debug, info, warn, error, fatal. An unknown level
falls back to info rather than failing startup. Tests call Init with
io.Discard so test output stays readable.

# Context Loggers

Call sites derive loggers that stamp their identifying fields on every
event:

	logger := log.WithComponent("reconciler")
	logger.Info().Str("partition", "mesos").Msg("Reconciled partition")

	logger = log.WithPartition("mesos")
	logger = log.WithService("web_10.0.0.1_80")
	logger = log.WithSource("marathon")

The derived loggers are values and cheap to create, so they are built where
the context is known (one per partition inside a pass, for example) rather
than threaded through call stacks.

# Field Conventions

The field names are fixed so that log queries work across components:

  - component: the emitting package (controller, reconciler, journal)
  - partition: the BIG-IP partition being worked on
  - service: a desired service name
  - source: the orchestrator kind (marathon, kubernetes)
  - err: attached with the Err helper, never formatted into the message

Messages are short sentences in the imperative or past tense. Values go in
fields, not in the message text.

# See Also

  - pkg/controller and pkg/reconciler for the heaviest users
  - zerolog documentation: https://github.com/rs/zerolog
*/
package log
