/*
Package journal persists a bounded audit trail of reconciliation passes.

Every pass appends one Record: when it ran, which source fed it, how long
it took, its result, the per-kind change counts, and the error text if it
failed. The journal answers the operational question "what did the
controller do to the device, and when" without grepping logs, and survives
process restarts because it lives in a local BoltDB file.

# Storage Layout

One bucket, passes, holds JSON-encoded records. Keys are the pass
timestamp in nanoseconds, zero-padded to fixed width, with the record ID
appended:

	00001756100000000000000-a1b2c3d4-...

Zero padding makes lexicographic order chronological order, so listing
newest-first is a cursor walking backward from the end, and pruning
oldest-first is a cursor walking forward from the start. No secondary
index is needed.

The file opens with a one-second lock timeout. BoltDB allows a single
writer process, and without the timeout a journal list command started
next to a running controller would block on the file lock forever instead
of failing with an error.

# Operations

Append:
  - Fills ID and timestamp if the caller left them empty
  - One write transaction per record

List:
  - Returns records newest first
  - A non-positive limit returns everything

Prune:
  - Deletes oldest records beyond the keep count
  - The controller prunes after every append, so the file size stays
    proportional to the configured history

# Usage

	store, err := journal.Open("/var/lib/bigip-ctlr/journal.db")
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.Append(&journal.Record{
		Source:   "marathon",
		Duration: elapsed,
		Result:   journal.ResultApplied,
		Stats:    *stats,
	})

	records, err := store.List(20)

# See Also

  - pkg/controller for the writer
  - the journal CLI subcommand for the reader
  - bbolt: https://github.com/etcd-io/bbolt
*/
package journal
