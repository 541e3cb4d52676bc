/*
Package controller runs the fetch-build-apply loop on a fixed interval.

The controller owns scheduling and error policy; everything else is behind
three small interfaces. A Source fetches desired state from an
orchestrator, an Engine applies it to the device, and a Recorder keeps the
audit trail. One pass is fetch, apply, record. Run repeats passes on a
ticker until the context is canceled or a pass fails in a way retrying
cannot fix.

# Pass Lifecycle

	┌─────────────────── ONE PASS ────────────────────┐
	│                                                  │
	│  Source.Fetch ──► Engine.Apply ──► Recorder      │
	│       │                │              │          │
	│       │ error          │ error        │ error    │
	│       ▼                ▼              ▼          │
	│  FetchError       classify         log and       │
	│  (always retry)   via IsTransient  continue      │
	└──────────────────────────────────────────────────┘

Fetch failures never reach the engine; they wrap as FetchError and the pass
ends as a retry. Apply failures retry when transient (device unreachable,
unexpected status) and stop the loop when not, because a non-transient
failure means the desired state itself cannot be applied and every retry
would fail identically. Recorder failures only log; losing an audit entry
is not worth stopping convergence for.

Each pass also updates the Prometheus side: pass counts by result, pass and
fetch durations, desired service and managed partition gauges.

# Components

Options:
  - Source, Engine, and Interval are required
  - Recorder and Keep are optional; without a Recorder nothing is journaled
  - Clock defaults to the wall clock and exists for tests

Controller:
  - Run blocks, running an immediate pass and then one per interval tick
  - RunOnce runs a single pass and returns its Stats, for one-shot syncs
  - A mutex serializes passes, so a slow pass delays the next tick's work
    instead of overlapping it

# Usage

	ctrl := controller.New(controller.Options{
		Source:   source,
		Engine:   engine,
		Interval: 30 * time.Second,
		Recorder: store,
		Keep:     256,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := ctrl.Run(ctx); err != nil {
		// non-retryable pass failure
	}

Tests drive the loop with a fake clock:

	clock := clockwork.NewFakeClock()
	// pass clock in Options, start Run in a goroutine
	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

# See Also

  - pkg/reconciler for the Engine implementation
  - pkg/marathon and pkg/kubernetes for Sources
  - pkg/journal for the Recorder implementation
*/
package controller
