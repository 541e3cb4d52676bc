package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/bigip"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/journal"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/log"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/metrics"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/reconciler"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Source produces the desired configuration from an orchestrator.
type Source interface {
	Name() string
	Fetch() (*types.Config, error)
}

// Engine applies a desired configuration to the load balancer.
type Engine interface {
	Apply(cfg *types.Config) (*reconciler.Stats, error)
}

// Recorder persists pass outcomes. *journal.Store satisfies it.
type Recorder interface {
	Append(record *journal.Record) error
	Prune(keep int) error
}

// FetchError marks a failure to read the orchestrator's state.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s state: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a Controller.
type Options struct {
	Source   Source
	Engine   Engine
	Interval time.Duration

	// Recorder is optional; without one passes are not journaled. Keep
	// bounds how many records Prune leaves behind after each pass.
	Recorder Recorder
	Keep     int

	// Clock is optional and defaults to the wall clock.
	Clock clockwork.Clock
}

// Controller drives the reconciliation loop: fetch the orchestrator's
// state, apply it to the load balancer, wait, repeat. Passes never
// overlap.
type Controller struct {
	source   Source
	engine   Engine
	interval time.Duration
	recorder Recorder
	keep     int
	clock    clockwork.Clock
	logger   zerolog.Logger

	mu sync.Mutex
}

// New creates a controller from the given options.
func New(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Controller{
		source:   opts.Source,
		engine:   opts.Engine,
		interval: interval,
		recorder: opts.Recorder,
		keep:     opts.Keep,
		clock:    clock,
		logger:   log.WithComponent("controller"),
	}
}

// Run reconciles immediately and then on every tick until the context is
// canceled or a pass fails fatally. Retryable failures, meaning device or
// orchestrator communication problems, only skip to the next tick.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Str("source", c.source.Name()).
		Dur("interval", c.interval).
		Msg("Starting controller")

	if err := c.tick(); err != nil {
		return err
	}

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Stopping controller")
			return nil
		case <-ticker.Chan():
			if err := c.tick(); err != nil {
				return err
			}
		}
	}
}

// tick runs one pass and swallows retryable failures.
func (c *Controller) tick() error {
	_, err := c.RunOnce()
	if err == nil {
		return nil
	}
	if retryable(err) {
		c.logger.Warn().Err(err).Msg("Reconciliation pass failed, will retry")
		return nil
	}
	c.logger.Error().Err(err).Msg("Reconciliation pass failed fatally")
	return err
}

// RunOnce fetches the desired state and reconciles the device against it
// once, recording the outcome in metrics and the journal.
func (c *Controller) RunOnce() (*reconciler.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	passTimer := metrics.NewTimer()

	fetchTimer := metrics.NewTimer()
	cfg, err := c.source.Fetch()
	fetchTimer.ObserveDuration(metrics.SourceFetchDuration)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("error").Inc()
		metrics.UpdateComponent(metrics.ComponentSource, false, err.Error())
		fetchErr := &FetchError{Source: c.source.Name(), Err: err}
		c.finishPass(passTimer, nil, fetchErr)
		return nil, fetchErr
	}
	metrics.SourceFetchesTotal.WithLabelValues("ok").Inc()
	metrics.UpdateComponent(metrics.ComponentSource, true, "")
	metrics.ServicesDesired.Set(float64(len(cfg.Services)))

	stats, err := c.engine.Apply(cfg)
	if stats != nil {
		metrics.PartitionsManaged.Set(float64(stats.Partitions))
	}
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentDevice, false, err.Error())
	} else {
		metrics.UpdateComponent(metrics.ComponentDevice, true, "")
	}
	c.finishPass(passTimer, stats, err)
	if err != nil {
		return stats, err
	}

	c.logger.Info().
		Int("services", len(cfg.Services)).
		Bool("changed", stats.Changed()).
		Dur("duration", passTimer.Duration()).
		Msg("Reconciliation pass complete")
	return stats, nil
}

// finishPass observes the pass duration, counts the result, and appends a
// journal record. Journal failures are logged, not propagated; an audit
// problem must not take the control loop down.
func (c *Controller) finishPass(timer *metrics.Timer, stats *reconciler.Stats, err error) {
	timer.ObserveDuration(metrics.PassDuration)

	metricResult, journalResult := metrics.ResultApplied, journal.ResultApplied
	if err != nil {
		if retryable(err) {
			metricResult, journalResult = metrics.ResultRetry, journal.ResultRetried
		} else {
			metricResult, journalResult = metrics.ResultFatal, journal.ResultFailed
		}
	}
	metrics.PassesTotal.WithLabelValues(metricResult).Inc()

	if c.recorder == nil {
		return
	}

	record := &journal.Record{
		Source:   c.source.Name(),
		Duration: timer.Duration(),
		Result:   journalResult,
	}
	if stats != nil {
		record.Stats = *stats
	}
	if err != nil {
		record.Error = err.Error()
	}

	if err := c.recorder.Append(record); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to journal pass")
		return
	}
	if err := c.recorder.Prune(c.keep); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to prune journal")
	}
}

// retryable reports whether the next tick could succeed where this pass
// failed. Communication failures can; anything else is a configuration
// problem polling will not fix.
func retryable(err error) bool {
	var fetch *FetchError
	if errors.As(err, &fetch) {
		return true
	}
	return bigip.IsTransient(err)
}
