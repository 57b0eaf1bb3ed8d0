// Package engine wires the journey-analytics core together: scorer,
// stitcher, store, periodic analyzers, and the query façade.
//
// The engine is an explicit instance constructed once at process start and
// passed by reference to callers. There is no package-level singleton, so
// tests can run any number of isolated engines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/analysis"
	"github.com/fyrsmithlabs/journeyd/internal/events"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// Job names, used in logs, metrics labels, and health output.
const (
	JobDropOff      = "dropoff"
	JobPathMining   = "path_mining"
	JobOptimization = "optimization"
)

// Intervals configures the periodic job cadence.
type Intervals struct {
	DropOff      time.Duration
	PathMining   time.Duration
	Optimization time.Duration
}

// defaultIntervals match the reference cadence: 10 minutes, 60 minutes,
// 4 hours.
var defaultIntervals = Intervals{
	DropOff:      10 * time.Minute,
	PathMining:   time.Hour,
	Optimization: 4 * time.Hour,
}

// Engine is the journey analytics core.
type Engine struct {
	store     journey.Store
	stitcher  *journey.Stitcher
	results   *analysis.Results
	scheduler *analysis.Scheduler
	publisher events.Publisher
	metrics   *Metrics
	logger    *zap.Logger

	dropOff   *analysis.DropOffAnalyzer
	miner     *analysis.PathMiner
	optimizer *analysis.OptimizationGenerator

	staleAfter time.Duration
	nowFn      func() time.Time
	started    time.Time
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	window     time.Duration
	intervals  Intervals
	staleAfter time.Duration
	nowFn      func() time.Time
}

// WithWindow overrides the active-journey stitching window.
func WithWindow(window time.Duration) Option {
	return func(o *engineOptions) { o.window = window }
}

// WithIntervals overrides the periodic job cadence.
func WithIntervals(iv Intervals) Option {
	return func(o *engineOptions) { o.intervals = iv }
}

// WithStaleAfter overrides how long the health check tolerates no completed
// analysis cycle.
func WithStaleAfter(d time.Duration) Option {
	return func(o *engineOptions) { o.staleAfter = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock(nowFn func() time.Time) Option {
	return func(o *engineOptions) { o.nowFn = nowFn }
}

// New constructs an engine over the given store and event publisher.
func New(store journey.Store, publisher events.Publisher, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := engineOptions{
		window:     journey.DefaultWindow,
		intervals:  defaultIntervals,
		staleAfter: 30 * time.Minute,
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		store:      store,
		results:    analysis.NewResults(),
		publisher:  publisher,
		metrics:    NewMetrics(),
		logger:     logger,
		staleAfter: o.staleAfter,
		nowFn:      o.nowFn,
		started:    o.nowFn().UTC(),
	}

	e.stitcher = journey.NewStitcher(store, logger.Named("stitcher"),
		journey.WithWindow(o.window),
		journey.WithClock(o.nowFn),
	)

	e.dropOff = analysis.NewDropOffAnalyzer(store, e.results, publisher, logger.Named("dropoff"))
	e.miner = analysis.NewPathMiner(store, e.results, publisher, logger.Named("path_mining"))
	e.optimizer = analysis.NewOptimizationGenerator(e.results, publisher, logger.Named("optimization"))

	scheduler, err := analysis.NewScheduler([]analysis.Job{
		{Name: JobDropOff, Interval: o.intervals.DropOff, Run: e.instrument(JobDropOff, e.dropOff.Run)},
		{Name: JobPathMining, Interval: o.intervals.PathMining, Run: e.instrument(JobPathMining, e.miner.Run)},
		{Name: JobOptimization, Interval: o.intervals.Optimization, Run: e.instrument(JobOptimization, e.optimizer.Run)},
	}, publisher, logger.Named("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}
	e.scheduler = scheduler

	return e, nil
}

// Start begins the periodic analysis jobs.
func (e *Engine) Start() error {
	return e.scheduler.Start()
}

// Stop stops the periodic analysis jobs. In-memory state is discarded on
// process exit; there is no drain or flush contract.
func (e *Engine) Stop() {
	e.scheduler.Stop()
}

// Track is the synchronous ingestion path: score the raw event, stitch the
// touchpoint into a journey, and emit notifications. Validation failures are
// rejected before any mutation; stitching failures are reported via the
// tracking_error event and leave no partial state.
func (e *Engine) Track(ctx context.Context, in touchpoint.Input) (touchpoint.Touchpoint, error) {
	tp, err := touchpoint.Score(in)
	if err != nil {
		e.metrics.TrackingErrors.WithLabelValues("validation").Inc()
		return touchpoint.Touchpoint{}, err
	}

	j, err := e.stitcher.Ingest(tp)
	if err != nil {
		e.metrics.TrackingErrors.WithLabelValues("stitch").Inc()
		e.logger.Error("touchpoint ingest failed",
			zap.String("identity", tp.Identity()),
			zap.Error(err),
		)
		if pubErr := e.publisher.Publish(ctx, events.TrackingError, map[string]any{
			"identity": tp.Identity(),
			"error":    err.Error(),
		}); pubErr != nil {
			e.logger.Warn("tracking error event publish failed", zap.Error(pubErr))
		}
		return touchpoint.Touchpoint{}, fmt.Errorf("ingest touchpoint: %w", err)
	}

	e.metrics.TouchpointsTracked.WithLabelValues(string(tp.Type)).Inc()
	if len(j.Path) == 1 {
		e.metrics.JourneysCreated.Inc()
	} else {
		e.metrics.JourneysUpdated.Inc()
	}
	e.metrics.JourneysTracked.Set(float64(e.store.JourneyCount()))

	e.publishBestEffort(ctx, events.TouchpointTracked, tp)
	e.publishBestEffort(ctx, events.JourneyUpdated, j)

	return tp, nil
}

// publishBestEffort publishes an event and only logs on failure; outbound
// notifications never fail the ingestion path.
func (e *Engine) publishBestEffort(ctx context.Context, event string, payload any) {
	if err := e.publisher.Publish(ctx, event, payload); err != nil {
		e.logger.Warn("event publish failed",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// instrument wraps a job run with metrics recording.
func (e *Engine) instrument(name string, run func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		err := run(ctx)

		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.AnalysisRuns.WithLabelValues(name, status).Inc()
		e.metrics.AnalysisDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		return err
	}
}

// RunAnalysisNow executes all three analysis jobs once, synchronously, in
// dependency order (optimizations read mined paths). Used by tests and the
// CLI; the scheduler drives the same analyzer instances in production.
func (e *Engine) RunAnalysisNow(ctx context.Context) error {
	var errs []error
	for _, step := range []struct {
		name string
		run  func(context.Context) error
	}{
		{JobDropOff, e.dropOff.Run},
		{JobPathMining, e.miner.Run},
		{JobOptimization, e.optimizer.Run},
	} {
		if err := e.instrument(step.name, step.run)(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}
