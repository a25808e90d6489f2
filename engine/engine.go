// Package engine wires the crontab subsystems together. It owns the job
// and extension registries, the middleware chain, the delay ticker, the
// queue consumer and the executor, and provides the Submit and Cancel
// operations.
//
// The engine sits above every subsystem package. Subsystems that must call
// back into scheduling (the ticker, the retrier, DLQ replay) receive a
// function value instead of importing this package.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/backoff"
	"github.com/xraph/crontab/delay"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/id"
	"github.com/xraph/crontab/job"
	mw "github.com/xraph/crontab/middleware"
	"github.com/xraph/crontab/observability"
	"github.com/xraph/crontab/queue"
	"github.com/xraph/crontab/store"
	"github.com/xraph/crontab/worker"
)

const instrumentationName = "github.com/xraph/crontab"

// Engine schedules, promotes and dispatches jobs against a shared store.
type Engine struct {
	instance    id.WorkerID
	store       store.Store
	config      crontab.Config
	registry    *job.Registry
	extensions  *ext.Registry
	pendingExts []ext.Extension
	mws         []mw.Middleware
	bo          backoff.Strategy
	invoker     worker.RemoteInvoker
	now         func() time.Time
	logger      *slog.Logger

	dlqEnabled     bool
	dlqService     *dlq.Service
	janitor        *dlq.Janitor
	janitorSched   string
	janitorRetains time.Duration

	queueConfigs []queue.Config
	queueManager *queue.Manager

	retrier  *worker.Retrier
	executor *worker.Executor
	ticker   *delay.Ticker
	consumer *queue.Consumer

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(cfg crontab.Config) Option {
	return func(eng *Engine) {
		eng.config = cfg
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) {
		eng.logger = l
	}
}

// WithRegistry sets the handler registry. By default the engine creates an
// empty one, reachable through Registry.
func WithRegistry(r *job.Registry) Option {
	return func(eng *Engine) {
		eng.registry = r
	}
}

// WithClock overrides the time source used to decide whether a job is due.
func WithClock(now func() time.Time) Option {
	return func(eng *Engine) {
		eng.now = now
	}
}

// WithInvoker sets the transport used for remote jobs.
func WithInvoker(inv worker.RemoteInvoker) Option {
	return func(eng *Engine) {
		eng.invoker = inv
	}
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.pendingExts = append(eng.pendingExts, e)
	}
}

// WithMiddleware adds middleware to the local handler chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBackoff sets the strategy used to expand retry counts into retry
// stacks. If not set, backoff.DefaultStrategy() is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) {
		eng.bo = b
	}
}

// WithQueueConfig registers per-queue rate limits and concurrency caps for
// remote dispatch. Queues not listed have no limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) {
		eng.queueConfigs = append(eng.queueConfigs, configs...)
	}
}

// WithDLQ enables or disables dead-lettering of permanently failed jobs.
// It is enabled by default.
func WithDLQ(enabled bool) Option {
	return func(eng *Engine) {
		eng.dlqEnabled = enabled
	}
}

// WithDLQJanitor purges dead-letter entries older than retention on the
// given cron schedule while the engine runs.
func WithDLQJanitor(schedule string, retention time.Duration) Option {
	return func(eng *Engine) {
		eng.janitorSched = schedule
		eng.janitorRetains = retention
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware and the observability extension. If not set, the global
// otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// New creates an Engine over s.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, crontab.ErrNoStore
	}

	eng := &Engine{
		instance:   id.NewWorkerID(),
		store:      s,
		config:     crontab.DefaultConfig(),
		registry:   job.NewRegistry(),
		now:        time.Now,
		logger:     slog.Default(),
		dlqEnabled: true,
	}
	for _, opt := range opts {
		opt(eng)
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	for _, e := range eng.pendingExts {
		eng.extensions.Register(e)
	}

	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}
	defaults := crontab.DefaultConfig()
	if eng.config.DefaultQueue == "" {
		eng.config.DefaultQueue = defaults.DefaultQueue
	}
	if eng.config.DelayInterval <= 0 {
		eng.config.DelayInterval = defaults.DelayInterval
	}
	if eng.config.ConsumeInterval <= 0 {
		eng.config.ConsumeInterval = defaults.ConsumeInterval
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware and the observability extension.
	var metricsMw mw.Middleware
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		metricsMw = mw.Metrics()
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	allMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.config.HandlerTimeout),
	}
	allMws = append(allMws, eng.mws...)

	eng.dlqService = dlq.NewService(s, eng.Submit)
	var retryDLQ *dlq.Service
	if eng.dlqEnabled {
		retryDLQ = eng.dlqService
	}
	if eng.janitorSched != "" {
		eng.janitor = dlq.NewJanitor(s, eng.janitorSched, eng.janitorRetains, eng.logger)
	}

	eng.queueManager = queue.NewManager(eng.queueConfigs...)
	eng.retrier = worker.NewRetrier(eng.Submit, retryDLQ, eng.extensions, eng.logger)

	execOpts := []worker.ExecutorOption{
		worker.WithRemotePrefixes(eng.config.RemotePrefixes...),
		worker.WithDefaultMethod(eng.config.DefaultMethod),
		worker.WithQueueManager(eng.queueManager),
		worker.WithMiddleware(allMws...),
	}
	if eng.invoker != nil {
		execOpts = append(execOpts, worker.WithInvoker(eng.invoker))
	}
	eng.executor = worker.NewExecutor(eng.registry, eng.retrier, eng.extensions, eng.logger, execOpts...)

	eng.ticker = delay.NewTicker(s, eng.promote,
		delay.WithInterval(eng.config.DelayInterval),
		delay.WithClock(eng.now),
		delay.WithLogger(eng.logger),
	)
	eng.consumer = queue.NewConsumer(s, eng.executor,
		queue.WithInterval(eng.config.ConsumeInterval),
		queue.WithLogger(eng.logger),
	)

	return eng, nil
}

// Register registers a typed handler definition with the engine.
func Register[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// Enqueue marshals payload and submits it under name.
func Enqueue[T any](ctx context.Context, eng *Engine, name string, payload T, opts ...job.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for job %q: %w", name, err)
	}
	return eng.Submit(ctx, job.NewSubmission(name, data, opts...))
}

// Submit schedules, enqueues or cancels a job.
//
// Args equal to the cancellation sentinel cancel the named job at Time (or
// every scheduled occurrence when Time is not positive). A Time after now
// places the job in the delay bucket for Time. Anything else pushes the job
// onto its ready queue immediately.
func (eng *Engine) Submit(ctx context.Context, s job.Submission) error {
	return eng.submit(ctx, s, false)
}

// promote moves a job popped from a due bucket onto its ready queue.
func (eng *Engine) promote(ctx context.Context, j *job.Job, due int64) error {
	return eng.submit(ctx, job.Submission{
		Name:       j.Name,
		Args:       j.Args,
		Time:       due,
		Queue:      j.Queue,
		RetryStack: j.RetryStack,
	}, true)
}

func (eng *Engine) submit(ctx context.Context, s job.Submission, promotion bool) error {
	if s.Name == "" {
		return fmt.Errorf("crontab/engine: empty job name: %w", crontab.ErrInvalidRequest)
	}
	if s.IsCancellation() {
		return eng.Cancel(ctx, s.Name, s.Time)
	}

	if s.Queue == "" {
		s.Queue = eng.config.DefaultQueue
	}
	if s.RetryStack == nil {
		s.RetryStack = []int64{}
	}

	j := &job.Job{
		Name:       s.Name,
		Args:       s.Args,
		Queue:      s.Queue,
		RetryStack: s.RetryStack,
	}
	hash := job.NameHash(s.Name)

	if s.Time > eng.now().Unix() {
		j.DueTime = s.Time
		data, err := job.Encode(j)
		if err != nil {
			return fmt.Errorf("crontab/engine: encode %s: %w", s.Name, err)
		}
		if err := eng.store.AddDelayed(ctx, s.Time, hash, data); err != nil {
			return fmt.Errorf("crontab/engine: schedule %s at %d: %w", s.Name, s.Time, err)
		}
		eng.extensions.EmitJobScheduled(ctx, j, s.Time)
		return nil
	}

	if promotion {
		if err := eng.store.RemoveOccurrence(ctx, hash, s.Time); err != nil {
			return fmt.Errorf("crontab/engine: clear occurrence %s at %d: %w", s.Name, s.Time, err)
		}
	}

	data, err := job.Encode(j)
	if err != nil {
		return fmt.Errorf("crontab/engine: encode %s: %w", s.Name, err)
	}
	if err := eng.store.PushReady(ctx, s.Queue, data); err != nil {
		return fmt.Errorf("crontab/engine: enqueue %s on %s: %w", s.Name, s.Queue, err)
	}
	eng.extensions.EmitJobQueued(ctx, s.Queue, j)
	return nil
}

// Cancel removes a scheduled occurrence of name. A positive due empties that
// bucket along with any other jobs sharing the timestamp; otherwise every
// recorded occurrence of name is cancelled the same way.
func (eng *Engine) Cancel(ctx context.Context, name string, due int64) error {
	hash := job.NameHash(name)

	if due > 0 {
		if err := eng.store.CancelDelayed(ctx, hash, due); err != nil {
			return fmt.Errorf("crontab/engine: cancel %s at %d: %w", name, due, err)
		}
		eng.extensions.EmitJobCancelled(ctx, name, []int64{due})
		return nil
	}

	dues, err := eng.store.CancelAllDelayed(ctx, hash)
	if err != nil {
		return fmt.Errorf("crontab/engine: cancel %s: %w", name, err)
	}
	eng.extensions.EmitJobCancelled(ctx, name, dues)
	return nil
}

// RetryStack expands a retry count into absolute retry timestamps using the
// configured backoff strategy.
func (eng *Engine) RetryStack(attempts int) []int64 {
	return backoff.Stack(eng.now(), attempts, eng.bo)
}

// Run starts the delay ticker, the queue consumer and, when configured,
// the DLQ janitor. It blocks until ctx is done or Stop is called.
func (eng *Engine) Run(ctx context.Context) error {
	if eng.janitor != nil {
		if err := eng.janitor.Start(); err != nil {
			return err
		}
	}

	eng.logger.Info("crontab engine started",
		slog.String("instance", eng.instance.String()),
		slog.Duration("delay_interval", eng.config.DelayInterval),
		slog.Duration("consume_interval", eng.config.ConsumeInterval),
		slog.Int("handlers", len(eng.registry.Names())),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.ticker.Run(gctx) })
	g.Go(func() error { return eng.consumer.Run(gctx) })
	return g.Wait()
}

// Stop ends Run, waits for in-flight remote calls up to the configured
// shutdown timeout and notifies extensions.
func (eng *Engine) Stop(ctx context.Context) error {
	eng.ticker.Stop()
	eng.consumer.Stop()
	if eng.janitor != nil {
		eng.janitor.Stop()
	}

	if eng.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.config.ShutdownTimeout)
		defer cancel()
	}
	err := eng.executor.Wait(ctx)
	if err != nil {
		eng.logger.Warn("shutdown timed out waiting for remote calls",
			slog.String("error", err.Error()),
		)
	}

	eng.extensions.EmitShutdown(ctx)
	eng.logger.Info("crontab engine stopped")
	return err
}

// Instance returns the identifier of this engine process. Several
// engines may share one store; the identifier tells them apart in logs.
func (eng *Engine) Instance() id.WorkerID { return eng.instance }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the handler registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// Config returns the engine configuration.
func (eng *Engine) Config() crontab.Config { return eng.config }

// DLQService returns the engine's DLQ service for replay and inspection.
func (eng *Engine) DLQService() *dlq.Service { return eng.dlqService }

// QueueManager returns the queue manager used to throttle remote calls.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }

// Ticker returns the delay ticker.
func (eng *Engine) Ticker() *delay.Ticker { return eng.ticker }

// Consumer returns the queue consumer.
func (eng *Engine) Consumer() *queue.Consumer { return eng.consumer }
