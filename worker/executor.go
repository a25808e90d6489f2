package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
	"github.com/xraph/crontab/middleware"
	"github.com/xraph/crontab/queue"
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithInvoker sets the transport for remote jobs.
func WithInvoker(inv RemoteInvoker) ExecutorOption {
	return func(e *Executor) { e.invoker = inv }
}

// WithRemotePrefixes sets the name prefixes that mark a job as remote.
func WithRemotePrefixes(prefixes ...string) ExecutorOption {
	return func(e *Executor) { e.remotePrefixes = prefixes }
}

// WithDefaultMethod sets the handler method used when a name has none.
func WithDefaultMethod(method string) ExecutorOption {
	return func(e *Executor) { e.defaultMethod = method }
}

// WithQueueManager throttles remote calls per queue.
func WithQueueManager(m *queue.Manager) ExecutorOption {
	return func(e *Executor) { e.queues = m }
}

// WithMiddleware sets the middleware wrapped around local handler calls.
func WithMiddleware(mws ...middleware.Middleware) ExecutorOption {
	return func(e *Executor) { e.mw = middleware.Chain(mws...) }
}

// Executor routes a dequeued job to a remote address or a local handler
// and hands failed attempts to the Retrier. It satisfies queue.Dispatcher.
type Executor struct {
	registry       *job.Registry
	retrier        *Retrier
	extensions     *ext.Registry
	invoker        RemoteInvoker
	queues         *queue.Manager
	mw             middleware.Middleware
	remotePrefixes []string
	defaultMethod  string
	logger         *slog.Logger

	inflight sync.WaitGroup
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	registry *job.Registry,
	retrier *Retrier,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		registry:       registry,
		retrier:        retrier,
		extensions:     extensions,
		invoker:        NewHTTPInvoker(),
		mw:             middleware.Chain(),
		remotePrefixes: []string{"http://", "https://"},
		defaultMethod:  job.DefaultMethod,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute dispatches j, which was taken from queue. Remote jobs are posted
// in the background; local jobs run before Execute returns.
func (e *Executor) Execute(ctx context.Context, queue string, j *job.Job) {
	if job.IsRemote(j.Name, e.remotePrefixes) {
		e.dispatchRemote(ctx, queue, j)
		return
	}
	e.dispatchLocal(ctx, queue, j)
}

// Wait blocks until every in-flight remote call has finished or ctx ends.
func (e *Executor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) dispatchRemote(ctx context.Context, queue string, j *job.Job) {
	// The call outlives the tick that started it.
	ctx = context.WithoutCancel(ctx)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		if e.queues != nil {
			if err := e.queues.Acquire(ctx, queue); err != nil {
				e.retry(ctx, queue, j, err)
				return
			}
			defer e.queues.Release(queue)
		}

		start := time.Now()
		body, err := e.invoker.Post(ctx, j.Name, j.Args)
		if err != nil {
			e.retry(ctx, queue, j, fmt.Errorf("post %s: %w", j.Name, err))
			return
		}
		if string(body) != crontab.ReplySuccess {
			e.retry(ctx, queue, j, crontab.ErrRemoteRejected)
			return
		}
		e.extensions.EmitJobSucceeded(ctx, queue, j, time.Since(start))
	}()
}

func (e *Executor) dispatchLocal(ctx context.Context, queue string, j *job.Job) {
	handler, ok := e.registry.Lookup(job.ParseTarget(j.Name, e.defaultMethod))
	if !ok {
		e.extensions.EmitJobDropped(ctx, queue, j)
		return
	}

	terminal := func(ctx context.Context) error {
		performed, err := handler(ctx, j.Args)
		if err != nil {
			return err
		}
		if !performed {
			return crontab.ErrNotPerformed
		}
		return nil
	}

	start := time.Now()
	err := e.mw(ctx, j, terminal)
	if err == nil {
		e.extensions.EmitJobSucceeded(ctx, queue, j, time.Since(start))
		return
	}
	e.retry(ctx, queue, j, err)
}

func (e *Executor) retry(ctx context.Context, queue string, j *job.Job, cause error) {
	if err := e.retrier.Retry(ctx, queue, j, cause); err != nil {
		e.logger.Error("retry failed",
			slog.String("queue", queue),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
	}
}
