// Command crontabd runs the delayed job scheduler against Redis. It accepts
// submissions over TCP and WebSocket and serves the admin API under /v1/.
//
// The daemon registers no local handlers: it dispatches jobs whose names
// carry a remote prefix (http:// and https:// by default). Any other job is
// dropped when it is dequeued. Programs that need local handlers embed the
// engine package and register them there.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/crontab/api"
	audithook "github.com/xraph/crontab/audit_hook"
	"github.com/xraph/crontab/engine"
	"github.com/xraph/crontab/listener"
	redisstore "github.com/xraph/crontab/store/redis"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "crontabd: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("crontabd failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("crontabd exited")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	defer client.Close()

	st := redisstore.New(client,
		redisstore.WithKeyPrefix(cfg.KeyPrefix),
		redisstore.WithLogger(logger),
	)
	if err := st.Ping(ctx); err != nil {
		return err
	}

	bo, err := cfg.backoff()
	if err != nil {
		return err
	}
	opts := []engine.Option{
		engine.WithConfig(cfg.engineConfig()),
		engine.WithLogger(logger),
		engine.WithBackoff(bo),
		engine.WithQueueConfig(cfg.queueConfigs()...),
		engine.WithDLQ(cfg.DLQ),
	}
	if cfg.DLQ && cfg.JanitorSchedule != "" {
		opts = append(opts, engine.WithDLQJanitor(cfg.JanitorSchedule, cfg.JanitorRetention))
	}
	if cfg.Audit {
		auditOpts := []audithook.Option{audithook.WithLogger(logger)}
		if len(cfg.AuditActions) > 0 {
			auditOpts = append(auditOpts, audithook.WithActions(cfg.AuditActions...))
		}
		opts = append(opts, engine.WithExtension(
			audithook.New(audithook.NewLogRecorder(logger.With(slog.String("component", "audit"))), auditOpts...),
		))
	}
	eng, err := engine.New(st, opts...)
	if err != nil {
		return err
	}
	warnLocalDispatch(logger, eng.Registry().Names(), cfg.RemotePrefixes)

	handler := listener.NewHandler(eng, listener.WithLogger(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })

	if cfg.TCPAddr != "" {
		tcp := listener.NewServer(handler)
		g.Go(func() error { return tcp.ListenAndServe(gctx, cfg.TCPAddr) })
	}

	if cfg.HTTPAddr != "" {
		wsh := listener.NewWSHandler(handler)
		mux := http.NewServeMux()
		mux.Handle(cfg.WSPath, wsh)
		api.New(eng, logger).RegisterRoutes(mux)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := st.Ping(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("websocket listener started",
				slog.String("addr", cfg.HTTPAddr),
				slog.String("path", cfg.WSPath),
			)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = wsh.Close()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	// Remote calls in flight get the configured shutdown timeout on top of
	// a fresh context, since ctx is already done.
	stopErr := eng.Stop(context.Background())
	return errors.Join(err, stopErr)
}

// warnLocalDispatch tells the operator that jobs without a remote prefix
// have nowhere to go.
func warnLocalDispatch(logger *slog.Logger, handlers, remotePrefixes []string) {
	if len(handlers) > 0 {
		return
	}
	logger.Warn("no local handlers registered; jobs without a remote prefix will be dropped",
		slog.String("remote_prefixes", strings.Join(remotePrefixes, ",")),
	)
}
