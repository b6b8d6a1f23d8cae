package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hijjiri/todo-list/internal/config"
	"github.com/hijjiri/todo-list/internal/infrastructure/memory"
	"github.com/hijjiri/todo-list/internal/metrics"
	"github.com/hijjiri/todo-list/internal/server"
	"github.com/hijjiri/todo-list/internal/telemetry"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// ---- Logger ----
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	// ---- Config 読み込み ----
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if cfg.LogDevelopment {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
			defer logger.Sync()
		}
	}

	logger.Info("loaded config",
		zap.Int("port", cfg.Port),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Bool("trace_stdout", cfg.TraceStdout),
		zap.String("config_file", cfg.File),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	var traceOut io.Writer
	if cfg.TraceStdout {
		traceOut = os.Stdout
	}
	tp, err := telemetry.NewTracerProvider(ctx, traceOut)
	if err != nil {
		logger.Fatal("failed to init tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ---- Todo Store / Usecase ----
	repo := memory.NewTodoRepository()
	uc := todo_usecase.New(repo, logger, tp.Tracer("github.com/hijjiri/todo-list/usecase/todo"))

	// ---- HTTP / gRPC / metrics ----
	srv := server.New(cfg, uc, logger, m)
	logger.Info("server starting", zap.Int("port", cfg.Port))

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
