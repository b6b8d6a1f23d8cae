// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hijjiri/todo-list/internal/config"
	grpcadapter "github.com/hijjiri/todo-list/internal/interface/grpc"
	httpadapter "github.com/hijjiri/todo-list/internal/interface/http"
	"github.com/hijjiri/todo-list/internal/metrics"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Server は HTTP / gRPC / metrics の 3 つのサーバを同じ Usecase（= 同じ Store）で束ねる。
type Server struct {
	cfg    config.Config
	logger *zap.Logger

	httpSrv    *http.Server
	grpcSrv    *grpc.Server
	healthSrv  *health.Server
	metricsSrv *http.Server
}

func New(cfg config.Config, uc todo_usecase.Usecase, logger *zap.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	grpcSrv, healthSrv := grpcadapter.NewServer(uc, logger, m, cfg.RequestTimeout)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())

	return &Server{
		cfg:    cfg,
		logger: logger,
		httpSrv: &http.Server{
			Handler:      httpadapter.NewRouter(uc, logger, m, cfg.RequestTimeout),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		grpcSrv:   grpcSrv,
		healthSrv: healthSrv,
		metricsSrv: &http.Server{
			Handler:     metricsMux,
			ReadTimeout: 5 * time.Second,
		},
	}
}

// Run は設定のアドレスで listen して Serve する。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPAddr())
	if err != nil {
		return fmt.Errorf("listen http %s: %w", s.cfg.HTTPAddr(), err)
	}

	var grpcLis, metricsLis net.Listener
	if s.cfg.GRPCEnabled() {
		if grpcLis, err = net.Listen("tcp", s.cfg.GRPCAddr); err != nil {
			httpLis.Close()
			return fmt.Errorf("listen grpc %s: %w", s.cfg.GRPCAddr, err)
		}
	}
	if s.cfg.MetricsEnabled() {
		if metricsLis, err = net.Listen("tcp", s.cfg.MetricsAddr); err != nil {
			httpLis.Close()
			if grpcLis != nil {
				grpcLis.Close()
			}
			return fmt.Errorf("listen metrics %s: %w", s.cfg.MetricsAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis, metricsLis)
}

// Serve は ctx が終わるか、どれかのサーバが落ちるまでブロックする。
// grpcLis / metricsLis は nil ならそのサーバを起動しない。
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis, metricsLis net.Listener) error {
	errCh := make(chan error, 3)

	go func() {
		s.logger.Info("server started", zap.String("addr", httpLis.Addr().String()))
		if err := s.httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcLis != nil {
		go func() {
			s.logger.Info("gRPC server is starting", zap.String("addr", grpcLis.Addr().String()))
			if err := s.grpcSrv.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	if metricsLis != nil {
		go func() {
			s.logger.Info("metrics server started", zap.String("addr", metricsLis.Addr().String()))
			if err := s.metricsSrv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case runErr = <-errCh:
		s.logger.Error("server exited with error", zap.Error(runErr))
	}

	s.shutdown()
	return runErr
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.healthSrv.Shutdown()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	if err := s.metricsSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics shutdown", zap.Error(err))
	}

	// GracefulStop が終わらなければ強制停止
	done := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcSrv.Stop()
	}
}
