package grpcadapter

import (
	"time"

	"github.com/hijjiri/todo-list/internal/metrics"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer は interceptor / health / reflection 込みの gRPC サーバを組み立てる。
func NewServer(uc todo_usecase.Usecase, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// request id を最初に載せて、recovery のログにも出るようにする
	unaryInterceptors := []grpc.UnaryServerInterceptor{
		NewRequestIDUnaryInterceptor(),
		NewRecoveryUnaryInterceptor(logger),
		NewLoggingUnaryInterceptor(logger),
		NewMetricsUnaryInterceptor(m),
		NewTimeoutUnaryInterceptor(logger, timeout),
	}

	streamInterceptors := []grpc.StreamServerInterceptor{
		NewRecoveryStreamInterceptor(logger),
		NewLoggingStreamInterceptor(logger),
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	// ---- Health & Reflection ----
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	// ---- TodoList Service ----
	RegisterTodoListServiceServer(grpcServer, NewTodoHandler(uc, logger, m))
	healthSrv.SetServingStatus(TodoListServiceName, healthpb.HealthCheckResponse_SERVING)

	return grpcServer, healthSrv
}
