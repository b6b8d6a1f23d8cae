package grpcadapter

import (
	"context"
	"path"
	"time"

	"github.com/hijjiri/todo-list/internal/metrics"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// NewMetricsUnaryInterceptor は RPC ごとに件数とレイテンシを記録する。
// operation ラベルは FullMethod の末尾（ListTodos など）。
func NewMetricsUnaryInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		m.Observe("grpc", path.Base(info.FullMethod), status.Code(err).String(), time.Since(start))
		return resp, err
	}
}
