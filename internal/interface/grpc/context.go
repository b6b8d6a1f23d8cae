package grpcadapter

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request-id"

// HTTP の X-Request-Id に相当するメタデータキー
const mdKeyRequestID = "x-request-id"

// ----- request_id -----

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKeyRequestID)
	s, ok := v.(string)
	return s, ok
}

// requestIDFromMetadata はクライアントが送ってきた x-request-id を使い、無ければ採番する。
func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(mdKeyRequestID); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return uuid.NewString()
}

// NewRequestIDUnaryInterceptor は request_id を ctx に載せ、レスポンスヘッダにも返す。
func NewRequestIDUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(mdKeyRequestID, rid))
		return handler(WithRequestID(ctx, rid), req)
	}
}
