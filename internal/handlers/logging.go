package handlers

import (
	"context"
	"time"

	"github.com/asakaida/pagetypes/internal/infrastructure/logger"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnaryServerInterceptor logs one line per request. Server-side
// failures are logged at error level, rejected requests at warn level.
func LoggingUnaryServerInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if log == nil {
			return resp, err
		}

		code := status.Code(err)
		fields := []interface{}{
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"principal", permissions.PrincipalFromContext(ctx).ID,
		}

		switch code {
		case codes.OK:
			log.Info("gRPC request", fields...)
		case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
			log.Error("gRPC request", append(fields, "error", err)...)
		default:
			log.Warn("gRPC request", append(fields, "error", err)...)
		}
		return resp, err
	}
}
