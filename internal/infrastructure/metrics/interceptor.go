package metrics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Recorder receives domain events from the page attribute service.
// Both Collector and PrometheusExporter implement it.
type Recorder interface {
	RecordPageError(code string)
	RecordAssignments(operation string, count int)
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = (*PrometheusExporter)(nil)
)

// UnaryServerInterceptor returns a gRPC interceptor that records metrics for each request.
// The exporter may be nil.
func UnaryServerInterceptor(collector *Collector, exporter *PrometheusExporter) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		method := info.FullMethod

		collector.RecordRequest(method)
		if exporter != nil {
			exporter.RecordRequest(method)
		}

		resp, err := handler(ctx, req)

		duration := time.Since(start).Seconds()
		collector.RecordDuration(method, duration)
		if exporter != nil {
			exporter.RecordDuration(method, duration)
		}

		if status.Code(err) != codes.OK {
			collector.RecordError(method)
			if exporter != nil {
				exporter.RecordError(method)
			}
		}

		return resp, err
	}
}
