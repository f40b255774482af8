package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/slotboard/libs/grpcx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newGrpcServer(logger *slog.Logger, service string) (*grpc.Server, *health.Server) {
	srv := grpcx.NewServer(logger)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// startGrpcServer serves the health service on lis until ctx is cancelled. Statuses flip to
// NOT_SERVING before the graceful stop so balancers drain first.
func startGrpcServer(ctx context.Context, logger *slog.Logger, service string, lis net.Listener) {
	srv, hs := newGrpcServer(logger, service)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
}
