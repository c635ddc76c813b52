package tapp

import (
	"context"
	"fmt"
	"net"

	transcriberpb "github.com/you-humble/sttqueue/core/grpc/gen"
	"github.com/you-humble/sttqueue/transcriber/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type app struct {
	di     *dependencyInjector
	srv    *grpc.Server
	health *health.Server
}

func New() *app {
	di := newDI()
	logger := di.Logger()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			service.RecoveryUnaryInterceptor(logger),
			service.UnaryLoggingInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			service.RecoveryStreamInterceptor(logger),
			service.StreamLoggingInterceptor(logger),
		),
	)
	transcriberpb.RegisterTranscriberServer(grpcServer, di.Service())

	hs := health.NewServer()
	hs.SetServingStatus(transcriberpb.Transcriber_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	return &app{
		di:     di,
		srv:    grpcServer,
		health: hs,
	}
}

func (a *app) Run(ctx context.Context) error {
	l := a.di.Logger()
	errCh := make(chan error, 1)

	lis, err := net.Listen("tcp", a.di.Config().Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		l.Info("transcriber gRPC service listening", "addr", lis.Addr().String())
		if err := a.srv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		l.Info("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.di.Config().ShutdownTimeout)
		defer cancel()

		if err := a.shutdown(shutdownCtx); err != nil {
			l.Error("graceful shutdown failed", "err", err)
		} else {
			l.Info("graceful shutdown completed")
		}

	case err := <-errCh:
		l.Error("server exited with error", "err", err)
		return err
	}

	return nil
}

// shutdown lets in-flight transcriptions finish until ctx expires, then
// cancels them.
func (a *app) shutdown(ctx context.Context) error {
	l := a.di.Logger()
	a.health.Shutdown()

	done := make(chan struct{})
	go func() {
		l.Info("stopping gRPC server gracefully...")
		a.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		l.Warn("graceful stop timed out, forcing stop")
		a.srv.Stop()
		return fmt.Errorf("shutdown timeout exceeded: %w", ctx.Err())
	case <-done:
		l.Info("gRPC server stopped")
		return nil
	}
}
