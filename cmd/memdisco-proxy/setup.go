package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/maxpoletaev/memdisco/api"
	"github.com/maxpoletaev/memdisco/backend"
	"github.com/maxpoletaev/memdisco/healthcheck"
)

type shutdownFunc func(ctx context.Context) error

var noopShutdown = func(ctx context.Context) error { return nil }

func setupLogger() (kitlog.Logger, shutdownFunc) {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	if !opts.Verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return logger, noopShutdown
}

func setupBackend(logger kitlog.Logger) (*backend.Backend, shutdownFunc) {
	conf, err := backend.ParseParams(opts.Cluster.Endpoint, backendParams())
	if err != nil {
		panic(fmt.Sprintf("invalid cache configuration: %v", err))
	}

	conf.Logger = logger
	conf.Client.Logger = logger

	b, err := backend.New(conf)
	if err != nil {
		panic(fmt.Sprintf("failed to create cache backend: %v", err))
	}

	shutdown := func(ctx context.Context) error {
		logger.Log("msg", "closing cache backend")
		return b.Close()
	}

	return b, shutdown
}

func setupAPIServer(wg *sync.WaitGroup, b *backend.Backend, logger kitlog.Logger) (*http.Server, shutdownFunc) {
	restAPI := &http.Server{
		Addr:    opts.RestAPI.BindAddr,
		Handler: api.CreateRouter(b),
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		if err := restAPI.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				panic(fmt.Sprintf("failed to start REST API server: %v", err))
			}
		}
	}()

	shutdown := func(ctx context.Context) error {
		logger.Log("msg", "shutting down API server")

		if err := restAPI.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown REST API server: %w", err)
		}

		return nil
	}

	return restAPI, shutdown
}

func setupGRPCServer(wg *sync.WaitGroup, logger kitlog.Logger) (*health.Server, shutdownFunc) {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	wg.Add(1)

	go func() {
		defer wg.Done()

		listener, err := net.Listen("tcp", opts.GRPC.BindAddr)
		if err != nil {
			panic(fmt.Sprintf("failed to create GRPC listener: %v", err))
		}

		if err := grpcServer.Serve(listener); err != nil {
			panic(fmt.Sprintf("failed to start GRPC server: %v", err))
		}
	}()

	shutdown := func(ctx context.Context) error {
		logger.Log("msg", "shutting down GRPC server")
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		return nil
	}

	return healthServer, shutdown
}

func setupHealthCheck(wg *sync.WaitGroup, b *backend.Backend, hs *health.Server, logger kitlog.Logger) shutdownFunc {
	ctx, cancel := context.WithCancel(context.Background())

	checker := healthcheck.New(b, hs, logger,
		healthcheck.WithInterval(time.Duration(opts.Cluster.HealthInterval)*time.Millisecond),
	)

	wg.Add(1)

	go func() {
		defer wg.Done()
		checker.RunLoop(ctx)
	}()

	return func(ctx context.Context) error {
		cancel()
		return nil
	}
}
