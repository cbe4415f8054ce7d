// Command kerneld hosts a capability IPC kernel: a gRPC listener exposing
// only the standard health and reflection services (the kernel's IPC
// surface itself is reached in-process, not over the wire — kerneld is the
// process that embeds a core.Core, not a proxy to one) alongside a debug
// HTTP surface for metrics and occupancy introspection.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/GriffinCanCode/AgentOS/backend/internal/config"
	"github.com/GriffinCanCode/AgentOS/backend/internal/core"
	"github.com/GriffinCanCode/AgentOS/backend/internal/debugapi"
	"github.com/GriffinCanCode/AgentOS/backend/internal/klog"
	"github.com/GriffinCanCode/AgentOS/backend/internal/telemetry"
)

func main() {
	cfg := config.LoadOrDefault()

	logCfg := klog.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	log, err := klog.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kerneld: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting kerneld",
		zap.Int("max_handle_table_size", cfg.Kernel.MaxHandleTableSize),
		zap.String("grpc_port", cfg.Server.GRPCPort),
		zap.String("debug_port", cfg.Server.DebugPort),
	)

	var kernel *core.Core
	if cfg.RateLimit.Enabled {
		kernel = core.NewRateLimited(log.Logger, cfg.Kernel.MaxHandleTableSize, float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	} else {
		kernel = core.NewWithCapacity(log.Logger, cfg.Kernel.MaxHandleTableSize)
	}
	metrics := telemetry.NewMetrics()
	kernel.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grpcSrv := newGRPCServer()
	grpcErrCh := make(chan error, 1)
	go func() {
		grpcErrCh <- serveGRPC(grpcSrv, cfg.Server.Host, cfg.Server.GRPCPort, log)
	}()

	debugSrv := debugapi.New(kernel, metrics, log)
	debugErrCh := make(chan error, 1)
	go func() {
		debugErrCh <- debugSrv.Run(ctx, cfg.Server.Host+":"+cfg.Server.DebugPort)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-grpcErrCh:
		log.Error("grpc server exited", zap.Error(err))
	case err := <-debugErrCh:
		log.Error("debug http server exited", zap.Error(err))
	}

	grpcSrv.GracefulStop()
	stop()
	if err := kernel.Shutdown(); err != nil {
		log.Error("kernel shutdown reported errors", zap.Error(err))
	}
	log.Info("kerneld stopped")
}

func newGRPCServer() *grpc.Server {
	s := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, healthSrv)
	reflection.Register(s)
	return s
}

func serveGRPC(s *grpc.Server, host, port string, log *klog.Logger) error {
	addr := host + ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Info("grpc listening", zap.String("addr", addr))
	return s.Serve(lis)
}
