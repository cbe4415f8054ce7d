// Package debugapi is kerneld's operator-facing HTTP surface: health,
// Prometheus metrics, and read-only introspection of live Core occupancy.
// It carries no IPC operations of its own — those are reached only in-process
// through core.Core; the gRPC listener cmd/kerneld wires up alongside this
// one serves health checks and reflection only.
package debugapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/backend/internal/core"
	"github.com/GriffinCanCode/AgentOS/backend/internal/klog"
	"github.com/GriffinCanCode/AgentOS/backend/internal/telemetry"
)

// Server wraps the debug HTTP listener and its dependencies.
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *klog.Logger
}

// New builds a Server exposing k's occupancy and m's collectors. log may be
// nil.
func New(k *core.Core, m *telemetry.Metrics, log *klog.Logger) *Server {
	if log == nil {
		log = klog.NewDefault()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	h := &handlers{kernel: k, metrics: m}
	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.GET("/stats", h.stats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{router: router, log: log}
}

// Run blocks serving on addr until ctx is cancelled or an unrecoverable
// listener error occurs.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("debug http listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
