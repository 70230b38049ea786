package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/handler"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

// NewServer wires the operator API and the metrics endpoint.
func NewServer(port string, leaks handler.LeakHandler, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router: router,
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
	s.setupRoutes(leaks, gatherer)
	return s
}

func (s *Server) setupRoutes(leaks handler.LeakHandler, gatherer prometheus.Gatherer) {
	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api/leaks")
	{
		api.GET("", leaks.GetAllLeaks)
		api.GET("/stats", leaks.GetStats)
		api.GET("/export/csv", leaks.ExportCSV)
		api.GET("/:id", leaks.GetLeakByID)
		api.PUT("/:id/status", leaks.UpdateLeakStatus)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server exited")
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
