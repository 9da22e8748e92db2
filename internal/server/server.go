// Package server exposes the pipeline over HTTP: the streaming chat endpoint,
// the download proxy, metrics and optional static files.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/files"
	"github.com/kitbuilder587/orbe-search/internal/metrics"
	"github.com/kitbuilder587/orbe-search/internal/ratelimit"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

const (
	ChatPath    = "/api/search-and-chat"
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

// Deps - зависимости HTTP сервера. Limiter, Metrics и Gatherer опциональны.
type Deps struct {
	Pipeline service.QueryProcessor
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	StaticDir       string
	ProxyClient     *http.Client
	ShutdownTimeout time.Duration
	TrustedProxies  []string
}

type Server struct {
	engine          *gin.Engine
	pipeline        service.QueryProcessor
	limiter         *ratelimit.Limiter
	metrics         *metrics.Metrics
	logger          *zap.Logger
	proxyClient     *http.Client
	shutdownTimeout time.Duration
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ProxyClient == nil {
		deps.ProxyClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if deps.ShutdownTimeout <= 0 {
		deps.ShutdownTimeout = 10 * time.Second
	}

	engine := gin.New()
	// по умолчанию gin верит X-Forwarded-For от любого клиента
	if err := engine.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Logger.Warn("invalid trusted proxies, forwarded headers ignored", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	s := &Server{
		engine:          engine,
		pipeline:        deps.Pipeline,
		limiter:         deps.Limiter,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		proxyClient:     deps.ProxyClient,
		shutdownTimeout: deps.ShutdownTimeout,
	}
	s.routes(deps)
	return s
}

func (s *Server) routes(deps Deps) {
	e := s.engine
	e.Use(corsMiddleware(), requestIDMiddleware(), s.loggingMiddleware(), s.recoveryMiddleware())

	chat := []gin.HandlerFunc{}
	if s.limiter != nil {
		chat = append(chat, s.rateLimitMiddleware())
	}
	chat = append(chat, s.handleChat)
	e.POST(ChatPath, chat...)
	e.GET(files.ProxyPath, s.handleDownloadProxy)

	e.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		e.GET(MetricsPath, gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	if deps.StaticDir != "" {
		static := http.FileServer(http.Dir(deps.StaticDir))
		e.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.String(http.StatusNotFound, "Not Found")
				return
			}
			static.ServeHTTP(c.Writer, c.Request)
		})
	} else {
		e.NoRoute(func(c *gin.Context) {
			c.String(http.StatusNotFound, "Not Found")
		})
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
