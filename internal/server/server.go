package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	ginprom "github.com/zsais/go-gin-prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mkurzov/marketd/internal/config"
	"github.com/mkurzov/marketd/internal/provider"
	"github.com/mkurzov/marketd/internal/ratelimit"
	"github.com/mkurzov/marketd/internal/stream"
)

// Server wires the gin engine, middleware and routes around a Provider.
type Server struct {
	cfg       *config.ServiceConfig
	engine    *gin.Engine
	http      *http.Server
	provider  *provider.Provider
	limiter   *ratelimit.Limiter
	streamCfg stream.Config
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New assembles the engine, middleware and routes. A nil limiter leaves the
// market data routes ungated; a nil logger falls back to slog.Default().
// The server does not listen until Run is called.
func New(cfg *config.ServiceConfig, p *provider.Provider, limiter *ratelimit.Limiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		provider: p,
		limiter:  limiter,
		streamCfg: stream.Config{
			MinInterval:     cfg.Stream.MinPollInterval,
			MaxInterval:     cfg.Stream.MaxPollInterval,
			DefaultInterval: cfg.Stream.DefaultPollInterval,
		},
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	prom := ginprom.NewPrometheus("marketd")
	prom.Use(engine)
	engine.Use(gin.Recovery(), cors.Default(), s.requestLog())
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/exchanges", s.handleExchanges)
	s.engine.GET("/markets/:exchange", s.handleMarkets)

	// Only the two market data routes consume rate limit tokens.
	rl := s.rateLimit()
	s.engine.GET("/price/:exchange/*symbol", rl, s.handlePrice)
	s.engine.GET("/historical/:exchange/*symbol", rl, s.handleHistorical)

	s.engine.GET("/ws/:exchange/*symbol", s.handleStream)

	admin := s.engine.Group("/admin")
	admin.POST("/clear-cache", s.handleClearCache)
	admin.GET("/cache-stats", s.handleCacheStats)
}

// Run serves until ctx is canceled, then shuts down gracefully within the
// configured timeout. Streaming sessions inherit ctx through the request
// base context, so they end with the server.
func (s *Server) Run(ctx context.Context) error {
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
