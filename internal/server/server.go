// Package server exposes the pronunciation diagnosis tool over HTTP: the
// single-page UI, the analysis API, a websocket progress feed, and the
// operational endpoints (health, metrics, session archive).
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hatsuonlab/hatsuon/internal/archive"
	"github.com/hatsuonlab/hatsuon/internal/diagnosis"
	"github.com/hatsuonlab/hatsuon/internal/health"
	"github.com/hatsuonlab/hatsuon/internal/observe"
)

// Analyzer runs one analysis request. Implemented by *diagnosis.Pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req diagnosis.Request) (*diagnosis.Result, error)
}

// Config collects the server's collaborators and settings.
type Config struct {
	// ListenAddr is the TCP address to serve on.
	ListenAddr string

	// MaxUploadBytes caps multipart audio uploads.
	MaxUploadBytes int64

	// AdminPassword guards GET /api/sessions; empty disables the endpoint.
	AdminPassword string

	Analyzer Analyzer
	Hub      *Hub
	Store    archive.Store    // optional
	Health   *health.Handler  // optional
	Metrics  *observe.Metrics // optional, defaults to observe.DefaultMetrics()
}

// Server is the hatsuon HTTP server.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("server: Analyzer is required")
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(observe.Middleware(cfg.Metrics))
	engine.MaxMultipartMemory = cfg.MaxUploadBytes

	s := &Server{cfg: cfg, engine: engine}
	s.routes()
	return s, nil
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/api/session", s.handleNewSession)
	s.engine.POST("/api/analyze", s.handleAnalyze)
	s.engine.GET("/ws/progress", s.handleProgress)
	s.engine.GET("/api/sessions", s.handleListSessions)

	if s.cfg.Health != nil {
		s.engine.GET("/healthz", gin.WrapF(s.cfg.Health.Healthz))
		s.engine.GET("/readyz", gin.WrapF(s.cfg.Health.Readyz))
	}
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen on %s: %w", s.cfg.ListenAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
