// Package server exposes the conversion layer over HTTP for diagnostics:
// encode a value, decode captured bytes, inspect the compiled field table.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/slac-epics/streamdevice/internal/observability"
	"github.com/slac-epics/streamdevice/internal/stream"
)

const version = "0.1.0"

type Config struct {
	Name        string
	Addr        string
	CorsOrigins []string
}

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	transcoder *stream.Transcoder
	fields     *stream.Table
	router     *gin.Engine
	httpServer *http.Server
}

// New builds the router and registers every route. fields may be nil.
func New(cfg Config, transcoder *stream.Transcoder, fields *stream.Table) *Server {
	observability.RegisterMetrics()
	if fields == nil {
		fields = stream.NewTable()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger, "/health", "/metrics"))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:       cfg.Name,
		Addr:       cfg.Addr,
		Appeared:   time.Now(),
		transcoder: transcoder,
		fields:     fields,
		router:     r,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	log.Info().Str("service", s.Name).Str("addr", s.Addr).Msg("http server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server. Calling it before ListenAndServe makes the later
// call return nil immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
