// Package web serves the uptime endpoint polled by external monitors.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewRouter answers GET / with a fixed liveness string.
func NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Bot is alive!")
	})
	return r
}

func NewServer(addr string, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("Liveness endpoint listening", "component", "web", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Liveness endpoint stopped", "component", "web", "err", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
