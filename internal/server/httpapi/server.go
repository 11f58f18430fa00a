// Package httpapi exposes the authentication operations over HTTP. It is the
// only wire surface of the service.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medpoint/authsvc/internal/logging"
	"github.com/medpoint/authsvc/internal/server/config"
	"github.com/medpoint/authsvc/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address      string
	auth         *services.AuthService
	cookieSecure bool
	logger       logging.Logger
	engine       *gin.Engine
}

func NewServer(l logging.Logger, auth *services.AuthService, cfg *config.Config) *Server {
	s := &Server{
		address:      cfg.EndpointAddr,
		auth:         auth,
		cookieSecure: cfg.CookieSecure,
		logger:       l.With("module", "http_server"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.registerRoutes(engine)
	s.engine = engine

	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api/v1/auth")
	api.POST("/login", s.login)
	api.POST("/refresh", s.refresh)

	authorized := api.Group("")
	authorized.Use(s.requireAuth())
	authorized.POST("/logout", s.logout)
	authorized.GET("/me", s.me)
}

// Handler returns the HTTP handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.engine}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
