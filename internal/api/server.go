package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/auth"
	"github.com/byokey/byokey/internal/config"
	"github.com/byokey/byokey/internal/usage"
)

// Server is the gateway's HTTP ingress.
type Server struct {
	engine *gin.Engine
	server *http.Server

	cfg   *config.Store
	auth  *auth.Manager
	http  *http.Client
	usage *usage.Tracker
}

// NewServer wires the ingress over the config store and auth manager.
func NewServer(cfg *config.Store, manager *auth.Manager, client *http.Client) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	if client == nil {
		client = &http.Client{Timeout: 300 * time.Second}
	}
	s := &Server{
		engine: engine,
		cfg:    cfg,
		auth:   manager,
		http:   client,
		usage:  usage.NewTracker(),
	}
	s.setupRoutes()

	current := cfg.Current()
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", current.Host, current.Port),
		Handler: engine,
	}
	return s
}

func (s *Server) setupRoutes() {
	// OpenAI-compatible surface.
	s.engine.POST("/v1/chat/completions", s.handleChatCompletions)
	s.engine.GET("/v1/models", s.handleListModels)

	// Anthropic-native passthrough.
	s.engine.POST("/v1/messages", s.handleMessages)

	// Unconditional Copilot routing.
	s.engine.POST("/copilot/v1/chat/completions", s.handleCopilotChatCompletions)
	s.engine.POST("/copilot/v1/messages", s.handleCopilotMessages)

	// Amp surface: provider routes, login redirects, and the
	// transparent management proxy.
	s.engine.POST("/api/provider/anthropic/v1/messages", s.handleMessages)
	s.engine.POST("/api/provider/openai/v1/chat/completions", s.handleChatCompletions)
	s.engine.POST("/api/provider/openai/v1/responses", s.handleOpenAIResponses)
	s.engine.POST("/api/provider/google/v1beta/models/:action", s.handleGeminiNative)
	s.engine.GET("/amp/v1/login", s.handleAmpLogin)
	s.engine.GET("/amp/auth/cli-login", s.handleAmpCLILogin)
	s.engine.NoRoute(s.handleAmpProxy)

	// Factory passthrough.
	s.engine.Any("/factory/:provider/*path", s.handleFactoryProxy)

	// Management.
	s.engine.GET("/v0/management/usage", s.handleUsage)
}

// Run serves until the context is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleUsage(c *gin.Context) {
	c.JSON(http.StatusOK, s.usage.Snapshot())
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, anthropic-version, anthropic-beta")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
