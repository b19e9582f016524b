package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/infrastructure/tokenstore"
	"github.com/ngoclaw/upstreamgw/internal/interfaces/http/handlers"
	"github.com/ngoclaw/upstreamgw/internal/interfaces/http/middleware"
)

// Server wraps the gin-backed HTTP listener and its lifecycle.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config carries the server's network and runtime settings.
type Config struct {
	Host             string
	Port             int
	Mode             string // debug, release
	AllowedProviders []string
	RequireChecksum  bool
}

// NewServer wires the OpenAI- and Anthropic-compatible handlers behind the
// auth and checksum middleware and returns an unstarted server.
func NewServer(cfg Config, store *tokenstore.Store, openaiHandler *handlers.OpenAIHandler, anthropicHandler *handlers.AnthropicHandler, logger *zap.Logger) *Server {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	setupRoutes(router, cfg, store, openaiHandler, anthropicHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

// Start begins serving in the background and returns immediately.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(router *gin.Engine, cfg Config, store *tokenstore.Store, openaiHandler *handlers.OpenAIHandler, anthropicHandler *handlers.AnthropicHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	chain := []gin.HandlerFunc{middleware.Auth(store, cfg.AllowedProviders)}
	if cfg.RequireChecksum {
		chain = append(chain, middleware.Checksum())
	}

	oai := router.Group("/v1", chain...)
	{
		oai.POST("/chat/completions", openaiHandler.ChatCompletions)
		oai.GET("/models", openaiHandler.ListModels)
	}

	anthropicGroup := router.Group("/v1", chain...)
	{
		anthropicGroup.POST("/messages", anthropicHandler.Messages)
		anthropicGroup.POST("/messages/count_tokens", anthropicHandler.CountTokens)
	}
}

// ginLogger mirrors gin's default logger with structured zap output.
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
