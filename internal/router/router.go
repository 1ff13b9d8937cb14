package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/handlers"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/middleware"
)

// Dependencies are the handlers and middleware the router wires
type Dependencies struct {
	Proofs *handlers.ProofHandler
	// Runs is nil when no run ledger is configured
	Runs   *handlers.RunsHandler
	Auth   *middleware.AuthMiddleware
	CORS   config.CORSConfig
	Logger *logrus.Logger
}

// corsMiddleware CORS middleware; no configured origins allows all (*)
func corsMiddleware(cfg config.CORSConfig, logger *logrus.Logger) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	maxAge := 3600
	if cfg.MaxAge > 0 {
		maxAge = cfg.MaxAge
	}
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			} else {
				logger.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
					"remote_addr":     c.ClientIP(),
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if cfg.AllowCredentials && !allowAll {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRouter builds the HTTP API
func SetupRouter(deps *Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestMetrics())
	r.Use(corsMiddleware(deps.CORS, logger))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/health", handlers.HealthCheckHandler)

	v1 := api.Group("/v1")
	{
		// stateless helpers
		v1.GET("/vkey", deps.Proofs.VKeyHandler)
		v1.POST("/public-values/parse", deps.Proofs.ParsePublicValuesHandler)

		protected := v1.Group("")
		protected.Use(deps.Auth.RequireAuth())
		protected.POST("/dead-address", deps.Proofs.DeadAddressHandler)
		protected.POST("/withdrawals/execute", deps.Proofs.ExecuteHandler)
		protected.POST("/withdrawals/prove", deps.Proofs.ProveHandler)

		if deps.Runs != nil {
			protected.GET("/runs", deps.Runs.ListRunsHandler)
			protected.GET("/runs/:id", deps.Runs.GetRunHandler)
			protected.GET("/nullifiers/:nullifier/runs", deps.Runs.RunsByNullifierHandler)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "API endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	logger.WithField("runs_api", deps.Runs != nil).Info("Router configured")
	return r
}
