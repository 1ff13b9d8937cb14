package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/app"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/handlers"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/logger"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/middleware"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/router"
)

var serveFlags struct {
	deployment      string
	deploymentsFile string
	noAuth          bool
}

// serverAuth picks the API auth. Without a JWT secret the server only starts
// when --no-auth is given and it listens on a loopback address.
func serverAuth(cfg *config.Config, noAuth bool, log *logrus.Logger) (*middleware.AuthMiddleware, error) {
	if cfg.Auth.JWTSecret != "" {
		return middleware.NewAuthMiddleware(log, cfg.Auth.JWTSecret), nil
	}
	if !noAuth {
		return nil, errors.New("auth.jwtSecret (or JWT_SECRET) is required to serve the API; use --no-auth only for local development")
	}
	if !isLoopback(cfg.Server.Host) {
		return nil, fmt.Errorf("--no-auth requires a loopback server.host, got %q", cfg.Server.Host)
	}
	return middleware.NewOpenAuthMiddleware(log), nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// serveCmd exposes the host over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the withdrawal API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(serveFlags.deployment, serveFlags.deploymentsFile)
		if err != nil {
			return err
		}
		log := logger.New(cfg.Log)
		auth, err := serverAuth(cfg, serveFlags.noAuth, log)
		if err != nil {
			return err
		}
		if log.IsLevelEnabled(logrus.DebugLevel) {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		container, err := app.InitializeContainer(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer container.Cleanup()

		deps := &router.Dependencies{
			Proofs: handlers.NewProofHandler(container.ProofService, cfg.ContractAddress(), log),
			Auth:   auth,
			CORS:   cfg.CORS,
			Logger: log,
		}
		if container.RunRepo != nil {
			deps.Runs = handlers.NewRunsHandler(container.RunRepo)
		}

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		server := &http.Server{
			Addr:              addr,
			Handler:           router.SetupRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("🌐 Withdrawal API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.deployment, "deployment", "", "named deployment to use")
	serveCmd.Flags().StringVar(&serveFlags.deploymentsFile, "deployments-file", "", "yaml file with extra deployments")
	serveCmd.Flags().BoolVar(&serveFlags.noAuth, "no-auth", false, "serve without a JWT secret (loopback hosts only)")
}
