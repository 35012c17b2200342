package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"story-server/internal/config"
	"story-server/internal/handler"
	"story-server/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	cfg.Log(log)

	if err := startupCheck(cfg, log); err != nil {
		log.Error("Startup check failed", zap.Error(err))
		return err
	}

	application, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer application.Close()

	router := newRouter(cfg, log, application)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// WriteTimeout stays unset, streamed generations have no upper bound.
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server listen error", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
	return nil
}

func newRouter(cfg *config.Config, logger *zap.Logger, a *app) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ZapLoggingMiddlewareForGin(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	origins := cfg.GetAllowedOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Must run before the routes are registered, gin copies middleware into each route.
	p.Use(router)

	h := handler.NewStoryHandler(a.generator, a.stories, a.catalog, a.documents, logger)
	h.RegisterRoutes(router)

	return router
}
