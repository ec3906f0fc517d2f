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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
	"github.com/harisabid200/ChatFlowUI/internal/forwarder"
	"github.com/harisabid200/ChatFlowUI/internal/origin"
	"github.com/harisabid200/ChatFlowUI/internal/ratelimit"
	"github.com/harisabid200/ChatFlowUI/internal/relay"
	"github.com/harisabid200/ChatFlowUI/internal/server"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
	"github.com/harisabid200/ChatFlowUI/pkg/logger"
	"github.com/harisabid200/ChatFlowUI/pkg/metrics"
	"github.com/harisabid200/ChatFlowUI/pkg/version"
)

const shutdownGrace = 10 * time.Second

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of chatflowui",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chatflowui version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "chatflowui",
		Short: "ChatFlowUI relay server",
		Long:  `ChatFlowUI relays chat-widget messages to per-chatbot webhooks and routes asynchronous responses back to browser sessions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CHATFLOWUI_CONF")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting chatflowui",
		zap.String("version", version.Get()),
		zap.String("env", cfg.Server.Env))

	store, err := storage.NewStore(&cfg.Database)
	if err != nil {
		log.Error("failed to initialize storage", zap.Error(err))
		return err
	}
	defer func() { _ = store.Close() }()

	limiter, err := ratelimit.NewStore(log, &cfg.RateLimit)
	if err != nil {
		log.Error("failed to initialize rate-limit store", zap.Error(err))
		return err
	}
	defer func() { _ = limiter.Close() }()

	validator := origin.NewValidator(log, cfg, store)
	router := relay.NewRouter(log, store, validator)
	defer router.Close()
	fwd := forwarder.New(log, store, &cfg.Forwarder)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	srv := server.New(log, cfg, store, validator, router, fwd, limiter, m)
	srv.RegisterRoutes(engine)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server failed", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
