package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/config"
	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/internal/server"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/pagecount.yaml", "Path to configuration file (empty for built-in defaults)")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pagecount %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.NewLoader().Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	}

	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, err := logging.NewWithOptions(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Encoding,
		Output: cfg.Logging.Output,
		Rotation: logging.Rotation{
			MaxSize:    cfg.Logging.Rotation.MaxSize,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			Compress:   cfg.Logging.Rotation.Compress,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logging.Info("Starting pagecount",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("session_store", cfg.Session.Store),
		zap.String("session_reset", cfg.Tracking.SessionReset),
		zap.Int("routes", len(cfg.Routes)),
	)

	srv, err := server.New(cfg, *configPath)
	if err != nil {
		logging.Error("Failed to create server", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		logging.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}
