// Journeyd is the customer-journey analytics daemon.
//
// It ingests touchpoints over HTTP, stitches them into session-windowed
// customer journeys, and runs the periodic analysis jobs (drop-off,
// conversion-path mining, optimization generation). Derived results are
// served over the query API and state changes are published to NATS.
//
// Configuration is loaded from ~/.config/journeyd/config.yaml (or -config)
// and JOURNEYD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	journeyd
//
//	# Configure via environment
//	JOURNEYD_SERVER_PORT=9092 JOURNEYD_NATS_URL=nats://localhost:4222 journeyd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/config"
	"github.com/fyrsmithlabs/journeyd/internal/engine"
	"github.com/fyrsmithlabs/journeyd/internal/events"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ~/.config/journeyd/config.yaml)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  journeyd           Start the journeyd daemon\n")
			fmt.Fprintf(os.Stderr, "  journeyd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("journeyd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the journeyd daemon and blocks until the context is cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Connects the outbound event publisher (NATS, or no-op when unset)
//  4. Constructs the engine and starts the analysis scheduler
//  5. Starts the HTTP server and blocks until shutdown
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting journeyd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("stitch_window", cfg.Stitch.Window),
		zap.Duration("dropoff_interval", cfg.Analysis.DropOffInterval),
		zap.Duration("path_mining_interval", cfg.Analysis.PathMiningInterval),
		zap.Duration("optimization_interval", cfg.Analysis.OptimizationInterval),
	)

	publisher, closePublisher, err := initPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize event publisher: %w", err)
	}
	defer closePublisher()

	store := journey.NewMemoryStore()

	eng, err := engine.New(store, publisher, logger.Named("engine"),
		engine.WithWindow(cfg.Stitch.Window),
		engine.WithIntervals(engine.Intervals{
			DropOff:      cfg.Analysis.DropOffInterval,
			PathMining:   cfg.Analysis.PathMiningInterval,
			Optimization: cfg.Analysis.OptimizationInterval,
		}),
		engine.WithStaleAfter(cfg.Analysis.StaleAfter),
	)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	if err := eng.Start(); err != nil {
		return fmt.Errorf("start analysis scheduler: %w", err)
	}
	defer eng.Stop()

	srv := server.NewServer(cfg, eng, logger.Named("http"))
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}

// initLogger initializes the structured logger.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Observability.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initPublisher connects to NATS when a URL is configured; otherwise events
// are discarded. The daemon runs fine without a broker.
func initPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, func(), error) {
	if cfg.NATS.URL == "" {
		logger.Info("No NATS URL configured, event publishing disabled")
		return events.NopPublisher{}, func() {}, nil
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))

	publisher, err := events.NewNATSPublisher(nc, logger.Named("events"))
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return publisher, nc.Close, nil
}
