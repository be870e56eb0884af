package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-doc-search/api"
	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/engine"
	"github.com/gcbaptista/go-doc-search/internal/logger"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	"github.com/gcbaptista/go-doc-search/internal/source"
)

const version = "v1.0.0"

func main() {
	// Define command-line flags
	var (
		help        = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to a YAML config file")
		port        = flag.Int("port", 0, "Port to run the server on (overrides config)")
		dataDir     = flag.String("data-dir", "", "Directory to store index snapshots (overrides config)")
	)

	flag.Parse()

	if *help {
		fmt.Printf("Doc Search - Sphinx documentation search index and query service\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                              # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --config docsearch.yaml      # Load settings from a file\n", os.Args[0])
		fmt.Printf("  %s --port 9000                  # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --data-dir /tmp/docsearch    # Use custom data directory\n", os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Doc Search %s\n", version)
		fmt.Printf("Imports and serves Sphinx searchindex.js files\n")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.WithComponent("main")

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	fetcher, err := source.NewRouter(cfg.Storage, cfg.S3)
	if err != nil {
		return fmt.Errorf("configure import sources: %w", err)
	}

	log.Info("using data directory", "path", cfg.Storage.DataDir)
	eng, err := engine.NewEngine(engine.Options{
		DataDir:      cfg.Storage.DataDir,
		MaxWorkers:   cfg.Jobs.MaxWorkers,
		JobRetention: cfg.Jobs.Retention,
		Defaults:     cfg.Defaults,
		Source:       fetcher,
		Metrics:      m,
	})
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	preload(ctx, cfg, eng, log)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(eng, m, cfg.Server)
	if m != nil && cfg.Metrics.Path != "" && cfg.Metrics.Path != api.DefaultMetricsPath {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// preload imports the configured indexes that were not restored from the
// data directory. A failed preload is logged and does not stop the server.
func preload(ctx context.Context, cfg *config.Config, eng *engine.Engine, log *slog.Logger) {
	existing := eng.ListIndexes()
	for _, p := range cfg.Preload {
		if slices.Contains(existing, p.Name) {
			log.Debug("preload skipped, index already present", "index", p.Name)
			continue
		}
		settings := cfg.IndexDefaults(p.Name)
		if err := eng.ImportFromSource(ctx, p.Name, p.Source, &settings); err != nil {
			log.Error("preload failed", "index", p.Name, "source", p.Source, "error", err)
			continue
		}
		log.Info("preloaded index", "index", p.Name, "source", p.Source)
	}
}
