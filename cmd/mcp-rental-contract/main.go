package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-rental-contract/internal/config"
	"github.com/a3tai/mcp-rental-contract/internal/contract"
	"github.com/a3tai/mcp-rental-contract/internal/delivery"
	"github.com/a3tai/mcp-rental-contract/internal/document"
	"github.com/a3tai/mcp-rental-contract/internal/logging"
	"github.com/a3tai/mcp-rental-contract/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const bucketCheckTimeout = 10 * time.Second

// setupLogging builds the process logger. In stdio mode stdout carries the
// protocol, so only warnings reach stderr unless debug is enabled.
func setupLogging(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Path:   cfg.LogFile,
		Writer: w,
		Quiet:  cfg.IsStdioMode(),
	})
}

// documentConfig returns the document configuration, loading a custom
// layout when one is configured.
func documentConfig(cfg *config.Config, logger zerolog.Logger) (document.Config, error) {
	docs, err := document.DefaultConfig(logger)
	if err != nil {
		return document.Config{}, err
	}
	docs.Producer = cfg.ServerName + " " + cfg.Version
	if cfg.LayoutFile == "" {
		return docs, nil
	}

	data, err := os.ReadFile(cfg.LayoutFile)
	if err != nil {
		return document.Config{}, fmt.Errorf("failed to read layout file: %w", err)
	}
	layout, err := document.ParseLayout(data)
	if err != nil {
		return document.Config{}, fmt.Errorf("layout file %s: %w", cfg.LayoutFile, err)
	}
	docs.Layout = layout
	return docs, nil
}

// buildServer wires the contract service and delivery targets into an MCP
// server.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*mcp.Server, error) {
	docs, err := documentConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	files, err := delivery.NewDirSink(cfg.OutputDirectory, logger)
	if err != nil {
		return nil, err
	}

	deps := mcp.Dependencies{
		Documents: docs,
		Files:     files,
		Printer:   delivery.NewCommandPrinter(cfg.PrintCommand, cfg.PrintArgs, logger),
	}

	if cfg.Storage.Enabled() {
		objects, err := delivery.NewObjectSink(delivery.ObjectConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Prefix:    cfg.Storage.Prefix,
			UseSSL:    cfg.Storage.UseSSL,
			URLExpiry: cfg.Storage.URLExpiry,
		}, logger)
		if err != nil {
			return nil, err
		}
		checkCtx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
		err = objects.EnsureBucket(checkCtx)
		cancel()
		if err != nil {
			return nil, err
		}
		deps.Objects = objects
	}

	deps.Contracts = contract.NewService(
		contract.NewMemoryStore(cfg.MaxRecords),
		docs,
		contract.NewLogNotifier(logger),
		contract.Options{ExportWorkers: cfg.ExportWorkers},
	)

	return mcp.NewServer(cfg, deps)
}

// run serves until ctx is cancelled or, in stdio mode, the input ends.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	server, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	if cfg.IsServerMode() {
		logger.Info().Msg("server stopped successfully")
	}
	return nil
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := setupLogging(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Debug().Str("config", cfg.String()).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger.Logger); err != nil {
		logger.Error().Err(err).Msg("server error")
		logger.Close()
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Rental Contract Server\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
