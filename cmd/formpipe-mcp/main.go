package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/cancelei/ca-small-claims/internal/config"
	"github.com/cancelei/ca-small-claims/internal/extract"
	"github.com/cancelei/ca-small-claims/internal/fill"
	"github.com/cancelei/ca-small-claims/internal/generate"
	"github.com/cancelei/ca-small-claims/internal/mcp"
	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/store"
	"github.com/cancelei/ca-small-claims/internal/syncer"
	"github.com/cancelei/ca-small-claims/internal/templates"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging redirects log output away from stdout, which carries the
// MCP protocol stream.
func setupLogging(cfg *config.Config) *slog.Logger {
	log.SetOutput(os.Stderr)
	if !cfg.IsDebug() {
		log.SetOutput(os.NewFile(0, os.DevNull))
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// This binary only speaks the stdio transport.
	cfg.Mode = config.ModeStdio
	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open field store: %v", err)
	}
	defer db.Close()

	tpl := templates.NewDir(cfg.TemplatesDir)
	extractor := extract.NewExtractor(logger)

	resolver := fill.NewResolver()
	if path := cfg.PdftkPath; path != "" {
		resolver.Lookup = func() (string, error) { return path, nil }
	}
	filler := fill.NewFillerWithBackends(tpl, db, cfg.OutputDir,
		fill.NewPDFCPUFiller(), fill.NewPdftkFiller(resolver), logger)

	server, err := mcp.NewServer(cfg, mcp.Deps{
		Templates: tpl,
		Extractor: extractor,
		Generator: generate.NewGenerator(tpl, extractor, cfg.SchemasDir, logger),
		Validator: &schema.Validator{TemplatesDir: cfg.TemplatesDir},
		Syncer:    syncer.New(db, logger),
		Filler:    filler,
		Store:     db,
	})
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The parent process controls our lifecycle; exit cleanly when stdin
	// closes or the transport errors.
	if err := server.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Form Pipeline MCP Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
