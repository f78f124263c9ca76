package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/creative-composer/internal/compiler"
	"github.com/jonathan/creative-composer/internal/config"
	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/filestore"
	"github.com/jonathan/creative-composer/internal/llm"
	"github.com/jonathan/creative-composer/internal/observability"
	"github.com/jonathan/creative-composer/internal/pipeline"
	"github.com/jonathan/creative-composer/internal/render"
)

// agentDeps bundles the backing services a CLI command needs to drive the
// pipeline directly, without going through the HTTP server.
type agentDeps struct {
	database *db.DB
	blobs    *filestore.Store
	client   llm.Client
	orch     *pipeline.Orchestrator
	printer  *observability.Printer
}

// loadAgentConfig layers a JSON config file (when given) over environment
// variables. Flag values are applied by the callers on top.
func loadAgentConfig(path string) (config.Config, error) {
	cfg := config.FromEnv()
	if path == "" {
		return cfg, nil
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return config.Config{}, err
	}
	return loaded.MergeWithDefaults(cfg), nil
}

// buildDeps connects the database, the object store, and the capability
// client, and wires the orchestrator over them.
func buildDeps(ctx context.Context, cfg config.Config) (*agentDeps, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	blobs, err := filestore.New(ctx, filestore.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to object store: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create capability client: %w", err)
	}

	return &agentDeps{
		database: database,
		blobs:    blobs,
		client:   client,
		orch: pipeline.NewOrchestrator(
			database, blobs,
			compiler.NewCompiler(client),
			render.NewGenerator(client),
		),
		printer: observability.NewPrinter(os.Stdout),
	}, nil
}

func (d *agentDeps) Close() {
	if d.client != nil {
		_ = d.client.Close()
	}
	if d.database != nil {
		d.database.Close()
	}
}
