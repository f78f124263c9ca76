package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/creative-composer/internal/types"
)

var (
	batchConfigPath  string
	batchManifest    string
	batchReviewer    string
	batchConcurrency int
)

// batchEntry is one manifest item: a product image plus its run attributes.
type batchEntry struct {
	Image      string              `json:"image"`
	Format     string              `json:"format,omitempty"`
	Attributes types.RunAttributes `json:"attributes"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Start creative runs for a manifest of product images",
	Long: `Reads a JSON manifest of product images and attributes, and compiles a
draft for each concurrently. Every run then waits at the review gate;
approve them individually with 'approve'.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchConfigPath, "config", "", "Path to config.json file")
	batchCmd.Flags().StringVarP(&batchManifest, "manifest", "m", "", "Path to the manifest JSON file (required)")
	batchCmd.Flags().StringVarP(&batchReviewer, "reviewer", "r", "", "Reviewer ID that owns the runs (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "Runs compiled at once")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if batchManifest == "" {
		return fmt.Errorf("--manifest is required")
	}
	if batchReviewer == "" {
		return fmt.Errorf("--reviewer is required")
	}

	data, err := os.ReadFile(batchManifest)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	var entries []batchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse manifest JSON: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest is empty")
	}

	cfg, err := loadAgentConfig(batchConfigPath)
	if err != nil {
		return err
	}
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var mu sync.Mutex
	awaiting, failed := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, entry := range entries {
		g.Go(func() error {
			imageData, err := os.ReadFile(entry.Image)
			if err != nil {
				return fmt.Errorf("entry %d: failed to read image: %w", i, err)
			}
			format := entry.Format
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(entry.Image), ".")
			}

			record, err := deps.orch.Start(gctx, batchReviewer, imageData, format, entry.Attributes)
			if err != nil {
				return fmt.Errorf("entry %d (%s): %w", i, entry.Image, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if record.State == types.RunStateFailed {
				failed++
				fmt.Printf("FAILED   %s  %s  [%s] %s\n", record.ID, entry.Image, record.RunError.Code, record.RunError.Message)
			} else {
				awaiting++
				fmt.Printf("AWAITING %s  %s\n", record.ID, entry.Image)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("\n%d run(s) awaiting review, %d failed.\n", awaiting, failed)
	if awaiting > 0 {
		fmt.Printf("Approve with: creative_agent approve --id <run-id> --reviewer %s\n", batchReviewer)
	}
	return nil
}
