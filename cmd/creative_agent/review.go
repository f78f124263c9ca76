package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/creative-composer/internal/types"
)

var (
	reviewConfigPath string
	reviewRunID      string
	reviewReviewer   string
	approveOutput    string
	editSpecPath     string
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve the pending draft and render the creative",
	Long: `Freezes the run's draft spec, resolves element placements, and renders
the final creative. A placement conflict leaves the run at the review
gate so the spec can be edited and approved again.`,
	RunE: runApprove,
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Replace the pending draft with an edited spec",
	Long: `Replaces the run's draft spec with the full spec in the given JSON
file. The superseded draft is kept in the run's revision history. The
canvas is fixed per run and cannot be edited.`,
	RunE: runEdit,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a run",
	RunE:  runCancel,
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Open a fresh run from a finished one",
	Long: `Creates a new run reusing a finished run's product image and
attributes, and compiles a fresh draft. The old run and its creative are
untouched.`,
	RunE: runRegenerate,
}

func init() {
	for _, cmd := range []*cobra.Command{approveCmd, editCmd, cancelCmd, regenerateCmd} {
		cmd.Flags().StringVar(&reviewConfigPath, "config", "", "Path to config.json file")
		cmd.Flags().StringVar(&reviewRunID, "id", "", "Run ID (required)")
		cmd.Flags().StringVarP(&reviewReviewer, "reviewer", "r", "", "Reviewer ID (required)")
		rootCmd.AddCommand(cmd)
	}
	approveCmd.Flags().StringVarP(&approveOutput, "output", "o", "", "Write the finished creative to this path")
	editCmd.Flags().StringVarP(&editSpecPath, "spec", "s", "", "Path to the edited spec JSON file (required)")
}

// reviewSetup parses the shared flag values and connects the backing
// services.
func reviewSetup(ctx context.Context, configPath, runID, reviewerID string) (*agentDeps, uuid.UUID, error) {
	if reviewerID == "" {
		return nil, uuid.Nil, fmt.Errorf("--reviewer is required")
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("--id must be a valid run ID: %w", err)
	}

	cfg, err := loadAgentConfig(configPath)
	if err != nil {
		return nil, uuid.Nil, err
	}
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return deps, id, nil
}

func runApprove(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	deps, id, err := reviewSetup(ctx, reviewConfigPath, reviewRunID, reviewReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	record, err := deps.orch.ApproveAndGenerate(ctx, id, reviewReviewer)
	if err != nil {
		return err
	}
	deps.printer.PrintRun(record)
	if record.State == types.RunStateFailed {
		return fmt.Errorf("render failed: %s", record.RunError.Message)
	}

	return saveCreative(ctx, deps, id, reviewReviewer, approveOutput)
}

func runEdit(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if editSpecPath == "" {
		return fmt.Errorf("--spec is required")
	}
	data, err := os.ReadFile(editSpecPath)
	if err != nil {
		return fmt.Errorf("failed to read spec: %w", err)
	}
	var spec types.CompositionSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to parse spec JSON: %w", err)
	}

	deps, id, err := reviewSetup(ctx, reviewConfigPath, reviewRunID, reviewReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	record, err := deps.orch.Edit(ctx, id, reviewReviewer, &spec)
	if err != nil {
		return err
	}
	deps.printer.PrintSpec("DRAFT SPEC", record.DraftSpec)
	fmt.Printf("Draft replaced; run %s is still awaiting review.\n", record.ID)
	return nil
}

func runCancel(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	deps, id, err := reviewSetup(ctx, reviewConfigPath, reviewRunID, reviewReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	record, err := deps.orch.Cancel(ctx, id, reviewReviewer)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s cancelled.\n", record.ID)
	return nil
}

func runRegenerate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	deps, id, err := reviewSetup(ctx, reviewConfigPath, reviewRunID, reviewReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	fresh, err := deps.orch.Regenerate(ctx, id, reviewReviewer)
	if err != nil {
		return err
	}
	record, err := deps.orch.Compile(ctx, fresh.ID)
	if err != nil {
		return err
	}
	if record.State == types.RunStateFailed {
		deps.printer.PrintRun(record)
		return fmt.Errorf("compile failed: %s", record.RunError.Message)
	}

	deps.printer.PrintSpec("DRAFT SPEC", record.DraftSpec)
	fmt.Printf("Run %s is awaiting review.\n", record.ID)
	return nil
}
