package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	showConfigPath string
	showRunID      string
	showReviewer   string
	showJSON       bool
	creativeOutput string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a run and its pending draft",
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a reviewer's runs, newest first",
	RunE:  runList,
}

var creativeCmd = &cobra.Command{
	Use:   "creative",
	Short: "Download the finished creative of a completed run",
	RunE:  runCreative,
}

var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "Show the edit history of a run's spec",
	RunE:  runRevisions,
}

func init() {
	for _, cmd := range []*cobra.Command{showCmd, listCmd, creativeCmd, revisionsCmd} {
		cmd.Flags().StringVar(&showConfigPath, "config", "", "Path to config.json file")
		cmd.Flags().StringVarP(&showReviewer, "reviewer", "r", "", "Reviewer ID (required)")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{showCmd, creativeCmd, revisionsCmd} {
		cmd.Flags().StringVar(&showRunID, "id", "", "Run ID (required)")
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the draft spec as raw JSON, for editing")
	creativeCmd.Flags().StringVarP(&creativeOutput, "output", "o", "", "Write the creative to this path")
}

func runShow(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	deps, id, err := reviewSetup(ctx, showConfigPath, showRunID, showReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	record, err := deps.orch.GetRun(ctx, id, showReviewer)
	if err != nil {
		return err
	}

	if showJSON && record.DraftSpec != nil {
		data, err := json.MarshalIndent(record.DraftSpec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	deps.printer.PrintRun(record)
	deps.printer.PrintSpec("DRAFT SPEC", record.DraftSpec)
	deps.printer.PrintSpec("APPROVED SPEC", record.ApprovedSpec)
	return nil
}

func runList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if showReviewer == "" {
		return fmt.Errorf("--reviewer is required")
	}
	cfg, err := loadAgentConfig(showConfigPath)
	if err != nil {
		return err
	}
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	records, err := deps.orch.ListRuns(ctx, showReviewer)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs found.")
		return nil
	}
	for i := range records {
		deps.printer.PrintRun(&records[i])
	}
	return nil
}

func runCreative(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	deps, id, err := reviewSetup(ctx, showConfigPath, showRunID, showReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	return saveCreative(ctx, deps, id, showReviewer, creativeOutput)
}

func runRevisions(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	deps, id, err := reviewSetup(ctx, showConfigPath, showRunID, showReviewer)
	if err != nil {
		return err
	}
	defer deps.Close()

	revisions, err := deps.orch.ListRevisions(ctx, id, showReviewer)
	if err != nil {
		return err
	}
	if len(revisions) == 0 {
		fmt.Println("No revisions; the draft has never been edited.")
		return nil
	}
	for _, rev := range revisions {
		title := fmt.Sprintf("REVISION %d (by %s)", rev.Revision, rev.EditedBy)
		deps.printer.PrintSpec(title, rev.Spec)
	}
	return nil
}
