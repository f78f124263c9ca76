package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/creative-composer/internal/types"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a creative run from a product image",
	Long: `Stores the product image, compiles a draft composition spec, and parks
the run at the review gate. With --approve the draft is approved and
rendered in one go; otherwise review it with 'show' and 'approve'.`,
	RunE: runStart,
}

var (
	startConfigPath    string
	startImage         string
	startFormat        string
	startReviewer      string
	startProduct       string
	startAudience      string
	startTone          string
	startPrimaryFont   string
	startSecondaryFont string
	startPricingFont   string
	startIncludePrice  bool
	startPrice         string
	startOriginalPrice string
	startOffer         string
	startLogoRef       string
	startApprove       bool
	startOutput        string
	startVerbose       bool
)

func init() {
	startCmd.Flags().StringVar(&startConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	startCmd.Flags().StringVarP(&startImage, "image", "i", "", "Path to the product image (required)")
	startCmd.Flags().StringVar(&startFormat, "format", "", "Image format (defaults to the file extension)")
	startCmd.Flags().StringVarP(&startReviewer, "reviewer", "r", "", "Reviewer ID that owns the run (required)")
	startCmd.Flags().StringVarP(&startProduct, "product", "p", "", "Product description (required)")
	startCmd.Flags().StringVar(&startAudience, "audience", "", "Target audience")
	startCmd.Flags().StringVar(&startTone, "tone", "", "Tone notes")
	startCmd.Flags().StringVar(&startPrimaryFont, "font", "", "Primary font, passed to the model verbatim")
	startCmd.Flags().StringVar(&startSecondaryFont, "secondary-font", "", "Secondary font (defaults to the primary font)")
	startCmd.Flags().StringVar(&startPricingFont, "pricing-font", "", "Pricing font (defaults to the primary font)")
	startCmd.Flags().BoolVar(&startIncludePrice, "include-price", false, "Show a price badge on the creative")
	startCmd.Flags().StringVar(&startPrice, "price", "", "Current price (required with --include-price)")
	startCmd.Flags().StringVar(&startOriginalPrice, "original-price", "", "Struck-through original price")
	startCmd.Flags().StringVar(&startOffer, "offer", "", "Offer text shown with the price")
	startCmd.Flags().StringVar(&startLogoRef, "logo", "", "Logo handle from 'creative_agent upload' (enables branding)")
	startCmd.Flags().BoolVar(&startApprove, "approve", false, "Approve the draft and render without a review pause")
	startCmd.Flags().StringVarP(&startOutput, "output", "o", "", "Write the finished creative to this path (with --approve)")
	startCmd.Flags().BoolVarP(&startVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(startCmd)
}

func runStart(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if startImage == "" {
		return fmt.Errorf("--image is required")
	}
	if startReviewer == "" {
		return fmt.Errorf("--reviewer is required")
	}

	imageData, err := os.ReadFile(startImage)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	format := startFormat
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(startImage), ".")
	}

	attrs := types.RunAttributes{
		ProductDescription: startProduct,
		Audience:           startAudience,
		ToneNotes:          startTone,
		PrimaryFont:        startPrimaryFont,
		SecondaryFont:      startSecondaryFont,
		PricingFont:        startPricingFont,
		IncludePrice:       startIncludePrice,
		Price:              startPrice,
		OriginalPrice:      startOriginalPrice,
		OfferText:          startOffer,
		LogoEnabled:        startLogoRef != "",
		LogoRef:            startLogoRef,
	}

	cfg, err := loadAgentConfig(startConfigPath)
	if err != nil {
		return err
	}
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	record, err := deps.orch.Start(ctx, startReviewer, imageData, format, attrs)
	if err != nil {
		return err
	}
	if record.State == types.RunStateFailed {
		deps.printer.PrintRun(record)
		return fmt.Errorf("compile failed: %s", record.RunError.Message)
	}

	if startVerbose {
		deps.printer.PrintRun(record)
	}
	deps.printer.PrintSpec("DRAFT SPEC", record.DraftSpec)

	if !startApprove {
		fmt.Printf("Run %s is awaiting review. Approve with:\n", record.ID)
		fmt.Printf("  creative_agent approve --id %s --reviewer %s\n", record.ID, startReviewer)
		return nil
	}

	record, err = deps.orch.ApproveAndGenerate(ctx, record.ID, startReviewer)
	if err != nil {
		return err
	}
	deps.printer.PrintRun(record)
	if record.State == types.RunStateFailed {
		return fmt.Errorf("render failed: %s", record.RunError.Message)
	}

	return saveCreative(ctx, deps, record.ID, startReviewer, startOutput)
}

// saveCreative fetches a completed run's image and writes it to the given
// path, defaulting to creative_<id>.<ext> in the working directory.
func saveCreative(ctx context.Context, deps *agentDeps, id uuid.UUID, reviewerID, output string) error {
	data, err := deps.orch.Creative(ctx, id, reviewerID)
	if err != nil {
		return err
	}

	record, err := deps.orch.GetRun(ctx, id, reviewerID)
	if err != nil {
		return err
	}
	ext := "png"
	if record.CreativeRef != nil && strings.HasSuffix(*record.CreativeRef, ".jpg") {
		ext = "jpg"
	}

	if output == "" {
		output = fmt.Sprintf("creative_%s.%s", id, ext)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write creative: %w", err)
	}
	fmt.Printf("Creative written to %s\n", output)
	return nil
}
