// Package render implements Stage 2 of the pipeline: turning the product
// image and an approved composition specification into the finished
// creative.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/creative-composer/internal/llm"
	"github.com/jonathan/creative-composer/internal/prompts"
	"github.com/jonathan/creative-composer/internal/types"
)

// Artifact is a finished creative image.
type Artifact struct {
	MIMEType string
	Data     []byte
	// Attempts counts capability calls made across transient retries.
	Attempts int
}

// Generator renders approved specifications.
type Generator struct {
	client llm.Client
	policy llm.RetryPolicy
}

// NewGenerator creates a generator with the default retry policy.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client, policy: llm.DefaultRetryPolicy()}
}

// NewGeneratorWithPolicy creates a generator with an explicit retry policy.
func NewGeneratorWithPolicy(client llm.Client, policy llm.RetryPolicy) *Generator {
	return &Generator{client: client, policy: policy}
}

// Generate renders the approved specification over the product image. The
// specification is read only; Stage 2 never feeds layout changes back into
// the run.
func (g *Generator) Generate(ctx context.Context, image *llm.ImageInput, spec *types.CompositionSpec) (*Artifact, error) {
	if spec == nil {
		return nil, &NotApprovedError{}
	}

	prompt, err := BuildRenderPrompt(spec)
	if err != nil {
		return nil, err
	}

	var output *llm.ImageOutput
	attempts, err := llm.WithRetry(ctx, g.policy, func(ctx context.Context) error {
		var callErr error
		output, callErr = g.client.GenerateImage(ctx, prompt, image)
		return callErr
	})
	if err != nil {
		return nil, &CapabilityError{Message: "image generation failed", Cause: err, Attempts: attempts}
	}
	if output == nil || len(output.Data) == 0 {
		return nil, &CapabilityError{Message: "capability returned an empty image", Attempts: attempts}
	}

	mimeType := output.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &Artifact{MIMEType: mimeType, Data: output.Data, Attempts: attempts}, nil
}

// BuildRenderPrompt assembles the Stage 2 instruction payload from an
// approved specification. The spec is embedded as JSON so the renderer sees
// exactly what the reviewer approved, resolved boxes included.
func BuildRenderPrompt(spec *types.CompositionSpec) (string, error) {
	specJSON, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode specification: %w", err)
	}

	specSection := prompts.Format(prompts.MustGet("render.json", "render-spec"), map[string]string{
		"SpecJSON": string(specJSON),
	})
	canvasSection := prompts.Format(prompts.MustGet("render.json", "render-canvas"), map[string]string{
		"Width":  strconv.Itoa(spec.Canvas.Width),
		"Height": strconv.Itoa(spec.Canvas.Height),
	})

	sections := []string{
		prompts.MustGet("render.json", "render-system"),
		specSection,
		canvasSection,
	}
	return strings.Join(sections, "\n\n"), nil
}
