// Package compiler implements Stage 1 of the pipeline: turning a product
// image and run attributes into a draft composition specification via the
// layout capability.
package compiler

import (
	"context"
	"encoding/json"

	"github.com/jonathan/creative-composer/internal/llm"
	"github.com/jonathan/creative-composer/internal/schemas"
	"github.com/jonathan/creative-composer/internal/types"
	"github.com/jonathan/creative-composer/internal/validation"
)

// Compiler produces draft composition specifications from run inputs.
type Compiler struct {
	client llm.Client
	policy llm.RetryPolicy
	tier   llm.ModelTier
	canvas types.Canvas
}

// Result carries the accepted draft plus bookkeeping recorded on the run.
type Result struct {
	Spec *types.CompositionSpec
	// Attempts counts capability calls made across transient retries and
	// the corrective retry.
	Attempts int
}

// NewCompiler creates a compiler with the default retry policy, model tier,
// and canvas.
func NewCompiler(client llm.Client) *Compiler {
	return &Compiler{
		client: client,
		policy: llm.DefaultRetryPolicy(),
		tier:   llm.TierStandard,
		canvas: types.DefaultCanvas,
	}
}

// NewCompilerWithPolicy creates a compiler with an explicit retry policy.
func NewCompilerWithPolicy(client llm.Client, policy llm.RetryPolicy) *Compiler {
	c := NewCompiler(client)
	c.policy = policy
	return c
}

// Compile runs Stage 1: build the instruction payload, call the layout
// capability under the retry policy, gate the response through the schema,
// decode it, and validate the decoded draft against the run attributes.
//
// A draft that fails semantic validation triggers exactly one corrective
// retry with the violations appended to the payload. A second invalid draft
// is returned as InvalidDraftError.
func (c *Compiler) Compile(ctx context.Context, image *llm.ImageInput, attrs types.RunAttributes) (*Result, error) {
	basePrompt := BuildPrompt(attrs, c.canvas)

	spec, attempts, violations, err := c.compileOnce(ctx, basePrompt, image, attrs)
	if err != nil {
		return nil, err
	}
	if violations.Empty() {
		return &Result{Spec: spec, Attempts: attempts}, nil
	}

	retryPrompt := BuildRetryPrompt(basePrompt, violations)
	spec, retryAttempts, violations, err := c.compileOnce(ctx, retryPrompt, image, attrs)
	attempts += retryAttempts
	if err != nil {
		return nil, err
	}
	if !violations.Empty() {
		return nil, &InvalidDraftError{Violations: violations}
	}
	return &Result{Spec: spec, Attempts: attempts}, nil
}

// compileOnce performs one payload round trip. Violations come back as a
// value rather than an error so the caller can decide on the corrective
// retry; err is reserved for capability, schema, and decode failures.
func (c *Compiler) compileOnce(ctx context.Context, prompt string, image *llm.ImageInput, attrs types.RunAttributes) (*types.CompositionSpec, int, types.Violations, error) {
	var raw string
	attempts, err := llm.WithRetry(ctx, c.policy, func(ctx context.Context) error {
		var callErr error
		raw, callErr = c.client.GenerateJSON(ctx, prompt, image, c.tier)
		return callErr
	})
	if err != nil {
		return nil, attempts, types.Violations{}, &CapabilityError{Message: "layout call failed", Cause: err, Attempts: attempts}
	}

	spec, violations, err := c.decodeDraft(raw, attrs)
	return spec, attempts, violations, err
}

// decodeDraft gates raw model output through the schema, decodes it, and
// applies post-processing plus semantic validation.
func (c *Compiler) decodeDraft(raw string, attrs types.RunAttributes) (*types.CompositionSpec, types.Violations, error) {
	if schemaErr := schemas.ValidateCompositionJSON(raw); schemaErr != nil {
		var violations types.Violations
		violations.Add("(draft)", "schema", schemaErr.Error())
		return nil, violations, nil
	}

	var spec types.CompositionSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, types.Violations{}, &ParseError{Message: "failed to decode draft", Cause: err}
	}

	c.postProcess(&spec, attrs)

	violations := validation.ValidateForRun(&spec, attrs)
	return &spec, violations, nil
}

// postProcess normalizes a decoded draft before validation. Sections the
// run attributes disable are stripped rather than rejected, since models
// occasionally emit them anyway.
func (c *Compiler) postProcess(spec *types.CompositionSpec, attrs types.RunAttributes) {
	spec.Canvas = c.canvas

	if !attrs.IncludePrice {
		spec.Pricing = nil
	}
	if !attrs.LogoEnabled {
		spec.Branding = nil
	} else if spec.Branding != nil {
		spec.Branding.LogoRef = attrs.LogoRef
		if spec.Branding.Opacity == 0 {
			spec.Branding.Opacity = 1
		}
	}
	if spec.Pricing != nil && spec.Pricing.Font == "" {
		spec.Pricing.Font = attrs.EffectivePricingFont()
	}
}
