package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/creative-composer/internal/types"
)

func validSpec() *types.CompositionSpec {
	return &types.CompositionSpec{
		Canvas:     types.DefaultCanvas,
		Background: types.Background{Kind: types.BackgroundSolidColor, Color: "#F4EFE8"},
		Product: types.ProductPlacement{
			HorizontalBias: 0.5,
			VerticalBias:   0.55,
			HeightFraction: 0.6,
		},
		TextElements: []types.TextElement{
			{
				Kind:      types.ElementPlain,
				Content:   "ELEGANCE UNVEILED",
				Font:      "Calgary",
				Hierarchy: types.HierarchyPrimary,
				Placement: types.Placement{Anchor: types.AnchorTopCenter},
				Style:     types.TextStyle{SizeClass: "large", Weight: "bold", CaseTransform: "upper"},
			},
			{
				Kind:      types.ElementCallToAction,
				Content:   "Shop the collection",
				Font:      "Tan Pearl",
				Hierarchy: types.HierarchySecondary,
				Placement: types.Placement{Anchor: types.AnchorBottomCenter},
				Style:     types.TextStyle{SizeClass: "medium", Weight: "regular"},
			},
		},
	}
}

func fieldSet(vs types.Violations) map[string]bool {
	out := map[string]bool{}
	for _, v := range vs.Violations {
		out[v.Field] = true
	}
	return out
}

func TestValidate_AcceptsLegalSpec(t *testing.T) {
	vs := Validate(validSpec())
	assert.True(t, vs.Empty(), "unexpected violations: %s", vs.Summary())
}

func TestValidate_NilSpec(t *testing.T) {
	vs := Validate(nil)
	require.False(t, vs.Empty())
	assert.Equal(t, "spec", vs.Violations[0].Field)
}

func TestValidate_NumericRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.CompositionSpec)
	}{
		{"height fraction zero", func(s *types.CompositionSpec) { s.Product.HeightFraction = 0 }},
		{"height fraction above one", func(s *types.CompositionSpec) { s.Product.HeightFraction = 1.2 }},
		{"horizontal bias negative", func(s *types.CompositionSpec) { s.Product.HorizontalBias = -0.1 }},
		{"vertical bias above one", func(s *types.CompositionSpec) { s.Product.VerticalBias = 1.5 }},
		{"canvas width zero", func(s *types.CompositionSpec) { s.Canvas.Width = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			vs := Validate(spec)
			assert.False(t, vs.Empty())
		})
	}
}

func TestValidate_BrandingOpacityRange(t *testing.T) {
	spec := validSpec()
	spec.Branding = &types.Branding{
		LogoRef:   "s3://assets/logo.png",
		Placement: types.Placement{Anchor: types.AnchorTopLeft},
		Opacity:   1.4,
	}
	vs := Validate(spec)
	assert.False(t, vs.Empty())
}

func TestValidate_BackgroundExclusivity(t *testing.T) {
	spec := validSpec()
	spec.Background = types.Background{Kind: types.BackgroundSolidColor, Color: "#FFF", SceneHint: "marble counter"}
	vs := Validate(spec)
	require.False(t, vs.Empty())
	assert.True(t, fieldSet(vs)["background.scene_hint"])

	spec.Background = types.Background{Kind: types.BackgroundBlurredScene}
	vs = Validate(spec)
	require.False(t, vs.Empty())
	assert.True(t, fieldSet(vs)["background.scene_hint"])
}

func TestValidate_BlankFontRejected(t *testing.T) {
	spec := validSpec()
	spec.TextElements[0].Font = "   "
	vs := Validate(spec)
	require.False(t, vs.Empty())
	assert.True(t, fieldSet(vs)["text_elements[0].font"])
}

func TestValidate_PrimaryAnchorCollision(t *testing.T) {
	spec := validSpec()
	spec.TextElements = append(spec.TextElements, types.TextElement{
		Kind:      types.ElementPlain,
		Content:   "SECOND HEADLINE",
		Font:      "Calgary",
		Hierarchy: types.HierarchyPrimary,
		Placement: types.Placement{Anchor: types.AnchorTopCenter},
		Style:     types.TextStyle{SizeClass: "large", Weight: "bold"},
	})
	vs := Validate(spec)
	require.False(t, vs.Empty())
	found := false
	for _, v := range vs.Violations {
		if v.Rule == "anchor_collision" {
			found = true
		}
	}
	assert.True(t, found, "expected an anchor_collision violation, got: %s", vs.Summary())
}

func TestValidate_TooManyTextElements(t *testing.T) {
	spec := validSpec()
	for len(spec.TextElements) <= types.MaxTextElements {
		el := spec.TextElements[1]
		el.Hierarchy = types.HierarchyTertiary
		spec.TextElements = append(spec.TextElements, el)
	}
	vs := Validate(spec)
	assert.False(t, vs.Empty())
}

func TestValidate_FeatureListItems(t *testing.T) {
	spec := validSpec()
	spec.TextElements[1].Kind = types.ElementFeatureList
	spec.TextElements[1].Items = nil
	vs := Validate(spec)
	require.False(t, vs.Empty())
	assert.True(t, fieldSet(vs)["text_elements[1].items"])
}

func TestValidate_Deterministic(t *testing.T) {
	spec := validSpec()
	spec.Product.HeightFraction = 2
	spec.TextElements[0].Font = ""
	first := Validate(spec)
	second := Validate(spec)
	assert.Equal(t, first, second)
}

func TestValidateForRun_PricingMatchesToggle(t *testing.T) {
	attrs := types.RunAttributes{ProductDescription: "frame", IncludePrice: true, Price: "Rs. 1899"}

	spec := validSpec()
	vs := ValidateForRun(spec, attrs)
	require.False(t, vs.Empty(), "toggle on without pricing section must be rejected")

	spec.Pricing = &types.Pricing{
		Value:     "Rs. 1899",
		Font:      "RoxboroughCF",
		Placement: types.Placement{Anchor: types.AnchorBottomRight},
	}
	vs = ValidateForRun(spec, attrs)
	assert.True(t, vs.Empty(), "unexpected violations: %s", vs.Summary())

	attrs.IncludePrice = false
	vs = ValidateForRun(spec, attrs)
	assert.False(t, vs.Empty(), "toggle off with pricing section must be rejected")
}

func TestValidateForRun_BrandingMatchesLogoFlag(t *testing.T) {
	attrs := types.RunAttributes{ProductDescription: "frame", LogoEnabled: true, LogoRef: "s3://assets/logo.png"}

	spec := validSpec()
	vs := ValidateForRun(spec, attrs)
	require.False(t, vs.Empty())

	spec.Branding = &types.Branding{
		LogoRef:   "s3://assets/logo.png",
		Placement: types.Placement{Anchor: types.AnchorTopLeft},
		Opacity:   0.9,
	}
	vs = ValidateForRun(spec, attrs)
	assert.True(t, vs.Empty(), "unexpected violations: %s", vs.Summary())
}

func TestCheckCanvasUnchanged(t *testing.T) {
	current := validSpec()
	edited := current.Clone()
	vs := CheckCanvasUnchanged(current, edited)
	assert.True(t, vs.Empty())

	edited.Canvas.Width = 1920
	vs = CheckCanvasUnchanged(current, edited)
	assert.False(t, vs.Empty())
}
