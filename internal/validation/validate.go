// Package validation enforces the composition specification invariants.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/creative-composer/internal/types"
)

// validate holds the shared field-rule validator. Struct tags on the types
// package cover required fields, numeric ranges, and enum membership;
// cross-field invariants are checked explicitly below.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a composition specification against every schema and
// invariant rule. It is pure and deterministic: it never mutates the input
// and never calls external services. An empty result means the
// specification is legal.
func Validate(spec *types.CompositionSpec) types.Violations {
	var vs types.Violations

	if spec == nil {
		vs.Add("spec", "required", "specification is nil")
		return vs
	}

	if err := validate.Struct(spec); err != nil {
		var fieldErrs validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); ok {
			for _, fe := range fieldErrs {
				vs.Add(fieldPath(fe), fe.Tag(), fieldMessage(fe))
			}
		} else {
			vs.Add("spec", "structure", err.Error())
		}
	}

	checkBackground(spec, &vs)
	checkFonts(spec, &vs)
	checkAnchors(spec, &vs)
	checkFeatureLists(spec, &vs)

	return vs
}

// ValidateForRun applies Validate plus the rules that depend on the run's
// attributes: pricing presence must match the price toggle, and branding
// presence must match the logo flag, both fixed at specification-creation
// time.
func ValidateForRun(spec *types.CompositionSpec, attrs types.RunAttributes) types.Violations {
	vs := Validate(spec)
	if spec == nil {
		return vs
	}

	if attrs.IncludePrice && spec.Pricing == nil {
		vs.Add("pricing", "presence", "price toggle is on but specification has no pricing section")
	}
	if !attrs.IncludePrice && spec.Pricing != nil {
		vs.Add("pricing", "presence", "price toggle is off but specification contains a pricing section")
	}
	if attrs.LogoEnabled && spec.Branding == nil {
		vs.Add("branding", "presence", "logo is enabled but specification has no branding section")
	}
	if !attrs.LogoEnabled && spec.Branding != nil {
		vs.Add("branding", "presence", "logo is disabled but specification contains a branding section")
	}

	return vs
}

// CheckCanvasUnchanged enforces canvas immutability across draft revisions.
func CheckCanvasUnchanged(current, edited *types.CompositionSpec) types.Violations {
	var vs types.Violations
	if current == nil || edited == nil {
		return vs
	}
	if current.Canvas != edited.Canvas {
		vs.Add("canvas", "immutable", fmt.Sprintf("canvas is fixed per run: %dx%d, got %dx%d",
			current.Canvas.Width, current.Canvas.Height, edited.Canvas.Width, edited.Canvas.Height))
	}
	return vs
}

func checkBackground(spec *types.CompositionSpec, vs *types.Violations) {
	bg := spec.Background
	switch bg.Kind {
	case types.BackgroundSolidColor:
		if strings.TrimSpace(bg.Color) == "" {
			vs.Add("background.color", "required", "solid_color background requires a color")
		}
		if bg.SceneHint != "" {
			vs.Add("background.scene_hint", "exclusive", "solid_color background must not carry a scene hint")
		}
	case types.BackgroundBlurredScene:
		if strings.TrimSpace(bg.SceneHint) == "" {
			vs.Add("background.scene_hint", "required", "blurred_scene background requires a scene hint")
		}
		if bg.Color != "" {
			vs.Add("background.color", "exclusive", "blurred_scene background must not carry a color")
		}
	}
}

// checkFonts rejects whitespace-only font names: a text-bearing element's
// font field must never be empty, and the tag validator only catches the
// empty string.
func checkFonts(spec *types.CompositionSpec, vs *types.Violations) {
	for i, el := range spec.TextElements {
		if strings.TrimSpace(el.Font) == "" {
			vs.Add(fmt.Sprintf("text_elements[%d].font", i), "required", "text element font must not be blank")
		}
	}
	if spec.Pricing != nil && spec.Pricing.Font != "" && strings.TrimSpace(spec.Pricing.Font) == "" {
		vs.Add("pricing.font", "required", "pricing font must not be blank")
	}
}

// checkAnchors enforces that no two primary elements claim the same anchor.
func checkAnchors(spec *types.CompositionSpec, vs *types.Violations) {
	seen := map[types.Anchor]int{}
	for i, el := range spec.TextElements {
		if el.Hierarchy != types.HierarchyPrimary {
			continue
		}
		if el.Placement.Anchor == types.AnchorCustom {
			continue
		}
		if first, dup := seen[el.Placement.Anchor]; dup {
			vs.Add(fmt.Sprintf("text_elements[%d].placement.anchor", i), "anchor_collision",
				fmt.Sprintf("primary element shares anchor %q with text_elements[%d]", el.Placement.Anchor, first))
			continue
		}
		seen[el.Placement.Anchor] = i
	}
}

func checkFeatureLists(spec *types.CompositionSpec, vs *types.Violations) {
	for i, el := range spec.TextElements {
		if el.Kind == types.ElementFeatureList && len(el.Items) == 0 {
			vs.Add(fmt.Sprintf("text_elements[%d].items", i), "required", "feature_list element requires at least one item")
		}
		if el.Kind != types.ElementFeatureList && len(el.Items) > 0 {
			vs.Add(fmt.Sprintf("text_elements[%d].items", i), "exclusive", "items are only valid on feature_list elements")
		}
	}
}

func fieldPath(fe validator.FieldError) string {
	// "CompositionSpec.Product.HeightFraction" -> "Product.HeightFraction"
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("value %v violates %s=%s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}
