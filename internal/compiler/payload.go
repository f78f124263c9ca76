package compiler

import (
	"strconv"
	"strings"

	"github.com/jonathan/creative-composer/internal/prompts"
	"github.com/jonathan/creative-composer/internal/types"
)

// defaultFontName is the typography instruction used when the run supplies
// no fonts at all.
const defaultFontName = "unstyled sans-serif"

// BuildPrompt assembles the Stage 1 instruction payload from the run
// attributes. Font names are copied into the payload verbatim; the payload
// never introduces font names the user did not supply.
func BuildPrompt(attrs types.RunAttributes, canvas types.Canvas) string {
	sections := []string{
		prompts.MustGet("composition.json", "compose-system"),
		briefSection(attrs),
		canvasSection(canvas),
		structureSection(),
		fontSection(attrs),
		pricingSection(attrs),
		brandingSection(attrs),
	}
	return strings.Join(sections, "\n\n")
}

// BuildRetryPrompt extends a Stage 1 payload with the violations of the
// rejected draft so the model can produce a corrected one.
func BuildRetryPrompt(basePrompt string, violations types.Violations) string {
	template := prompts.MustGet("composition.json", "compose-retry")
	retry := prompts.Format(template, map[string]string{
		"Violations": violations.Summary(),
	})
	return basePrompt + "\n\n" + retry
}

func briefSection(attrs types.RunAttributes) string {
	template := prompts.MustGet("composition.json", "compose-brief")
	audience := attrs.Audience
	if audience == "" {
		audience = "general"
	}
	tone := attrs.ToneNotes
	if tone == "" {
		tone = "clean and direct"
	}
	return prompts.Format(template, map[string]string{
		"ProductDescription": attrs.ProductDescription,
		"Audience":           audience,
		"ToneNotes":          tone,
	})
}

func canvasSection(canvas types.Canvas) string {
	template := prompts.MustGet("composition.json", "compose-canvas")
	return prompts.Format(template, map[string]string{
		"Width":  strconv.Itoa(canvas.Width),
		"Height": strconv.Itoa(canvas.Height),
	})
}

func structureSection() string {
	template := prompts.MustGet("composition.json", "compose-structure")
	return prompts.Format(template, map[string]string{
		"MaxTextElements": strconv.Itoa(types.MaxTextElements),
	})
}

func fontSection(attrs types.RunAttributes) string {
	if strings.TrimSpace(attrs.PrimaryFont) == "" {
		return prompts.MustGet("composition.json", "compose-fonts-default")
	}
	template := prompts.MustGet("composition.json", "compose-fonts")
	return prompts.Format(template, map[string]string{
		"PrimaryFont":   attrs.PrimaryFont,
		"SecondaryFont": attrs.EffectiveSecondaryFont(),
	})
}

func pricingSection(attrs types.RunAttributes) string {
	if !attrs.IncludePrice {
		return prompts.MustGet("composition.json", "compose-no-pricing")
	}

	originalClause := ""
	if attrs.OriginalPrice != "" {
		template := prompts.MustGet("composition.json", "compose-pricing-original")
		originalClause = prompts.Format(template, map[string]string{
			"OriginalPrice": attrs.OriginalPrice,
		})
	}

	offerClause := ""
	if attrs.OfferText != "" {
		template := prompts.MustGet("composition.json", "compose-pricing-offer")
		offerClause = prompts.Format(template, map[string]string{
			"OfferText": attrs.OfferText,
		})
	}

	pricingFont := attrs.EffectivePricingFont()
	if strings.TrimSpace(pricingFont) == "" {
		pricingFont = defaultFontName
	}

	template := prompts.MustGet("composition.json", "compose-pricing")
	return prompts.Format(template, map[string]string{
		"Price":               attrs.Price,
		"OriginalPriceClause": originalClause,
		"OfferClause":         offerClause,
		"PricingFont":         pricingFont,
	})
}

func brandingSection(attrs types.RunAttributes) string {
	if attrs.LogoEnabled {
		return prompts.MustGet("composition.json", "compose-branding")
	}
	return prompts.MustGet("composition.json", "compose-no-branding")
}
