//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// RunAttributes are the user-supplied inputs for one pipeline run. Image and
// logo references are opaque content handles; the core never reads their
// bytes.
type RunAttributes struct {
	ProductDescription string `json:"product_description" validate:"required"`
	Audience           string `json:"audience,omitempty"`
	ToneNotes          string `json:"tone_notes,omitempty"`

	// Fonts are free-form names passed to the model verbatim. Secondary and
	// pricing fonts fall back to the primary font when empty.
	PrimaryFont   string `json:"primary_font,omitempty"`
	SecondaryFont string `json:"secondary_font,omitempty"`
	PricingFont   string `json:"pricing_font,omitempty"`

	IncludePrice  bool   `json:"include_price"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"original_price,omitempty"`
	OfferText     string `json:"offer_text,omitempty"`

	LogoEnabled bool   `json:"logo_enabled"`
	LogoRef     string `json:"logo_ref,omitempty"`
}

// EffectiveSecondaryFont returns the secondary font, falling back to primary.
func (a RunAttributes) EffectiveSecondaryFont() string {
	if strings.TrimSpace(a.SecondaryFont) != "" {
		return a.SecondaryFont
	}
	return a.PrimaryFont
}

// EffectivePricingFont returns the pricing font, falling back to primary.
func (a RunAttributes) EffectivePricingFont() string {
	if strings.TrimSpace(a.PricingFont) != "" {
		return a.PricingFont
	}
	return a.PrimaryFont
}
