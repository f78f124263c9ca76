// Package types provides type definitions for structured data used throughout the creative-composer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "encoding/json"

// Canvas is the logical size of the creative. It is fixed per run; the
// validator rejects any edit that changes it.
type Canvas struct {
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// DefaultCanvas is the 1:1 Meta creative format.
var DefaultCanvas = Canvas{Width: 1080, Height: 1080}

// Anchor is a symbolic position on the canvas. "custom" positions are
// resolved purely from the descriptor's offsets.
type Anchor string

// Anchor constants cover the nine compass positions plus custom.
const (
	AnchorTopLeft      Anchor = "top-left"
	AnchorTopCenter    Anchor = "top-center"
	AnchorTopRight     Anchor = "top-right"
	AnchorMiddleLeft   Anchor = "middle-left"
	AnchorCenter       Anchor = "center"
	AnchorMiddleRight  Anchor = "middle-right"
	AnchorBottomLeft   Anchor = "bottom-left"
	AnchorBottomCenter Anchor = "bottom-center"
	AnchorBottomRight  Anchor = "bottom-right"
	AnchorCustom       Anchor = "custom"
)

// Alignment controls text alignment inside a resolved box.
type Alignment string

// Alignment constants
const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Box is an absolute pixel rectangle on the canvas.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Intersects reports whether two boxes overlap.
func (b Box) Intersects(other Box) bool {
	return b.X < other.X+other.Width && other.X < b.X+b.Width &&
		b.Y < other.Y+other.Height && other.Y < b.Y+b.Height
}

// Placement describes where an element sits before and after pixel
// resolution. Resolved and ResolutionFailed are written by the layout
// resolver and ignored when validating drafts.
type Placement struct {
	Anchor           Anchor    `json:"anchor" validate:"required,oneof=top-left top-center top-right middle-left center middle-right bottom-left bottom-center bottom-right custom"`
	OffsetX          int       `json:"offset_x"`
	OffsetY          int       `json:"offset_y"`
	Alignment        Alignment `json:"alignment,omitempty" validate:"omitempty,oneof=left center right"`
	Resolved         *Box      `json:"resolved,omitempty"`
	ResolutionFailed bool      `json:"resolution_failed,omitempty"`
}

// BackgroundKind selects one of the two mutually exclusive background variants.
type BackgroundKind string

// Background variants
const (
	BackgroundSolidColor   BackgroundKind = "solid_color"
	BackgroundBlurredScene BackgroundKind = "blurred_scene"
)

// Background describes the scene behind the product. Exactly one of Color
// and SceneHint is populated, matching Kind.
type Background struct {
	Kind      BackgroundKind `json:"kind" validate:"required,oneof=solid_color blurred_scene"`
	Color     string         `json:"color,omitempty"`
	SceneHint string         `json:"scene_hint,omitempty"`
}

// ProductPlacement positions the product within the canvas. Biases are
// fractions of the free space on each axis; HeightFraction is the product
// zone height as a fraction of canvas height.
type ProductPlacement struct {
	HorizontalBias float64 `json:"horizontal_bias" validate:"gte=0,lte=1"`
	VerticalBias   float64 `json:"vertical_bias" validate:"gte=0,lte=1"`
	HeightFraction float64 `json:"height_fraction" validate:"gt=0,lte=1"`
	Resolved       *Box    `json:"resolved,omitempty"`
}

// Branding holds the optional logo overlay. Present iff the run has a logo
// enabled.
type Branding struct {
	LogoRef   string    `json:"logo_ref" validate:"required"`
	Placement Placement `json:"placement"`
	Opacity   float64   `json:"opacity" validate:"gte=0,lte=1"`
}

// Pricing holds the optional price badge. Present iff the run's price
// toggle is on. OriginalValue, when set, renders struck through above Value.
type Pricing struct {
	Value         string    `json:"value" validate:"required"`
	OriginalValue string    `json:"original_value,omitempty"`
	OfferText     string    `json:"offer_text,omitempty"`
	Font          string    `json:"font,omitempty"`
	Placement     Placement `json:"placement"`
}

// ElementKind distinguishes the three text element variants.
type ElementKind string

// Text element kinds
const (
	ElementPlain        ElementKind = "plain"
	ElementFeatureList  ElementKind = "feature_list"
	ElementCallToAction ElementKind = "cta"
)

// Hierarchy is the relative visual importance of a text element, used to
// order placement conflict resolution.
type Hierarchy string

// Hierarchy ranks
const (
	HierarchyPrimary   Hierarchy = "primary"
	HierarchySecondary Hierarchy = "secondary"
	HierarchyTertiary  Hierarchy = "tertiary"
)

// Rank returns the numeric priority of a hierarchy level; lower is placed
// earlier. Unknown values sort last.
func (h Hierarchy) Rank() int {
	switch h {
	case HierarchyPrimary:
		return 0
	case HierarchySecondary:
		return 1
	case HierarchyTertiary:
		return 2
	default:
		return 3
	}
}

// TextStyle covers the renderable style attributes of a text element.
type TextStyle struct {
	SizeClass     string `json:"size_class" validate:"required,oneof=small medium large"`
	Weight        string `json:"weight" validate:"required,oneof=regular bold"`
	Color         string `json:"color,omitempty"`
	CaseTransform string `json:"case_transform,omitempty" validate:"omitempty,oneof=none upper title"`
}

// TextElement is one text-bearing element of the creative. Font is the
// user-supplied name and is never substituted. Overlay marks an element
// intentionally allowed to sit on top of the product zone.
type TextElement struct {
	Kind      ElementKind `json:"kind" validate:"required,oneof=plain feature_list cta"`
	Content   string      `json:"content" validate:"required"`
	Items     []string    `json:"items,omitempty"`
	Font      string      `json:"font" validate:"required"`
	Hierarchy Hierarchy   `json:"hierarchy" validate:"required,oneof=primary secondary tertiary"`
	Placement Placement   `json:"placement"`
	Style     TextStyle   `json:"style"`
	Overlay   bool        `json:"overlay,omitempty"`
}

// MaxTextElements bounds the text_elements sequence.
const MaxTextElements = 6

// CompositionSpec is the contract between the two generation stages: a
// fully specified, machine-checkable description of every visual element of
// the final creative.
type CompositionSpec struct {
	Canvas       Canvas           `json:"canvas"`
	Background   Background       `json:"background"`
	Product      ProductPlacement `json:"product"`
	Branding     *Branding        `json:"branding,omitempty"`
	Pricing      *Pricing         `json:"pricing,omitempty"`
	TextElements []TextElement    `json:"text_elements" validate:"max=6,dive"`
}

// Clone returns a deep copy. Edits during review always operate on a copy
// so the stored revision chain is immutable.
func (s *CompositionSpec) Clone() *CompositionSpec {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		// CompositionSpec contains only marshalable fields.
		panic(err)
	}
	var out CompositionSpec
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}
