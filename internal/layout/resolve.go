// Package layout resolves symbolic placement descriptors into absolute,
// non-overlapping canvas coordinates.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/creative-composer/internal/types"
)

const (
	// canvasMargin keeps every element off the canvas edge.
	canvasMargin = 48
	// nudgeStep is how far a conflicting box shifts per attempt.
	nudgeStep = 40
	// maxNudgeAttempts bounds the conflict pass per element.
	maxNudgeAttempts = 8

	logoWidth  = 200
	logoHeight = 120

	badgeLineHeight = 56
	badgePadding    = 24
)

// lineHeights maps text size classes to pixel line heights.
var lineHeights = map[string]int{
	"small":  48,
	"medium": 72,
	"large":  108,
}

// Resolve converts every placement descriptor in the specification into an
// absolute pixel box, then runs the conflict pass: product first, branding
// before pricing, then text elements in hierarchy order. An element whose
// box still overlaps a previously placed equal-or-higher-priority box after
// the nudge budget is flagged as a resolution failure rather than silently
// overlapped.
//
// Resolution reads only symbolic fields, so resolving an already-resolved
// specification reproduces identical coordinates. The input is never
// mutated.
func Resolve(spec *types.CompositionSpec) (*types.CompositionSpec, error) {
	out := spec.Clone()
	canvas := out.Canvas

	productBox := resolveProduct(&out.Product, canvas)

	placed := []types.Box{productBox}
	var conflicts []string

	if out.Branding != nil {
		box, ok := place(&out.Branding.Placement, logoWidth, logoHeight, canvas, placed, false, productBox)
		if ok {
			placed = append(placed, box)
		} else {
			conflicts = append(conflicts, "branding")
		}
	}

	if out.Pricing != nil {
		w, h := badgeSize(out.Pricing)
		box, ok := place(&out.Pricing.Placement, w, h, canvas, placed, false, productBox)
		if ok {
			placed = append(placed, box)
		} else {
			conflicts = append(conflicts, "pricing")
		}
	}

	for _, idx := range byHierarchy(out.TextElements) {
		el := &out.TextElements[idx]
		w, h := textSize(el, canvas)
		box, ok := place(&el.Placement, w, h, canvas, placed, el.Overlay, productBox)
		if ok {
			placed = append(placed, box)
		} else {
			conflicts = append(conflicts, fmt.Sprintf("text_elements[%d]", idx))
		}
	}

	if len(conflicts) > 0 {
		return out, &ConflictError{Elements: conflicts}
	}
	return out, nil
}

// byHierarchy returns element indices in placement order: primary, then
// secondary, then tertiary, stable within each rank.
func byHierarchy(elements []types.TextElement) []int {
	order := make([]int, len(elements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return elements[order[a]].Hierarchy.Rank() < elements[order[b]].Hierarchy.Rank()
	})
	return order
}

func resolveProduct(p *types.ProductPlacement, canvas types.Canvas) types.Box {
	h := int(math.Round(p.HeightFraction * float64(canvas.Height)))
	// The product zone is reserved square; the renderer keeps the real aspect.
	w := h
	if w > canvas.Width {
		w = canvas.Width
	}
	box := types.Box{
		X:      int(math.Round(p.HorizontalBias * float64(canvas.Width-w))),
		Y:      int(math.Round(p.VerticalBias * float64(canvas.Height-h))),
		Width:  w,
		Height: h,
	}
	p.Resolved = &box
	return box
}

// place resolves one descriptor, nudging along the anchor's free axis while
// the box overlaps previously placed elements. overlay elements skip the
// product-zone check but still avoid other elements. Returns the final box
// and whether placement succeeded.
func place(pl *types.Placement, w, h int, canvas types.Canvas, placed []types.Box, overlay bool, productBox types.Box) (types.Box, bool) {
	box := anchorBox(pl, w, h, canvas)
	dx, dy := nudgeDirection(pl.Anchor)

	for attempt := 0; attempt <= maxNudgeAttempts; attempt++ {
		if !conflicts(box, placed, overlay, productBox) {
			resolved := box
			pl.Resolved = &resolved
			pl.ResolutionFailed = false
			return box, true
		}
		box.X = clamp(box.X+dx*nudgeStep, 0, canvas.Width-box.Width)
		box.Y = clamp(box.Y+dy*nudgeStep, 0, canvas.Height-box.Height)
	}

	pl.Resolved = nil
	pl.ResolutionFailed = true
	return types.Box{}, false
}

func conflicts(box types.Box, placed []types.Box, overlay bool, productBox types.Box) bool {
	for _, other := range placed {
		if overlay && other == productBox {
			continue
		}
		if box.Intersects(other) {
			return true
		}
	}
	return false
}

// anchorBox converts a symbolic anchor plus offsets into an absolute box.
// Custom anchors position purely from the offsets.
func anchorBox(pl *types.Placement, w, h int, canvas types.Canvas) types.Box {
	var x, y int
	switch pl.Anchor {
	case types.AnchorCustom:
		x, y = pl.OffsetX, pl.OffsetY
	default:
		switch pl.Anchor {
		case types.AnchorTopLeft, types.AnchorMiddleLeft, types.AnchorBottomLeft:
			x = canvasMargin
		case types.AnchorTopCenter, types.AnchorCenter, types.AnchorBottomCenter:
			x = (canvas.Width - w) / 2
		case types.AnchorTopRight, types.AnchorMiddleRight, types.AnchorBottomRight:
			x = canvas.Width - canvasMargin - w
		}
		switch pl.Anchor {
		case types.AnchorTopLeft, types.AnchorTopCenter, types.AnchorTopRight:
			y = canvasMargin
		case types.AnchorMiddleLeft, types.AnchorCenter, types.AnchorMiddleRight:
			y = (canvas.Height - h) / 2
		case types.AnchorBottomLeft, types.AnchorBottomCenter, types.AnchorBottomRight:
			y = canvas.Height - canvasMargin - h
		}
		x += pl.OffsetX
		y += pl.OffsetY
	}

	return types.Box{
		X:      clamp(x, 0, canvas.Width-w),
		Y:      clamp(y, 0, canvas.Height-h),
		Width:  w,
		Height: h,
	}
}

// nudgeDirection is the free axis for each anchor: a top-center element
// nudges downward, a bottom-right element upward, and so on.
func nudgeDirection(anchor types.Anchor) (dx, dy int) {
	switch anchor {
	case types.AnchorTopLeft, types.AnchorTopCenter, types.AnchorTopRight:
		return 0, 1
	case types.AnchorBottomLeft, types.AnchorBottomCenter, types.AnchorBottomRight:
		return 0, -1
	case types.AnchorMiddleLeft:
		return 1, 0
	case types.AnchorMiddleRight:
		return -1, 0
	default: // center, custom
		return 0, 1
	}
}

// textSize estimates a text element's bounding box from its size class and
// content length. The estimate only needs to be deterministic and roughly
// proportional; the renderer draws the actual glyphs.
func textSize(el *types.TextElement, canvas types.Canvas) (w, h int) {
	lh, ok := lineHeights[el.Style.SizeClass]
	if !ok {
		lh = lineHeights["medium"]
	}

	lines := 1
	longest := len(el.Content)
	if el.Kind == types.ElementFeatureList {
		lines = len(el.Items)
		if lines == 0 {
			lines = 1
		}
		longest = 0
		for _, item := range el.Items {
			if len(item) > longest {
				longest = len(item)
			}
		}
	}

	charWidth := float64(lh) * 0.55
	w = int(math.Round(charWidth * float64(longest)))
	maxWidth := canvas.Width - 2*canvasMargin
	if w > maxWidth {
		// Long content wraps; widen the box to the margin and grow downward.
		lines += w/maxWidth + boolToInt(w%maxWidth > 0) - 1
		w = maxWidth
	}
	if w < lh {
		w = lh
	}
	return w, lh * lines
}

func badgeSize(p *types.Pricing) (w, h int) {
	longest := len(p.Value)
	lines := 1
	if p.OriginalValue != "" {
		lines++
		if len(p.OriginalValue) > longest {
			longest = len(p.OriginalValue)
		}
	}
	if p.OfferText != "" {
		lines++
		if len(p.OfferText) > longest {
			longest = len(p.OfferText)
		}
	}
	w = int(math.Round(float64(badgeLineHeight)*0.55*float64(longest))) + 2*badgePadding
	return w, badgeLineHeight*lines + 2*badgePadding
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
