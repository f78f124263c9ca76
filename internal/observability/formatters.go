// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRun outputs a human-readable summary of a run's current state.
func (p *Printer) PrintRun(record *db.RunRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", record.ID))
	sb.WriteString(fmt.Sprintf("State:    %s\n", record.State))
	sb.WriteString(fmt.Sprintf("Product:  %s\n", record.Attributes.ProductDescription))
	if record.CompileAttempts > 0 {
		sb.WriteString(fmt.Sprintf("Compile:  %d attempt(s)\n", record.CompileAttempts))
	}
	if record.RenderAttempts > 0 {
		sb.WriteString(fmt.Sprintf("Render:   %d attempt(s)\n", record.RenderAttempts))
	}
	if record.CreativeRef != nil {
		sb.WriteString(fmt.Sprintf("Creative: %s\n", *record.CreativeRef))
	}
	if record.RunError != nil {
		sb.WriteString(fmt.Sprintf("Error:    [%s] %s\n", record.RunError.Code, record.RunError.Message))
	}

	p.printBox("RUN", strings.TrimRight(sb.String(), "\n"))
}

// PrintSpec outputs a human-readable summary of a composition spec, for
// review before approval.
func (p *Printer) PrintSpec(title string, spec *types.CompositionSpec) {
	if spec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Canvas:     %dx%d\n", spec.Canvas.Width, spec.Canvas.Height))
	switch spec.Background.Kind {
	case types.BackgroundSolidColor:
		sb.WriteString(fmt.Sprintf("Background: solid %s\n", spec.Background.Color))
	case types.BackgroundBlurredScene:
		sb.WriteString(fmt.Sprintf("Background: scene %q\n", spec.Background.SceneHint))
	}
	sb.WriteString(fmt.Sprintf("Product:    bias %.2f/%.2f, height %.0f%%\n",
		spec.Product.HorizontalBias, spec.Product.VerticalBias, spec.Product.HeightFraction*100))

	if spec.Pricing != nil {
		price := spec.Pricing.Value
		if spec.Pricing.OriginalValue != "" {
			price = fmt.Sprintf("%s (was %s)", price, spec.Pricing.OriginalValue)
		}
		sb.WriteString(fmt.Sprintf("Pricing:    %s\n", price))
	}
	if spec.Branding != nil {
		sb.WriteString(fmt.Sprintf("Logo:       %s @ %s\n", spec.Branding.LogoRef, spec.Branding.Placement.Anchor))
	}

	if len(spec.TextElements) > 0 {
		sb.WriteString("\nText Elements:\n")
		count := min(len(spec.TextElements), maxItemsToShow)
		for i := 0; i < count; i++ {
			el := spec.TextElements[i]
			sb.WriteString(fmt.Sprintf("  • [%s/%s] %q in %s @ %s\n",
				el.Kind, el.Hierarchy, el.Content, el.Font, el.Placement.Anchor))
		}
		if len(spec.TextElements) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(spec.TextElements)-maxItemsToShow))
		}
	}

	p.printBox(title, strings.TrimRight(sb.String(), "\n"))
}

// PrintViolations outputs the rule failures that rejected an edit.
func (p *Printer) PrintViolations(vs types.Violations) {
	if vs.Empty() {
		return
	}

	var sb strings.Builder
	for _, v := range vs.Violations {
		sb.WriteString(fmt.Sprintf("  • %s: %s (%s)\n", v.Field, v.Details, v.Rule))
	}

	p.printBox("SPEC VIOLATIONS", strings.TrimRight(sb.String(), "\n"))
}
