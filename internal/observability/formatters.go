// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/orchestrator"
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

// PrintRunReport outputs the headline numbers for a completed run.
func (p *Printer) PrintRunReport(report *orchestrator.RunReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", report.RunID))
	if report.DryRun {
		sb.WriteString("Mode:      DRY RUN (no writes)\n")
	}
	sb.WriteString(fmt.Sprintf("Duration:  %.1fs\n", report.DurationSec))
	sb.WriteString(fmt.Sprintf("Quota:     %d units\n", report.QuotaUsed))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Sources processed:  %d\n", report.Totals.SourcesProcessed))
	sb.WriteString(fmt.Sprintf("Candidates found:   %d\n", report.Totals.Candidates))
	sb.WriteString(fmt.Sprintf("Bags published:     %d\n", report.Totals.BagsPublished))
	sb.WriteString(fmt.Sprintf("Gaps recorded:      %d\n", report.Totals.GapsRecorded))
	if report.Totals.VerticalErrors > 0 {
		sb.WriteString(fmt.Sprintf("Vertical errors:    %d\n", report.Totals.VerticalErrors))
	}

	p.printBox("DISCOVERY RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))

	for _, vr := range report.Verticals {
		p.PrintVerticalReport(vr)
	}
}

// PrintVerticalReport outputs one vertical's slice of the run.
func (p *Printer) PrintVerticalReport(vr *orchestrator.VerticalReport) {
	if vr == nil {
		return
	}

	var sb strings.Builder

	if vr.Research != nil {
		sb.WriteString(fmt.Sprintf("Sources:     %d found, %d usable\n", vr.Research.SourcesFound, vr.Research.SourcesUsable))
		sb.WriteString(fmt.Sprintf("Candidates:  %d\n", vr.Research.CandidatesFound))
		if len(vr.Research.TopCandidates) > 0 {
			sb.WriteString("\nTop picks:\n")
			for _, name := range vr.Research.TopCandidates {
				if len(name) > 45 {
					name = name[:42] + "..."
				}
				sb.WriteString(fmt.Sprintf("  • %s\n", name))
			}
		}
	}

	if vr.Curation != nil {
		sb.WriteString("\n")
		if vr.Curation.Published {
			sb.WriteString(fmt.Sprintf("Bag:         published, %d items (%d matched)\n",
				len(vr.Curation.Items), vr.Curation.MatchedCount))
		} else if vr.Curation.SkipReason != "" {
			sb.WriteString(fmt.Sprintf("Bag:         skipped (%s)\n", vr.Curation.SkipReason))
		}
	}

	if vr.Gaps != nil {
		sb.WriteString(fmt.Sprintf("Gaps:        %d recorded, %d unresolved total\n",
			len(vr.Gaps.Entries), vr.Gaps.TotalUnresolved))
	}

	if vr.Error != "" {
		errText := vr.Error
		if len(errText) > 50 {
			errText = errText[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("\n⚠ %s\n", errText))
	}

	if sb.Len() == 0 {
		return
	}
	p.printBox(strings.ToUpper(vr.Vertical), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGapReport outputs the library gap backlog.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintGapReport(report *gaps.Report) {
	if report == nil || len(report.Verticals) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO LIBRARY GAPS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	for name, vr := range report.Verticals {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Unresolved gaps: %d\n", vr.Unresolved))

		count := min(len(vr.TopGaps), maxItemsToShow)
		if count > 0 {
			sb.WriteString("\n")
		}
		for i := 0; i < count; i++ {
			gap := vr.TopGaps[i]
			display := gap.DisplayName
			if gap.BrandGuess != "" && !strings.Contains(strings.ToLower(display), strings.ToLower(gap.BrandGuess)) {
				display = gap.BrandGuess + " " + display
			}
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, display))
			sb.WriteString(fmt.Sprintf("    Priority: %.1f  Seen: %d times\n", gap.Priority, gap.OccurrenceCount))
			if i < count-1 {
				sb.WriteString("\n")
			}
		}
		if len(vr.TopGaps) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n... and %d more gaps", len(vr.TopGaps)-maxItemsToShow))
		}

		p.printBox(fmt.Sprintf("LIBRARY GAPS: %s", strings.ToUpper(name)), strings.TrimSuffix(sb.String(), "\n"))
	}
}
