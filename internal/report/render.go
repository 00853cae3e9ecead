package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/packstream/internal/engine"
)

// DefaultPerformanceBudget is the asset size above which the performance
// section warns.
const DefaultPerformanceBudget = 250_000

// maxAssetNameWidth bounds the asset column so one long name cannot push
// sizes off screen.
const maxAssetNameWidth = 60

// StatsOptions selects what a stats rendering includes.
type StatsOptions struct {
	Colors      bool // ANSI colours
	Hash        bool // compilation hash
	BuiltAt     bool // build start time
	Timings     bool // build duration
	Assets      bool // asset table
	Warnings    bool // engine warnings
	Performance bool // asset size budget warnings
	Modules     bool // module breakdown

	// PerformanceBudget is the size in bytes above which an asset is
	// flagged. Zero means DefaultPerformanceBudget.
	PerformanceBudget int
}

// DefaultStatsOptions returns the default selection. Colours are off; the
// CLI turns them on when stdout is a terminal.
func DefaultStatsOptions() StatsOptions {
	return StatsOptions{
		Timings:           true,
		Assets:            true,
		Warnings:          true,
		Performance:       true,
		PerformanceBudget: DefaultPerformanceBudget,
	}
}

// verboseOptions enables every section.
func verboseOptions(colors bool) StatsOptions {
	return StatsOptions{
		Colors:            colors,
		Hash:              true,
		BuiltAt:           true,
		Timings:           true,
		Assets:            true,
		Warnings:          true,
		Performance:       true,
		Modules:           true,
		PerformanceBudget: DefaultPerformanceBudget,
	}
}

// palette paints text when colours are enabled and passes it through
// otherwise, so renderings stay byte-for-byte stable in plain mode.
type palette struct {
	enabled bool
	title   lipgloss.Style
	asset   lipgloss.Style
	big     lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
}

func newPalette(w io.Writer, enabled bool) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		enabled: enabled,
		title:   r.NewStyle().Bold(true).Foreground(primaryColor),
		asset:   r.NewStyle().Foreground(successColor),
		big:     r.NewStyle().Bold(true).Foreground(warningColor),
		warn:    r.NewStyle().Foreground(warningColor),
		err:     r.NewStyle().Bold(true).Foreground(errorColor),
		muted:   r.NewStyle().Foreground(mutedColor),
	}
}

func (p palette) paint(s lipgloss.Style, text string) string {
	if !p.enabled {
		return text
	}
	return s.Render(text)
}

// Render formats one target's stats.
func Render(w io.Writer, s *engine.Stats, opts StatsOptions) string {
	if s == nil || s.Compilation == nil {
		return ""
	}
	c := s.Compilation
	p := newPalette(w, opts.Colors)
	budget := opts.PerformanceBudget
	if budget <= 0 {
		budget = DefaultPerformanceBudget
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s %s", p.paint(p.muted, "Target:"), p.paint(p.title, c.Target))
	if opts.Hash && c.Hash != "" {
		line("%s %s", p.paint(p.muted, "Hash:"), c.Hash)
	}
	if opts.BuiltAt && !c.StartTime.IsZero() {
		line("%s %s", p.paint(p.muted, "Built at:"), c.StartTime.UTC().Format(time.RFC3339))
	}
	if opts.Timings {
		line("%s %dms", p.paint(p.muted, "Time:"), c.Duration.Milliseconds())
	}

	if opts.Assets && len(c.Assets) > 0 {
		names := make([]string, len(c.Assets))
		width := len("Asset")
		for i, a := range c.Assets {
			names[i] = truncate(a.Name, maxAssetNameWidth)
			width = max(width, lipgloss.Width(names[i]))
		}
		width += 2

		line("%s%s", pad(p.paint(p.muted, "Asset"), width), p.paint(p.muted, "Size"))
		for i, a := range c.Assets {
			size := FormatSize(a.Size)
			if opts.Performance && a.Size > budget {
				size += " " + p.paint(p.big, "[big]")
			}
			line("%s%s", pad(p.paint(p.asset, names[i]), width), size)
		}
	}

	if opts.Warnings {
		for _, m := range c.Warnings {
			line("%s %s", p.paint(p.warn, "WARNING in"), m.String())
		}
	}
	if opts.Performance {
		for _, a := range c.Assets {
			if a.Size > budget {
				line("%s asset size limit: %s (%s) exceeds the recommended limit (%s)",
					p.paint(p.warn, "WARNING in"), a.Name, FormatSize(a.Size), FormatSize(budget))
			}
		}
	}
	for _, m := range c.Errors {
		line("%s %s", p.paint(p.err, "ERROR in"), m.String())
	}

	if opts.Modules && strings.TrimSpace(c.Details) != "" {
		line("%s", strings.TrimRight(strings.TrimLeft(c.Details, "\n"), "\n"))
	}
	return b.String()
}

// pad right-pads s to width display columns.
func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// truncate shortens s to maxWidth display columns, keeping ANSI sequences
// intact.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// FormatSize renders a byte count using binary units.
func FormatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.2f KiB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MiB", float64(n)/(1024*1024))
	}
}
