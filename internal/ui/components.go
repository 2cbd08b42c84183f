package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/micscope/internal/visualizer"
)

// fillRatio is the occupancy of the fullest channel as a fraction of
// capacity.
func fillRatio(lens []int, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	longest := 0
	for _, n := range lens {
		longest = max(longest, n)
	}
	ratio := float64(longest) / float64(capacity)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// renderLegend draws one colored dot and label per channel, matching the
// trace colors.
func renderLegend(n int) string {
	parts := make([]string, n)
	for ch := range n {
		dot := lipgloss.NewStyle().
			Foreground(lipgloss.Color(visualizer.ChannelHex(ch, n))).
			Render("●")
		parts[ch] = fmt.Sprintf("%s %d", dot, ch+1)
	}
	return strings.Join(parts, "  ")
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}

func indent(block string) string {
	if block == "" {
		return ""
	}
	return "  " + strings.ReplaceAll(block, "\n", "\n  ")
}
