package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/argusverify/argus/internal/report"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// summaryStyle picks a color for the terminal summary line based on
// the worst verdict present in the batch: any VULNERABLE/UNVERIFIED/
// ERROR renders red, an all-clear batch with at least one FIXED
// renders yellow, everything else renders green.
func summaryStyle(s report.JSONReport) lipgloss.Style {
	return summaryStyleFromCounts(s.Summary.Vulnerable, s.Summary.Unverified, s.Summary.Error, s.Summary.Fixed)
}

func summaryStyleFromCounts(vulnerable, unverified, errorCount, fixed int) lipgloss.Style {
	if vulnerable > 0 || unverified > 0 || errorCount > 0 {
		return failStyle
	}
	if fixed > 0 {
		return warnStyle
	}
	return okStyle
}
