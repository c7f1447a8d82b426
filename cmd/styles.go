package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/mandelgrid/internal/config"
	"github.com/zjrosen/mandelgrid/internal/engine"
)

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#54A0FF")).
			Padding(0, 1)

	summaryTitle = lipgloss.NewStyle().Bold(true)
	summaryLabel = lipgloss.NewStyle().Faint(true).Width(11)
	convergedVal = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	divergedVal  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8787"))
)

func renderSummary(res *engine.Result, cfg config.Config) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, summaryLabel.Render(label), value)
	}
	rows := []string{
		summaryTitle.Render("run " + res.RunID),
		row("samples", fmt.Sprint(len(res.Samples))),
		row("converged", convergedVal.Render(fmt.Sprint(res.Converged))),
		row("diverged", divergedVal.Render(fmt.Sprint(res.Diverged))),
		row("workers", fmt.Sprint(res.Workers)),
		row("compute", res.Elapsed.Round(time.Millisecond).String()),
		row("output", fmt.Sprintf("%s (%s)", cfg.Output.Path, cfg.Output.Format)),
	}
	return summaryBox.Render(strings.Join(rows, "\n"))
}
