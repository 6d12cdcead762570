package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/shared"
)

// maxTitleWidth truncates long titles so the table fits a terminal.
const maxTitleWidth = 48

var historyHeaders = []string{"ID", "Title", "Type", "Status", "Created", "File"}

// RenderHistory draws downloads as a bordered table. Status cells are colored by outcome.
func RenderHistory(downloads []*models.Download) string {
	if len(downloads) == 0 {
		return styles.Help("No downloads yet.")
	}

	rows := make([][]string, 0, len(downloads))
	statuses := make([]models.Status, 0, len(downloads))
	for _, d := range downloads {
		rows = append(rows, []string{
			fmt.Sprintf("%d", d.ID()),
			clip(d.Title(), maxTitleWidth),
			d.Kind().String(),
			d.Status().String(),
			d.CreatedAt().UTC().Format(shared.TimestampLayout),
			d.Filename(),
		})
		statuses = append(statuses, d.Status())
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(true).Foreground(lipgloss.Color("#7D56F4"))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		Headers(historyHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 3 && row >= 0 && row < len(statuses) {
				return statusStyle(statuses[row]).Padding(0, 1)
			}
			return cell
		})

	return t.String()
}

func statusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusCompleted:
		return styles.ok
	case models.StatusFailed:
		return styles.err
	default:
		return styles.warn
	}
}

// clip shortens s to n runes with a trailing ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
