package ui

import (
	"fmt"

	"github.com/desertthunder/ytfetch/internal/tasks"
)

// RenderProgress formats one workflow update as a status line.
func RenderProgress(update tasks.ProgressUpdate) string {
	switch update.Phase {
	case tasks.Complete:
		return styles.Success("✓ " + update.Message)
	case tasks.Failed:
		return styles.Error("✗ " + update.Message)
	default:
		step := styles.Help(fmt.Sprintf("[%d/%d]", update.Step, update.Total))
		return fmt.Sprintf("%s %s", step, update.Message)
	}
}

// RenderResult summarizes a completed download.
func RenderResult(result *tasks.Result) string {
	title := styles.Title("Download Complete!")
	return fmt.Sprintf("%s\nTitle: %s\nType: %s\nStored as: %s\nPath: %s\n",
		title, result.Title, result.Kind, result.Filename, result.Path)
}
