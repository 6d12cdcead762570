// Package ui renders CLI output with [lipgloss] styles.
//
// [RenderHistory] draws a user's download ledger as a table and [RenderProgress] turns the
// workflow's progress updates into status lines for the fetch command. Styling comes from a
// shared [Palette]; callers writing to a non-terminal get plain text from lipgloss automatically.
package ui
