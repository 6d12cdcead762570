// package formatter exports a user's download history to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// ParseFormat maps a flag value to a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// ExportToCSV converts downloads to CSV with columns: ID, Title, URL, Type, Status, Filename, Created
func ExportToCSV(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "URL", "Type", "Status", "Filename", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range downloads {
		record := []string{
			strconv.FormatInt(d.ID(), 10),
			d.Title(),
			d.URL(),
			d.Kind().String(),
			d.Status().String(),
			d.Filename(),
			d.CreatedAt().UTC().Format(shared.TimestampLayout),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts downloads to a Markdown report headed by the owner's username
func ExportToMarkdown(username string, downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Downloads for %s\n\n", username))

	counts := map[models.Status]int{}
	for _, d := range downloads {
		counts[d.Status()]++
	}
	buf.WriteString(fmt.Sprintf("**Total**: %d\n", len(downloads)))
	buf.WriteString(fmt.Sprintf("**Completed**: %d\n", counts[models.StatusCompleted]))
	buf.WriteString(fmt.Sprintf("**Failed**: %d\n\n", counts[models.StatusFailed]))

	if len(downloads) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| ID | Title | Type | Status | Created | File |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, d := range downloads {
		file := d.Filename()
		if file == "" {
			file = "-"
		}
		buf.WriteString(fmt.Sprintf("| %d | [%s](%s) | %s | %s | %s | %s |\n",
			d.ID(),
			escapeMarkdown(d.Title()),
			d.URL(),
			d.Kind(),
			d.Status(),
			d.CreatedAt().UTC().Format(shared.TimestampLayout),
			escapeMarkdown(file),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts downloads to plain text format
func ExportToText(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Downloads: %d\n\n", len(downloads)))

	for i, d := range downloads {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s (%s)\n", i+1, d.Status(), d.Title(), d.Kind()))
		if d.Filename() != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", d.Filename()))
		}
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts downloads to the same {"downloads": [...]} shape served by the status endpoint
func ExportToJSON(downloads []*models.Download, pretty bool) ([]byte, error) {
	records := make([]models.StatusRecord, 0, len(downloads))
	for _, d := range downloads {
		records = append(records, d.Record())
	}

	payload := struct {
		Downloads []models.StatusRecord `json:"downloads"`
	}{records}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders downloads in the given format.
func Export(format Format, username string, downloads []*models.Download) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(downloads)
	case FormatMarkdown:
		return ExportToMarkdown(username, downloads)
	case FormatText:
		return ExportToText(downloads)
	case FormatJSON:
		return ExportToJSON(downloads, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes downloads to path in the given format.
//
// Defaults to {username}_downloads.{format} as the filename.
func WriteExport(format Format, username string, downloads []*models.Download, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_downloads.%s", username, format)
	}

	data, err := Export(format, username, downloads)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "[", `\[`, "]", `\]`).Replace(s)
}
