// package formatter renders a preference snapshot and its catalog as CSV, Markdown, plain text, or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/preferences"
	"github.com/meetingbaas/settings/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, s)
}

// Extension returns the file extension used for f.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// Export is the data behind every format.
type Export struct {
	Account    string
	Catalog    models.Catalog
	Snapshot   models.Snapshot
	ExportedAt time.Time
}

// Row is one email type with its current frequency.
type Row struct {
	Domain    models.Domain      `json:"domain"`
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Frequency models.Frequency   `json:"frequency"`
	Required  bool               `json:"required"`
	Supported []models.Frequency `json:"supported"`
}

// NewExport creates an [Export] stamped with the current time.
func NewExport(account string, catalog models.Catalog, snapshot models.Snapshot) *Export {
	return &Export{Account: account, Catalog: catalog, Snapshot: snapshot, ExportedAt: time.Now().UTC()}
}

// Rows lists every email type grouped by domain in display order, catalog order within a domain.
func (e *Export) Rows() []Row {
	rows := make([]Row, 0, len(e.Catalog))
	for _, d := range models.Domains() {
		for _, item := range e.Catalog.ByDomain(d) {
			f, _ := e.Snapshot.Get(item.ID)
			rows = append(rows, Row{
				Domain:    d,
				ID:        item.ID,
				Name:      item.Name,
				Frequency: f,
				Required:  item.Required,
				Supported: item.Frequencies,
			})
		}
	}
	return rows
}

// ExportToCSV writes one row per email type with columns: Domain, ID, Name, Frequency, Required, Supported
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Domain", "ID", "Name", "Frequency", "Required", "Supported"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range export.Rows() {
		record := []string{
			string(row.Domain),
			row.ID,
			row.Name,
			string(row.Frequency),
			strconv.FormatBool(row.Required),
			joinFrequencies(row.Supported, "|"),
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

// ExportToMarkdown renders a section per domain, with the domain-wide frequency when it has a bulk control.
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Email preferences: %s\n\n", export.Account)
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	for _, d := range models.Domains() {
		items := export.Catalog.ByDomain(d)
		if len(items) == 0 {
			continue
		}

		cfg := d.Config()
		fmt.Fprintf(&buf, "## %s\n\n", cfg.Name)
		if cfg.Description != "" {
			fmt.Fprintf(&buf, "%s\n\n", cfg.Description)
		}
		if preferences.ShowBulkControl(d, export.Catalog) {
			agg := preferences.DomainFrequency(d, export.Snapshot, export.Catalog)
			fmt.Fprintf(&buf, "**All %s**: %s\n\n", strings.ToLower(cfg.Name), agg.Label())
		}

		for _, item := range items {
			f, _ := export.Snapshot.Get(item.ID)
			suffix := ""
			if item.Required {
				suffix = " _(required)_"
			}
			fmt.Fprintf(&buf, "- **%s**: %s%s\n", item.Name, f.Label(), suffix)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts an [Export] to plain text format
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Account: %s\n", export.Account)
	fmt.Fprintf(&buf, "Email types: %d\n", len(export.Catalog))

	current := models.Domain("")
	for _, row := range export.Rows() {
		if row.Domain != current {
			current = row.Domain
			fmt.Fprintf(&buf, "\n%s\n", current.Config().Name)
		}
		required := ""
		if row.Required {
			required = " (required)"
		}
		fmt.Fprintf(&buf, "  %-28s %-8s%s\n", row.Name, row.Frequency.Label(), required)
	}

	return buf.Bytes(), nil
}

type jsonExport struct {
	Account    string                      `json:"account"`
	ExportedAt time.Time                   `json:"exportedAt"`
	Domains    map[models.Domain]string    `json:"domains"`
	Items      []Row                       `json:"items"`
	Snapshot   map[string]models.Frequency `json:"snapshot"`
}

// ExportToJSON renders the rows, the aggregate per domain, and the raw snapshot.
func ExportToJSON(export *Export) ([]byte, error) {
	out := jsonExport{
		Account:    export.Account,
		ExportedAt: export.ExportedAt,
		Domains:    make(map[models.Domain]string),
		Items:      export.Rows(),
		Snapshot:   export.Snapshot.Clone(),
	}
	for _, d := range models.Domains() {
		if len(export.Catalog.Optional(d)) > 0 {
			out.Domains[d] = preferences.DomainFrequency(d, export.Snapshot, export.Catalog).String()
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

// Render dispatches to the exporter for format.
func Render(export *Export, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return ExportToText(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatJSON:
		return ExportToJSON(export)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
}

// WriteExport renders export in format and writes it to path.
//
// Defaults to preferences-{account}.{ext} as the filename.
func WriteExport(export *Export, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("preferences-%s.%s", export.Account, format.Extension())
	}

	data, err := Render(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func joinFrequencies(fs []models.Frequency, sep string) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, sep)
}
