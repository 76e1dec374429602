package tui

import (
	"fmt"
	"io"
	"strings"

	"pysel/internal/distribution"
	"pysel/internal/paths"
)

// Column defines a single column in a distribution table.
type Column struct {
	Header string
	Width  int
}

var listColumns = []Column{
	{Header: " ", Width: 1},
	{Header: "VENDOR", Width: 12},
	{Header: "TAG", Width: 14},
	{Header: "VERSION", Width: 8},
	{Header: "BITS", Width: 4},
	{Header: "SCOPE", Width: 11},
	{Header: "PATH", Width: 48},
}

// Marker returns the row marker for d: "active" when its key equals
// activeKey, "missing" when its interpreter has vanished since discovery.
func Marker(d distribution.Distribution, activeKey string) string {
	switch {
	case activeKey != "" && d.Key() == activeKey:
		return "active"
	case d.ExecutablePath != "" && !paths.IsFile(d.ExecutablePath):
		return "missing"
	}
	return ""
}

// RenderTable writes ranked distributions as an aligned table. The active
// distribution is flagged with '*'. styled enables lipgloss colours.
func RenderTable(w io.Writer, ds []distribution.Distribution, activeKey string, styled bool) error {
	widths := make([]int, len(listColumns))
	for i, col := range listColumns {
		widths[i] = len(col.Header)
	}
	rows := make([][]string, 0, len(ds))
	markers := make([]string, 0, len(ds))
	for _, d := range ds {
		marker := Marker(d, activeKey)
		flag := ""
		if marker == "active" {
			flag = "*"
		}
		row := []string{
			flag,
			d.Vendor,
			d.Tag,
			NonEmptyOrDash(d.ReportedVersion),
			fmt.Sprint(int(d.Width)),
			string(d.Scope),
			d.InstallPath,
		}
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = min(len(v), max(listColumns[i].Width, len(listColumns[i].Header)))
			}
		}
		rows = append(rows, row)
		markers = append(markers, marker)
	}

	var b strings.Builder
	header := make([]string, len(listColumns))
	for i, col := range listColumns {
		h := pad(col.Header, widths[i])
		if styled {
			h = HeaderStyle.Render(h)
		}
		header[i] = h
	}
	b.WriteString(strings.TrimRight(strings.Join(header, "  "), " "))
	b.WriteByte('\n')

	for r, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			// Paths keep their tail, which is the distinguishing part.
			if i == len(row)-1 {
				v = truncateLeft(v, widths[i])
			} else {
				v = TruncateWithEllipsis(v, widths[i])
			}
			parts[i] = pad(v, widths[i])
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if styled {
			line = MarkerStyle(markers[r]).Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func truncateLeft(value string, max int) string {
	if len(value) <= max || max <= 3 {
		return value
	}
	return "..." + value[len(value)-(max-3):]
}
