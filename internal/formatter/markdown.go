// Package formatter renders and realigns Markdown tables.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatMarkdown realigns every table in a Markdown document so that the
// pipes of each column line up by display width. Other lines are unchanged.
func FormatMarkdown(content string) string {
	lines := strings.Split(content, "\n")

	var formattedLines []string

	var tableBuffer []string

	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)

		// Simple heuristic: starts and ends with |
		if strings.HasPrefix(trimmedLine, "|") && strings.HasSuffix(trimmedLine, "|") {
			tableBuffer = append(tableBuffer, line)

			continue
		}

		if len(tableBuffer) > 0 {
			formattedLines = append(formattedLines, processTable(tableBuffer)...)
			tableBuffer = nil
		}

		formattedLines = append(formattedLines, line)
	}

	if len(tableBuffer) > 0 {
		formattedLines = append(formattedLines, processTable(tableBuffer)...)
	}

	return strings.Join(formattedLines, "\n")
}

// Table renders header and rows as an aligned Markdown table, one line per
// row, without a trailing newline. Pipes inside cells are escaped.
func Table(header []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, rawRow(header))

	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}

	lines = append(lines, rawRow(sep))

	for _, row := range rows {
		lines = append(lines, rawRow(row))
	}

	return strings.Join(processTable(lines), "\n")
}

// EscapeCell makes a value safe to place inside a table cell.
func EscapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")

	return strings.ReplaceAll(s, "|", `\|`)
}

func rawRow(cells []string) string {
	var sb strings.Builder

	sb.WriteString("|")

	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(EscapeCell(c))
		sb.WriteString(" |")
	}

	return sb.String()
}

// splitRow splits a table line on pipes that are not escaped.
func splitRow(row string) []string {
	var (
		parts []string
		cur   strings.Builder
	)

	escaped := false

	for _, r := range row {
		switch {
		case escaped:
			cur.WriteRune(r)

			escaped = false
		case r == '\\':
			cur.WriteRune(r)

			escaped = true
		case r == '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}

	return append(parts, cur.String())
}

func processTable(rows []string) []string {
	// needs at least header and separator
	if len(rows) < 2 {
		return rows
	}

	var table [][]string

	for _, row := range rows {
		parts := splitRow(strings.TrimSpace(row))

		// leading and trailing pipes leave empty parts at the ends
		if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
			parts = parts[1:]
		}

		if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
			parts = parts[:len(parts)-1]
		}

		cells := make([]string, len(parts))
		for i, p := range parts {
			cells[i] = strings.TrimSpace(p)
		}

		table = append(table, cells)
	}

	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return rows
	}

	separatorRowIdx := -1

	isSep := len(table[1]) > 0
	for _, cell := range table[1] {
		trim := strings.NewReplacer("-", "", ":", "", " ", "").Replace(cell)
		if trim != "" {
			isSep = false
			break
		}
	}

	if isSep {
		separatorRowIdx = 1
	}

	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	// "---" is the shortest valid separator
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			sb.WriteString(" ")

			if i == separatorRowIdx {
				sb.WriteString(strings.Repeat("-", colWidths[j]))
			} else {
				content := ""
				if j < len(row) {
					content = row[j]
				}

				sb.WriteString(content)

				if padding := colWidths[j] - runewidth.StringWidth(content); padding > 0 {
					sb.WriteString(strings.Repeat(" ", padding))
				}
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}
