package display

import (
	"fmt"
	"io"
	"strings"

	"tariffant/internal/tabular"
)

// batchRows converts a batch to display rows for JSON output.
func batchRows(b *tabular.Batch, maxRows int) []row {
	n := b.NumRows()
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	rows := make([]row, 0, n)
	for i := 0; i < n; i++ {
		r := make(row, len(b.Columns()))
		for _, col := range b.Columns() {
			v, _ := b.Value(i, col.Name)
			r[col.Name] = v.String()
		}
		rows = append(rows, r)
	}
	return rows
}

// renderTable writes a batch as an aligned text table, every column padded to
// its widest cell.
func renderTable(w io.Writer, b *tabular.Batch, maxRows int) {
	names := b.ColumnNames()
	n := b.NumRows()
	truncated := false
	if maxRows > 0 && n > maxRows {
		n = maxRows
		truncated = true
	}

	widths := make([]int, len(names))
	for i, name := range names {
		widths[i] = len(name)
	}
	cells := make([][]string, n)
	for r := 0; r < n; r++ {
		cells[r] = make([]string, len(names))
		for c, name := range names {
			v, _ := b.Value(r, name)
			cells[r][c] = v.String()
			if len(cells[r][c]) > widths[c] {
				widths[c] = len(cells[r][c])
			}
		}
	}

	writeRow := func(parts []string) {
		padded := make([]string, len(parts))
		for i, p := range parts {
			padded[i] = pad(p, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}

	writeRow(names)
	sep := make([]string, len(names))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, r := range cells {
		writeRow(r)
	}
	if truncated {
		fmt.Fprintf(w, "... and %d more rows\n", b.NumRows()-n)
	}
}

// renderKeys lists the natural keys of the offending rows, one per line, so a
// failure names the exact source records even when no reject table exists.
func renderKeys(w io.Writer, keys []string, maxRows int) {
	n := len(keys)
	truncated := false
	if maxRows > 0 && n > maxRows {
		n = maxRows
		truncated = true
	}
	fmt.Fprintln(w, "Offending rows:")
	for _, k := range keys[:n] {
		fmt.Fprintf(w, "  %s\n", k)
	}
	if truncated {
		fmt.Fprintf(w, "... and %d more rows\n", len(keys)-n)
	}
}

func joinInt64(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
