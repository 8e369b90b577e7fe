package admin

import (
	"strings"
	"time"
)

// ExportCSV serializes the header and every body row, hidden or not. Each
// cell is trimmed and quoted, with embedded quotes doubled.
func ExportCSV(t *Table) []byte {
	var b strings.Builder
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		writeQuoted(&b, c.Label)
	}
	for _, r := range t.Rows {
		b.WriteByte('\n')
		for i, c := range r.Cells {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(&b, c)
		}
	}
	return []byte(b.String())
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(strings.TrimSpace(s), `"`, `""`))
	b.WriteByte('"')
}

// ExportFilename names an export after the table kind and the UTC date.
func ExportFilename(kind string, now time.Time) string {
	return kind + "-export-" + now.UTC().Format("2006-01-02") + ".csv"
}
