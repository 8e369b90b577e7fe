package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pelusa-v/mailgram/internal/admin"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	selectStyle = cellStyle.Foreground(lipgloss.Color("63"))
)

// HeaderLabel appends the column's sort indicator to its label.
func HeaderLabel(c admin.Column) string {
	switch c.Indicator {
	case admin.Ascending:
		return c.Label + " ▲"
	case admin.Descending:
		return c.Label + " ▼"
	}
	return c.Label
}

// Table renders the visible rows of t. Selected rows are marked with "*"
// in the checkbox column, or in a leading column when t has none.
func Table(t *admin.Table) string {
	markCol, hasCheckbox := t.CheckboxColumn()
	headers := make([]string, 0, len(t.Columns)+1)
	if !hasCheckbox {
		headers = append(headers, "")
	}
	for _, c := range t.Columns {
		headers = append(headers, HeaderLabel(c))
	}

	visible := t.VisibleRows()
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(visible) && visible[row].Selected {
				return selectStyle
			}
			return cellStyle
		})
	for _, r := range visible {
		mark := " "
		if r.Selected {
			mark = "*"
		}
		cells := make([]string, 0, len(r.Cells)+1)
		if !hasCheckbox {
			cells = append(cells, mark)
		}
		for i, c := range r.Cells {
			if hasCheckbox && i == markCol {
				cells = append(cells, mark)
				continue
			}
			cells = append(cells, Sanitize(c))
		}
		tbl.Row(cells...)
	}
	return tbl.Render()
}
