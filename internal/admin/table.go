package admin

import (
	"sort"
	"strings"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Column is one header cell. Key is empty for columns that cannot be sorted.
// Checkbox marks the column holding the row selection boxes.
type Column struct {
	Key       string
	Label     string
	Indicator SortOrder
	Checkbox  bool
}

// Row is one body row. Filtering only flips Hidden.
type Row struct {
	ID       string
	Cells    []string
	Hidden   bool
	Selected bool
}

// Text is the full row text that searches match against.
func (r *Row) Text() string {
	return strings.Join(r.Cells, " ")
}

// Table is a server-rendered admin table. SortOrder mirrors the table's
// sort-order attribute and is empty until the first sort.
type Table struct {
	Kind      string
	Columns   []Column
	Rows      []*Row
	SortOrder SortOrder
	Search    string
}

// ColumnIndex finds the header whose sort key is key.
func (t *Table) ColumnIndex(key string) (int, bool) {
	for i, c := range t.Columns {
		if c.Key != "" && c.Key == key {
			return i, true
		}
	}
	return 0, false
}

// SortByColumn flips the table's order (ascending on a fresh table) and
// reorders rows by plain string comparison of the column's text.
func (t *Table) SortByColumn(key string) (SortOrder, error) {
	idx, ok := t.ColumnIndex(key)
	if !ok {
		return "", ErrUnknownColumn
	}

	order := Ascending
	if t.SortOrder == Ascending {
		order = Descending
	}

	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := cell(t.Rows[i], idx), cell(t.Rows[j], idx)
		if order == Ascending {
			return a < b
		}
		return b < a
	})

	t.SortOrder = order
	for i := range t.Columns {
		t.Columns[i].Indicator = ""
	}
	t.Columns[idx].Indicator = order
	return order, nil
}

func cell(r *Row, idx int) string {
	if idx < len(r.Cells) {
		return r.Cells[idx]
	}
	return ""
}

// FilterRows shows rows whose text contains term, ignoring case, and hides
// the rest. An empty term shows every row.
func (t *Table) FilterRows(term string) {
	t.Search = term
	needle := strings.ToLower(term)
	for _, r := range t.Rows {
		r.Hidden = !strings.Contains(strings.ToLower(r.Text()), needle)
	}
}

// CheckboxColumn finds the selection column.
func (t *Table) CheckboxColumn() (int, bool) {
	for i, c := range t.Columns {
		if c.Checkbox {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) VisibleRows() []*Row {
	out := make([]*Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !r.Hidden {
			out = append(out, r)
		}
	}
	return out
}

// SelectedIDs returns the ids of checked rows in display order.
func (t *Table) SelectedIDs() []string {
	var ids []string
	for _, r := range t.Rows {
		if r.Selected && r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// SetSelected checks or unchecks the rows with the given ids and reports how
// many matched.
func (t *Table) SetSelected(selected bool, ids ...string) int {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for _, r := range t.Rows {
		if _, ok := want[r.ID]; ok {
			r.Selected = selected
			n++
		}
	}
	return n
}

func (t *Table) Clone() *Table {
	out := &Table{
		Kind:      t.Kind,
		Columns:   append([]Column(nil), t.Columns...),
		Rows:      make([]*Row, len(t.Rows)),
		SortOrder: t.SortOrder,
		Search:    t.Search,
	}
	for i, r := range t.Rows {
		cp := *r
		cp.Cells = append([]string(nil), r.Cells...)
		out.Rows[i] = &cp
	}
	return out
}
