package admin

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseTables reads every <table> of a rendered admin page. A table's kind
// comes from data-export-table, falling back to its id.
func ParseTables(r io.Reader) ([]*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "admin: parse page")
	}
	var tables []*Table
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Table {
			return true
		}
		tables = append(tables, parseTable(n))
		return false
	})
	return tables, nil
}

func parseTable(n *html.Node) *Table {
	t := &Table{
		Kind:      attr(n, "data-export-table"),
		SortOrder: SortOrder(attr(n, "data-sort-order")),
	}
	if t.Kind == "" {
		t.Kind = attr(n, "id")
	}

	walk(n, func(c *html.Node) bool {
		if c != n && c.DataAtom == atom.Table {
			return false
		}
		if c.DataAtom != atom.Tr {
			return true
		}
		if inSection(c, atom.Thead) || (t.Columns == nil && hasChild(c, atom.Th) && !hasChild(c, atom.Td)) {
			if t.Columns == nil {
				t.Columns = parseHeader(c)
			}
			return false
		}
		if row := parseRow(c); row != nil {
			t.Rows = append(t.Rows, row)
		}
		return false
	})
	return t
}

func parseHeader(tr *html.Node) []Column {
	cols := []Column{}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom != atom.Th {
			continue
		}
		col := Column{Key: attr(c, "data-sort"), Label: strings.TrimSpace(text(c))}
		walk(c, func(in *html.Node) bool {
			if in.DataAtom == atom.Input && attr(in, "type") == "checkbox" {
				col.Checkbox = true
				return false
			}
			return true
		})
		for _, class := range strings.Fields(attr(c, "class")) {
			switch class {
			case "sort-asc":
				col.Indicator = Ascending
			case "sort-desc":
				col.Indicator = Descending
			}
		}
		cols = append(cols, col)
	}
	return cols
}

func parseRow(tr *html.Node) *Row {
	row := &Row{ID: attr(tr, "data-id")}
	cells := 0
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom != atom.Td {
			continue
		}
		cells++
		row.Cells = append(row.Cells, strings.TrimSpace(text(c)))
		walk(c, func(in *html.Node) bool {
			if in.DataAtom == atom.Input && attr(in, "type") == "checkbox" && hasAttr(in, "data-item-id") {
				row.ID = attr(in, "data-item-id")
				row.Selected = hasAttr(in, "checked")
				return false
			}
			return true
		})
	}
	if cells == 0 {
		return nil
	}
	if style := strings.ReplaceAll(strings.ToLower(attr(tr, "style")), " ", ""); strings.Contains(style, "display:none") {
		row.Hidden = true
	}
	return row
}

// walk visits n and its descendants depth first; fn returns false to skip
// a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasChild(n *html.Node, a atom.Atom) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == a {
			return true
		}
	}
	return false
}

func inSection(n *html.Node, section atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == section {
			return true
		}
		if p.DataAtom == atom.Table {
			return false
		}
	}
	return false
}
