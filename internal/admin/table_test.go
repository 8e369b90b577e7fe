package admin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func namesTable(names ...string) *Table {
	t := &Table{Kind: "users", Columns: []Column{{Key: "id", Label: "ID"}, {Key: "name", Label: "Name"}}}
	for i, n := range names {
		t.Rows = append(t.Rows, &Row{ID: string(rune('1' + i)), Cells: []string{string(rune('1' + i)), n}})
	}
	return t
}

func rowNames(t *Table) []string {
	var out []string
	for _, r := range t.Rows {
		out = append(out, r.Cells[1])
	}
	return out
}

func TestSortByColumn_TogglesOrder(t *testing.T) {
	table := namesTable("Bob", "Ann")

	order, err := table.SortByColumn("name")
	require.NoError(t, err)
	require.Equal(t, Ascending, order)
	require.Equal(t, []string{"Ann", "Bob"}, rowNames(table))
	require.Equal(t, Ascending, table.Columns[1].Indicator)
	require.Empty(t, table.Columns[0].Indicator)

	order, err = table.SortByColumn("name")
	require.NoError(t, err)
	require.Equal(t, Descending, order)
	require.Equal(t, []string{"Bob", "Ann"}, rowNames(table))
	require.Equal(t, Descending, table.Columns[1].Indicator)
}

func TestSortByColumn_StartsFromRenderedOrder(t *testing.T) {
	table := namesTable("Ann", "Bob")
	table.SortOrder = Ascending

	order, err := table.SortByColumn("name")
	require.NoError(t, err)
	require.Equal(t, Descending, order)
	require.Equal(t, []string{"Bob", "Ann"}, rowNames(table))
}

func TestSortByColumn_IsStableAndCaseSensitive(t *testing.T) {
	table := namesTable("bob", "Bob", "ann", "Bob")
	table.Rows[1].ID, table.Rows[3].ID = "first", "second"

	_, err := table.SortByColumn("name")
	require.NoError(t, err)
	require.Equal(t, []string{"Bob", "Bob", "ann", "bob"}, rowNames(table))
	require.Equal(t, "first", table.Rows[0].ID)
	require.Equal(t, "second", table.Rows[1].ID)
}

func TestSortByColumn_UnknownColumn(t *testing.T) {
	table := namesTable("Ann")
	_, err := table.SortByColumn("email")
	require.ErrorIs(t, err, ErrUnknownColumn)
	require.Empty(t, table.SortOrder)
}

func TestFilterRows(t *testing.T) {
	table := namesTable("Ann Lee", "Bob Stone", "Annie")

	table.FilterRows("ANN")
	require.Len(t, table.VisibleRows(), 2)
	require.True(t, table.Rows[1].Hidden)
	require.Equal(t, "ANN", table.Search)

	table.FilterRows("")
	require.Len(t, table.VisibleRows(), 3)

	table.FilterRows("zzz")
	require.Empty(t, table.VisibleRows())
	require.Len(t, table.Rows, 3)
}

func TestFilterRows_MatchesAcrossCells(t *testing.T) {
	table := namesTable("Ann")
	table.FilterRows("1 ann")
	require.Len(t, table.VisibleRows(), 1)
}

func TestSelection(t *testing.T) {
	table := namesTable("Ann", "Bob", "Cid")
	require.Nil(t, table.SelectedIDs())

	require.Equal(t, 2, table.SetSelected(true, "1", "3", "missing"))
	require.Equal(t, []string{"1", "3"}, table.SelectedIDs())

	require.Equal(t, 1, table.SetSelected(false, "1"))
	require.Equal(t, []string{"3"}, table.SelectedIDs())
}

func TestClone_IsDeep(t *testing.T) {
	table := namesTable("Ann")
	cp := table.Clone()
	cp.Rows[0].Cells[1] = "Changed"
	cp.Rows[0].Hidden = true
	cp.Columns[0].Label = "X"

	require.Equal(t, "Ann", table.Rows[0].Cells[1])
	require.False(t, table.Rows[0].Hidden)
	require.Equal(t, "ID", table.Columns[0].Label)
}
