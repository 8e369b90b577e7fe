package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExportCSV_QuotesEveryCell(t *testing.T) {
	table := &Table{
		Columns: []Column{{Key: "id", Label: "ID"}, {Key: "content", Label: " Content "}},
		Rows: []*Row{
			{Cells: []string{"1", `He said "hi"`}},
			{Cells: []string{"2", " a, b "}, Hidden: true},
		},
	}

	got := string(ExportCSV(table))
	require.Equal(t, "\"ID\",\"Content\"\n\"1\",\"He said \"\"hi\"\"\"\n\"2\",\"a, b\"", got)
}

func TestExportCSV_EmptyTable(t *testing.T) {
	require.Equal(t, `"Name"`, string(ExportCSV(&Table{Columns: []Column{{Label: "Name"}}})))
}

func TestExportFilename(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2024, 3, 2, 5, 0, 0, 0, loc)
	require.Equal(t, "users-export-2024-03-01.csv", ExportFilename("users", now))
}
