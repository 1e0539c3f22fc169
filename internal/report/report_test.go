package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

func ids(values ...string) GoodIDSet {
	s := make(GoodIDSet)
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func TestDigitsOnly(t *testing.T) {
	tests := map[string]string{
		"ID-101":   "101",
		"ABC123":   "123",
		"1a2b3":    "123",
		"none":     "",
		"":         "",
		" 42 ":     "42",
		"٣":        "", // non-ASCII digits are not IDs
		"+1 (555)": "1555",
	}
	for in, want := range tests {
		assert.Equal(t, want, DigitsOnly(in), in)
	}
}

func TestBuildGoodIDSet(t *testing.T) {
	report := types.Table{
		{{Value: "ID-101", Highlight: true}, {Value: "102"}},
	}
	assert.Equal(t, ids("101"), BuildGoodIDSet(report))
}

func TestBuildGoodIDSet_IgnoresBlankAndDigitless(t *testing.T) {
	report := types.Table{
		{{Value: "   ", Highlight: true}, {Value: "n/a", Highlight: true}},
		{{Value: "ABC123", Highlight: true}, {Value: "7", Highlight: true}},
		{{Value: "123", Highlight: true}},
	}
	assert.Equal(t, ids("123", "7"), BuildGoodIDSet(report))
	assert.Empty(t, BuildGoodIDSet(nil))
}

func TestClassify_Example(t *testing.T) {
	table := types.NewTable([][]string{
		{"ID", "Alt"},
		{"101", "999"},
	})

	res := Classify(table, ids("101"))

	assert.Equal(t, 1, res.GoodCells)
	assert.Equal(t, 1, res.BadCells)
	assert.Equal(t, 1, res.GoodRows)
	assert.Equal(t, 0, res.BadRows)

	row := res.Table[1]
	require.Len(t, row, 3)
	assert.Equal(t, types.MarkGood, row[0].Mark)
	assert.Equal(t, types.MarkBad, row[1].Mark)
	assert.Equal(t, StatusGood, row[2].Value)
	assert.Equal(t, []string{"ID", "Alt", StatusHeader}, res.Table[0].Values())
}

func TestClassify_HeaderCellsAreCounted(t *testing.T) {
	// Header cells with digits take part in the cell counts. This mirrors
	// long-standing behavior; a header like "Batch 7" becomes a bad cell.
	table := types.NewTable([][]string{
		{"Batch 7", "Name"},
		{"5", "x"},
	})

	res := Classify(table, ids("5"))
	assert.Equal(t, 1, res.GoodCells)
	assert.Equal(t, 1, res.BadCells, "the header's bad cell is included")
	assert.Equal(t, types.MarkBad, res.Table[0][0].Mark)
	assert.Equal(t, StatusHeader, res.Table[0][2].Value)
	assert.Equal(t, 1, res.GoodRows)
}

func TestClassify_RowLabelVersusCellCounts(t *testing.T) {
	table := types.NewTable([][]string{
		{"A", "B", "C"},
		{"1", "2", "3"},
		{"4", "x", ""},
		{"no digits", "", ""},
	})

	res := Classify(table, ids("3"))
	assert.Equal(t, 1, res.GoodCells)
	assert.Equal(t, 3, res.BadCells)
	assert.Equal(t, 1, res.GoodRows)
	assert.Equal(t, 2, res.BadRows, "a row without any digits is Bad")
	assert.Equal(t, StatusGood, res.Table[1][3].Value)
	assert.Equal(t, StatusBad, res.Table[2][3].Value)
	assert.Equal(t, StatusBad, res.Table[3][3].Value)
	assert.Equal(t, types.MarkNone, res.Table[3][0].Mark)
}

func TestClassify_PadsShortRows(t *testing.T) {
	table := types.NewTable([][]string{
		{"A", "B", "C"},
		{"1"},
	})

	res := Classify(table, ids())
	assert.Equal(t, []string{"1", "", "", StatusBad}, res.Table[1].Values())
}

func TestClassify_Reclassification(t *testing.T) {
	table := types.NewTable([][]string{
		{"ID"},
		{"1"},
		{"2"},
	})

	first := Classify(table, ids("1"))
	assert.Equal(t, []string{"ID", StatusHeader}, first.Table[0].Values())

	// New rows appended by a later merge carry no status.
	withNew := append(first.Table, types.NewRow("3"))

	second := Classify(withNew, ids("2", "3"))
	assert.Equal(t, [][]string{
		{"ID", StatusHeader},
		{"1", StatusBad},
		{"2", StatusGood},
		{"3", StatusGood},
	}, second.Table.Strings())
	assert.Equal(t, 2, second.GoodCells)
	assert.Equal(t, 1, second.BadCells)
	assert.Equal(t, types.MarkBad, second.Table[1][0].Mark, "stale marks are replaced")
}

func TestClassify_Empty(t *testing.T) {
	res := Classify(nil, ids("1"))
	assert.Empty(t, res.Table)
	assert.Zero(t, res.GoodCells+res.BadCells)
}

func TestStripStatus(t *testing.T) {
	t.Run("no status column", func(t *testing.T) {
		table := types.NewTable([][]string{{"A"}, {"Good"}})
		assert.Equal(t, [][]string{{"A"}, {"Good"}}, StripStatus(table).Strings())
	})

	t.Run("status column", func(t *testing.T) {
		table := types.Table{
			types.NewRow("A", StatusHeader),
			{{Value: "1"}, {Value: StatusGood, Mark: types.MarkGood}},
			{{Value: "2"}, {Value: StatusBad, Mark: types.MarkBad}},
			types.NewRow("3"),
		}
		assert.Equal(t, [][]string{{"A"}, {"1"}, {"2"}, {"3"}}, StripStatus(table).Strings())
	})

	t.Run("unmarked labels are source data", func(t *testing.T) {
		table := types.NewTable([][]string{
			{"A", "Status"},
			{"1", "Good"},
			{"2", "Bad"},
		})
		assert.Equal(t, [][]string{{"A", "Status"}, {"1", "Good"}, {"2", "Bad"}}, StripStatus(table).Strings())
	})

	t.Run("mismatched mark", func(t *testing.T) {
		table := types.Table{
			types.NewRow("A", StatusHeader),
			{{Value: "1"}, {Value: StatusGood, Mark: types.MarkBad}},
		}
		assert.Len(t, StripStatus(table)[0], 2)
	})

	t.Run("header only", func(t *testing.T) {
		table := types.NewTable([][]string{{"A", "Status"}})
		assert.Equal(t, [][]string{{"A", "Status"}}, StripStatus(table).Strings())
	})
}

func TestClassify_KeepsSourceStatusColumn(t *testing.T) {
	table := types.NewTable([][]string{
		{"ID", "Status"},
		{"101", "Good"},
		{"102", "Pending"},
	})

	res := Classify(table, ids("101"))
	assert.Equal(t, [][]string{
		{"ID", "Status", StatusHeader},
		{"101", "Good", StatusGood},
		{"102", "Pending", StatusBad},
	}, res.Table.Strings())
	assert.Equal(t, 1, res.GoodCells)
	assert.Equal(t, 1, res.BadCells)

	// A second run replaces only the column the first run added.
	again := Classify(res.Table, ids("102"))
	assert.Equal(t, [][]string{
		{"ID", "Status", StatusHeader},
		{"101", "Good", StatusBad},
		{"102", "Pending", StatusGood},
	}, again.Table.Strings())
}
