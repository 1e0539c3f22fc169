package source

import (
	"strings"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// isWhite reports whether a fill color is white. Colors arrive as RGB or
// ARGB hex, with or without a leading '#'.
func isWhite(color string) bool {
	c := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	return c == "FFFFFF"
}

// isHighlightFill decides whether a filled cell counts as highlighted: a fill
// is present and none of its colors is white. Theme colors come through
// without an RGB value and still count.
func isHighlightFill(colors ...string) bool {
	for _, c := range colors {
		if isWhite(c) {
			return false
		}
	}
	return true
}

// trimTable drops trailing empty cells from every row and trailing empty rows
// from the table, so both workbook readers return the same shape.
func trimTable(t types.Table) types.Table {
	for i, row := range t {
		end := len(row)
		for end > 0 && row[end-1].Value == "" && !row[end-1].Highlight {
			end--
		}
		t[i] = row[:end]
	}

	end := len(t)
	for end > 0 && len(t[end-1]) == 0 {
		end--
	}
	return t[:end]
}
