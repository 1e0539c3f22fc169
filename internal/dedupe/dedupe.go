// =============================================================================
// Submission Merger - Row Deduplicator
// =============================================================================
//
// Removes exact-duplicate rows from a merged table.
//
// RULES:
//   - Row 0 (the header) is never removed and takes no part in matching.
//   - Rows are compared by cell values only; highlight and marks are ignored.
//   - Among rows with the same values, the first one in row order survives.
//
// The table is scanned from the last row up to row 1, removing a row while
// an earlier copy of it is still present, which leaves the first occurrence.
//
// =============================================================================

package dedupe

import (
	"encoding/json"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// Key returns the composite key of a row: the JSON encoding of its value
// list. Unlike joining values with a separator, two different rows can
// never produce the same key.
func Key(row types.Row) string {
	b, _ := json.Marshal(row.Values())
	return string(b)
}

// Dedupe removes duplicate data rows.
//
// PARAMETERS:
//   - t: The merged table. Its backing array is reused.
//
// RETURNS:
//   - The deduplicated table, in original row order.
//   - The number of rows removed.
func Dedupe(t types.Table) (types.Table, int) {
	if len(t) < 3 {
		return t, 0
	}

	keys := make([]string, len(t))
	remaining := make(map[string]int, len(t))
	for i := 1; i < len(t); i++ {
		keys[i] = Key(t[i])
		remaining[keys[i]]++
	}

	removed := make([]bool, len(t))
	count := 0
	for i := len(t) - 1; i >= 1; i-- {
		if remaining[keys[i]] > 1 {
			removed[i] = true
			remaining[keys[i]]--
			count++
		}
	}

	if count == 0 {
		return t, 0
	}

	out := t[:1]
	for i := 1; i < len(t); i++ {
		if !removed[i] {
			out = append(out, t[i])
		}
	}
	return out, count
}
