package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// tabIndex is the one-time-per-run snapshot of a tab's contents: its
// header row, every data row, and a key -> sheet row number map built
// from one or more key columns. Sheet rows are 1-indexed and include the
// header, so the first data row is sheet row 2.
type tabIndex struct {
	header   []string
	rows     [][]string
	keyToRow map[string]int
	sheetID  int64
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// buildIndex constructs a tabIndex from raw sheet values, keying each
// data row by joining the values of keyCols (column names from header)
// with "|".
func buildIndex(values [][]interface{}, keyCols []string, sheetID int64) tabIndex {
	idx := tabIndex{keyToRow: map[string]int{}, sheetID: sheetID}
	if len(values) == 0 {
		return idx
	}

	idx.header = toStrings(values[0])
	colIdx := map[string]int{}
	for i, h := range idx.header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	keyIdxs := make([]int, len(keyCols))
	for i, k := range keyCols {
		keyIdxs[i] = colIdx[k]
	}

	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		idx.rows = append(idx.rows, row)

		parts := make([]string, len(keyIdxs))
		for j, ci := range keyIdxs {
			parts[j] = cellAt(row, ci)
		}
		key := strings.Join(parts, "|")
		idx.keyToRow[key] = i + 1 // +1 for 1-indexing, i already skips header
	}
	return idx
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

// rowFromFields builds a sheet row in header order from a field map,
// leaving missing fields blank.
func rowFromFields(header []string, fields map[string]string) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = fields[strings.ToLower(strings.TrimSpace(h))]
	}
	return row
}

func valueRangeRows(vr *sheets.ValueRange) [][]interface{} {
	if vr == nil {
		return nil
	}
	return vr.Values
}
