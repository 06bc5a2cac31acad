package sheets

import (
	"testing"

	"google.golang.org/api/sheets/v4"
)

func TestBuildIndexKeysAndRowNumbers(t *testing.T) {
	values := [][]interface{}{
		{"voyage_slug", "person_slug", "role_title"},
		{"v1", "p1", "Secretary"},
		{"v1", "p2", "Aide"},
		{"v2", "p1", "Guest"},
	}
	idx := buildIndex(values, []string{"voyage_slug", "person_slug"}, 42)

	if idx.sheetID != 42 {
		t.Errorf("sheetID = %d, want 42", idx.sheetID)
	}
	if len(idx.rows) != 3 {
		t.Fatalf("expected 3 data rows, got %d", len(idx.rows))
	}

	cases := map[string]int{
		"v1|p1": 2,
		"v1|p2": 3,
		"v2|p1": 4,
	}
	for key, wantRow := range cases {
		if got, ok := idx.keyToRow[key]; !ok || got != wantRow {
			t.Errorf("keyToRow[%q] = %d (ok=%v), want %d", key, got, ok, wantRow)
		}
	}
}

func TestBuildIndexEmptyValues(t *testing.T) {
	idx := buildIndex(nil, []string{"a"}, 1)
	if len(idx.rows) != 0 || len(idx.keyToRow) != 0 {
		t.Error("expected an empty index for nil input")
	}
}

func TestCellAtOutOfRange(t *testing.T) {
	row := []string{"a", "b"}
	if got := cellAt(row, 0); got != "a" {
		t.Errorf("cellAt(0) = %q, want a", got)
	}
	if got := cellAt(row, 5); got != "" {
		t.Errorf("cellAt(5) = %q, want empty string", got)
	}
	if got := cellAt(row, -1); got != "" {
		t.Errorf("cellAt(-1) = %q, want empty string", got)
	}
}

func TestRowFromFieldsPreservesHeaderOrderAndBlanksMissing(t *testing.T) {
	header := []string{"Voyage Slug", "Title", "Notes"}
	fields := map[string]string{"voyage slug": "v1", "title": "Trip"}
	row := rowFromFields(header, fields)
	if row[0] != "v1" || row[1] != "Trip" || row[2] != "" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestToStringsFormatsEachCell(t *testing.T) {
	got := toStrings([]interface{}{"a", 1, true})
	want := []string{"a", "1", "true"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toStrings()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValueRangeRowsNilSafe(t *testing.T) {
	if got := valueRangeRows(nil); got != nil {
		t.Errorf("expected nil for nil ValueRange, got %v", got)
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{{"a"}}}
	if got := valueRangeRows(vr); len(got) != 1 {
		t.Errorf("expected 1 row, got %d", len(got))
	}
}
