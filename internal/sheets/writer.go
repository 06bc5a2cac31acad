// Package sheets projects the ingest engine's normalized data onto a
// Google Sheet: one tab per entity/join table, upserted by business key,
// plus a hard-reset presidents tab and a per-run ingest log.
package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/sheets/v4"

	"github.com/sequoia-archive/voyage-ingest/internal/rpc"
)

// Writer projects parsed records onto tabs of one spreadsheet.
type Writer struct {
	svc           *sheets.Service
	spreadsheetID string
	harness       *rpc.Harness
	logger        zerolog.Logger

	sheetIDs map[string]int64
	indexes  map[string]tabIndex
}

// New builds a Writer bound to one spreadsheet.
func New(svc *sheets.Service, spreadsheetID string, harness *rpc.Harness, logger zerolog.Logger) *Writer {
	return &Writer{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		harness:       harness,
		logger:        logger.With().Str("component", "sheets_writer").Logger(),
		sheetIDs:      map[string]int64{},
		indexes:       map[string]tabIndex{},
	}
}

// EnsureTab creates the tab if it doesn't exist and reconciles its header
// row against the expected header, appending any missing columns at the
// end so existing data columns never shift.
func (w *Writer) EnsureTab(ctx context.Context, title string, header []string) error {
	if _, ok := w.sheetIDs[title]; ok {
		return nil
	}

	res, err := w.do(ctx, "sheets.get:"+title, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	spreadsheet := res.(*sheets.Spreadsheet)

	var sheetID int64 = -1
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties.Title == title {
			sheetID = sh.Properties.SheetId
			break
		}
	}

	if sheetID == -1 {
		addRes, err := w.do(ctx, "sheets.addSheet:"+title, func(ctx context.Context) (interface{}, error) {
			return w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: []*sheets.Request{{
					AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
				}},
			}).Context(ctx).Do()
		})
		if err != nil {
			return fmt.Errorf("create tab %s: %w", title, err)
		}
		batchRes := addRes.(*sheets.BatchUpdateSpreadsheetResponse)
		sheetID = batchRes.Replies[0].AddSheet.Properties.SheetId

		if _, err := w.writeHeader(ctx, title, header); err != nil {
			return err
		}
	} else {
		existing, err := w.readHeader(ctx, title)
		if err != nil {
			return err
		}
		merged := mergeHeaders(existing, header)
		if !equalHeaders(existing, merged) {
			if _, err := w.writeHeader(ctx, title, merged); err != nil {
				return err
			}
		}
	}

	w.sheetIDs[title] = sheetID
	return nil
}

func mergeHeaders(existing, wanted []string) []string {
	if len(existing) == 0 {
		return wanted
	}
	seen := map[string]bool{}
	for _, h := range existing {
		seen[strings.ToLower(strings.TrimSpace(h))] = true
	}
	merged := append([]string{}, existing...)
	for _, h := range wanted {
		if !seen[strings.ToLower(strings.TrimSpace(h))] {
			merged = append(merged, h)
		}
	}
	return merged
}

func equalHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (w *Writer) readHeader(ctx context.Context, title string) ([]string, error) {
	res, err := w.do(ctx, "sheets.values.get:"+title+"!1:1", func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Get(w.spreadsheetID, title+"!1:1").Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	vr := res.(*sheets.ValueRange)
	if len(vr.Values) == 0 {
		return nil, nil
	}
	return toStrings(vr.Values[0]), nil
}

func (w *Writer) writeHeader(ctx context.Context, title string, header []string) (*sheets.UpdateValuesResponse, error) {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	res, err := w.do(ctx, "sheets.values.update.header:"+title, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Update(w.spreadsheetID, title+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
			ValueInputOption("RAW").Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("write header for %s: %w", title, err)
	}
	return res.(*sheets.UpdateValuesResponse), nil
}

// loadIndex reads the full tab once per run and builds its key -> row
// index, caching the result for subsequent upserts/deletes in the same
// Writer.
func (w *Writer) loadIndex(ctx context.Context, title string, keyCols []string) (tabIndex, error) {
	if idx, ok := w.indexes[title]; ok {
		return idx, nil
	}

	res, err := w.do(ctx, "sheets.values.get:"+title+"!A:ZZ", func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Get(w.spreadsheetID, title+"!A:ZZ").Context(ctx).Do()
	})
	if err != nil {
		return tabIndex{}, fmt.Errorf("load index for %s: %w", title, err)
	}
	vr := res.(*sheets.ValueRange)
	idx := buildIndex(valueRangeRows(vr), keyCols, w.sheetIDs[title])
	w.indexes[title] = idx
	return idx, nil
}

// UpsertRow writes fields to tab, keyed by keyCols (column names present
// in fields), updating the matching row in place or appending a new one.
// header must already be reconciled via EnsureTab.
func (w *Writer) UpsertRow(ctx context.Context, title string, header, keyCols []string, fields map[string]string) error {
	idx, err := w.loadIndex(ctx, title, keyCols)
	if err != nil {
		return err
	}

	parts := make([]string, len(keyCols))
	for i, k := range keyCols {
		parts[i] = fields[k]
	}
	key := strings.Join(parts, "|")
	row := rowFromFields(header, fields)

	if sheetRow, ok := idx.keyToRow[key]; ok {
		rangeA1 := fmt.Sprintf("%s!A%d", title, sheetRow)
		_, err := w.do(ctx, "sheets.values.update:"+title, func(ctx context.Context) (interface{}, error) {
			return w.svc.Spreadsheets.Values.Update(w.spreadsheetID, rangeA1, &sheets.ValueRange{Values: [][]interface{}{row}}).
				ValueInputOption("RAW").Context(ctx).Do()
		})
		if err != nil {
			return fmt.Errorf("update row in %s: %w", title, err)
		}
		return nil
	}

	_, err = w.do(ctx, "sheets.values.append:"+title, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Append(w.spreadsheetID, title+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("append row to %s: %w", title, err)
	}

	newRow := len(idx.rows) + 2
	idx.rows = append(idx.rows, toStrings(row))
	idx.keyToRow[key] = newRow
	w.indexes[title] = idx
	return nil
}

// DeleteRowsByKeys removes every row in tab whose keyCols-joined key is
// in keys, deleting from the bottom up in a single batch so earlier
// deletions don't shift the row numbers of later ones.
func (w *Writer) DeleteRowsByKeys(ctx context.Context, title string, keyCols []string, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	idx, err := w.loadIndex(ctx, title, keyCols)
	if err != nil {
		return 0, err
	}

	wanted := map[string]bool{}
	for _, k := range keys {
		wanted[k] = true
	}

	var sheetRows []int
	for key, row := range idx.keyToRow {
		if wanted[key] {
			sheetRows = append(sheetRows, row)
		}
	}
	if len(sheetRows) == 0 {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sheetRows)))

	requests := make([]*sheets.Request, 0, len(sheetRows))
	for _, row := range sheetRows {
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    idx.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		})
	}

	_, err = w.do(ctx, "sheets.batchUpdate.delete:"+title, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	})
	if err != nil {
		return 0, fmt.Errorf("delete rows from %s: %w", title, err)
	}

	delete(w.indexes, title) // row numbers below each deletion have shifted
	return len(sheetRows), nil
}

// ResetPresidentsTab hard-resets the presidents tab to exactly the given
// rows: clears all data rows, then writes the incoming set. The
// presidents tab mirrors the document's president registry verbatim, so
// unlike voyage data it is never merged.
func (w *Writer) ResetPresidentsTab(ctx context.Context, rows []map[string]string) error {
	if err := w.EnsureTab(ctx, TabPresidents, PresidentsHeaders); err != nil {
		return err
	}

	if _, err := w.do(ctx, "sheets.values.clear:"+TabPresidents, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, TabPresidents+"!A2:ZZ", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	}); err != nil {
		return fmt.Errorf("clear presidents tab: %w", err)
	}
	delete(w.indexes, TabPresidents)

	if len(rows) == 0 {
		return nil
	}
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = rowFromFields(PresidentsHeaders, r)
	}
	_, err := w.do(ctx, "sheets.values.update:"+TabPresidents, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Update(w.spreadsheetID, TabPresidents+"!A2", &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("write presidents tab: %w", err)
	}
	return nil
}

// AppendLogRow appends one row to the ingest_log tab, creating it if
// necessary. fields missing from IngestLogHeaders are left blank.
func (w *Writer) AppendLogRow(ctx context.Context, fields map[string]string) error {
	if err := w.EnsureTab(ctx, TabIngestLog, IngestLogHeaders); err != nil {
		return err
	}
	row := rowFromFields(IngestLogHeaders, fields)
	_, err := w.do(ctx, "sheets.values.append:"+TabIngestLog, func(ctx context.Context) (interface{}, error) {
		return w.svc.Spreadsheets.Values.Append(w.spreadsheetID, TabIngestLog+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("append ingest log row: %w", err)
	}
	return nil
}

// AllKeys returns the composite key (keyCols values joined with "|", the
// same order buildIndex uses) of every data row currently in tab. Since
// each key embeds its key-column values in order, callers recover them
// with strings.Split(key, "|") instead of looking up columns again.
func (w *Writer) AllKeys(ctx context.Context, tab string, keyCols []string) ([]string, error) {
	idx, err := w.loadIndex(ctx, tab, keyCols)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(idx.keyToRow))
	for k := range idx.keyToRow {
		keys = append(keys, k)
	}
	return keys, nil
}

func (w *Writer) do(ctx context.Context, label string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return w.harness.Do(ctx, label, fn)
}

// BoolCell renders a Go bool the way the ingest log expects it.
func BoolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// IntCell renders an int for a sheet cell.
func IntCell(n int) string {
	return strconv.Itoa(n)
}

// TimestampCell renders t as the ingest log's timestamp_iso column.
func TimestampCell(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
