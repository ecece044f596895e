package cookielab

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the three report tables. They coexist in one workbook and
// evolve their headers independently.
const (
	SheetCookieComparison = "Cookie Field Comparison"
	SheetCleanData        = "Clean_Data"
	SheetDiagnostics      = "Diagnostics"
)

// Report sink defaults. The retry policy is a fixed exponential backoff with a
// small ceiling, sized for one operator who may have the workbook open in a
// viewer; it is not meant for high write concurrency.
const (
	defaultSaveRetries   = 5
	defaultRetryBackoff  = 200 * time.Millisecond
	excelizeDefaultSheet = "Sheet1"
)

// Report appends rows to the named tables of one xlsx workbook. It holds each
// sheet's header and a name-to-column index in memory, so appends never rescan
// the workbook. Headers only ever grow: new columns are appended at the end,
// never reordered or removed. Open once per job batch and Close when done.
//
// Report is not safe for concurrent use; the audit pipeline is single-threaded
// and the only contention is external (another process holding the file), which
// the save retry absorbs.
type Report struct {
	path    string
	file    *excelize.File
	sheets  map[string]*sheetState
	retries int
	backoff time.Duration
}

type sheetState struct {
	header []string
	index  map[string]int // column name -> 0-based position
	rows   int            // data rows present, header excluded
}

// ReportOption adjusts Report behaviour.
type ReportOption func(*Report)

// WithSaveRetries sets how many times a failed save is attempted before the
// append is surfaced as an error.
func WithSaveRetries(n int) ReportOption {
	return func(r *Report) {
		if n > 0 {
			r.retries = n
		}
	}
}

// WithRetryBackoff sets the initial backoff between save attempts. Each
// subsequent attempt doubles it.
func WithRetryBackoff(d time.Duration) ReportOption {
	return func(r *Report) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// OpenReport opens or creates the workbook at path and loads the headers of any
// existing sheets.
func OpenReport(path string, opts ...ReportOption) (*Report, error) {
	r := &Report{
		path:    path,
		sheets:  make(map[string]*sheetState),
		retries: defaultSaveRetries,
		backoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cookielab: create report dir: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("cookielab: open report %s: %w", path, err)
		}
		r.file = f
		for _, name := range f.GetSheetList() {
			st, err := loadSheetState(f, name)
			if err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("cookielab: read sheet %q: %w", name, err)
			}
			r.sheets[name] = st
		}
		return r, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cookielab: stat report %s: %w", path, err)
	}

	r.file = excelize.NewFile()
	return r, nil
}

func loadSheetState(f *excelize.File, name string) (*sheetState, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	st := &sheetState{index: make(map[string]int)}
	if len(rows) > 0 {
		st.header = append(st.header, rows[0]...)
		for i, col := range st.header {
			if _, ok := st.index[col]; !ok {
				st.index[col] = i
			}
		}
		st.rows = len(rows) - 1
	}
	return st, nil
}

// Close releases the underlying workbook without saving.
func (r *Report) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Path returns the workbook location.
func (r *Report) Path() string { return r.path }

// AppendRow grows the sheet's header with any columns the row introduces, then
// appends the row aligned to the current header (missing columns render empty)
// and durably persists the workbook.
func (r *Report) AppendRow(sheet string, row *Row) error {
	return r.AppendRows(sheet, []*Row{row})
}

// AppendRows appends the rows in order with a single persist at the end. The
// header union is computed before any row is written, so all rows land against
// the same final header. An empty slice is a no-op.
func (r *Report) AppendRows(sheet string, rows []*Row) error {
	if len(rows) == 0 {
		return nil
	}
	st, err := r.ensureSheet(sheet)
	if err != nil {
		return fmt.Errorf("cookielab: append to %q: %w", sheet, err)
	}

	for _, row := range rows {
		for _, key := range row.Keys() {
			if _, ok := st.index[key]; ok {
				continue
			}
			col := len(st.header)
			st.header = append(st.header, key)
			st.index[key] = col
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return fmt.Errorf("cookielab: append to %q: %w", sheet, err)
			}
			if err := r.file.SetCellValue(sheet, cell, key); err != nil {
				return fmt.Errorf("cookielab: append to %q: %w", sheet, err)
			}
		}
	}

	for _, row := range rows {
		line := st.rows + 2 // 1-based, header on line 1
		for col, name := range st.header {
			val, ok := row.Get(name)
			if !ok {
				val = ""
			}
			cell, err := excelize.CoordinatesToCellName(col+1, line)
			if err != nil {
				return fmt.Errorf("cookielab: append to %q: %w", sheet, err)
			}
			if err := r.file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("cookielab: append to %q: %w", sheet, err)
			}
		}
		st.rows++
	}

	if err := r.save(); err != nil {
		return fmt.Errorf("cookielab: persist %q rows to %s: %w", sheet, r.path, err)
	}
	return nil
}

func (r *Report) ensureSheet(name string) (*sheetState, error) {
	if st, ok := r.sheets[name]; ok {
		return st, nil
	}
	if _, err := r.file.NewSheet(name); err != nil {
		return nil, err
	}
	// Drop the placeholder sheet from a freshly created workbook.
	if name != excelizeDefaultSheet {
		if _, tracked := r.sheets[excelizeDefaultSheet]; !tracked {
			if idx, err := r.file.GetSheetIndex(excelizeDefaultSheet); err == nil && idx >= 0 {
				_ = r.file.DeleteSheet(excelizeDefaultSheet)
			}
		}
	}
	st := &sheetState{index: make(map[string]int)}
	r.sheets[name] = st
	return st, nil
}

// tempPath is the staging file for atomic saves. Excelize refuses to write
// under an extension it does not recognize, so the temp name keeps the
// workbook suffix: report.xlsx -> report.tmp.xlsx.
func (r *Report) tempPath() string {
	ext := filepath.Ext(r.path)
	if ext == "" {
		ext = ".xlsx"
	}
	return strings.TrimSuffix(r.path, ext) + ".tmp" + ext
}

// save writes the workbook to a temp file and atomically replaces the target.
// Transient failures (typically the operator holding the file open in a viewer)
// are retried with doubling backoff up to the retry ceiling; the last error is
// returned once the ceiling is exceeded.
func (r *Report) save() error {
	tmp := r.tempPath()

	var lastErr error
	backoff := r.backoff
	for attempt := 0; attempt < r.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		if err := r.file.SaveAs(tmp); err != nil {
			lastErr = err
			continue
		}
		if err := os.Rename(tmp, r.path); err != nil {
			lastErr = err
			_ = os.Remove(tmp)
			continue
		}
		return nil
	}
	return fmt.Errorf("save retries exhausted: %w", lastErr)
}
