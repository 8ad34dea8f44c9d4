// Package sheets mirrors transactions, balances and statistics snapshots to
// an XLSX workbook, optionally copied to Cloud Storage.
package sheets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/castlemilk/pfinance/assistant/internal/store"
)

// Sheet names.
const (
	SheetTransactions = "Transactions"
	SheetBalance      = "Balance"
	SheetStatistics   = "Statistics"

	defaultSheet = "Sheet1"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var headers = map[string][]any{
	SheetTransactions: {"ID", "Date", "Time", "Description", "Amount", "Meal Time", "Flow", "Account", "Created At", "Sync Date"},
	SheetBalance:      {"Date", "Cash Balance", "Account Balance", "Total", "Notes"},
	SheetStatistics:   {"Date", "Period", "Transaction Count", "Total Spent", "Avg Spent", "Min Spent", "Max Spent", "Total Income", "Generated At"},
}

var sheetOrder = []string{SheetTransactions, SheetBalance, SheetStatistics}

// PeriodSummary is one statistics row.
type PeriodSummary struct {
	Days    int
	Summary *store.SpendingSummary
}

// Snapshot is everything written by a full export.
type Snapshot struct {
	Transactions []*store.Transaction
	Balance      *store.Balance
	Periods      []PeriodSummary
}

// Workbook appends rows to an XLSX file on disk. Each call opens, edits and
// saves the file, so the workbook is always complete between calls.
type Workbook struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewWorkbook returns a workbook stored at path. The file is created on
// first write.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path, now: time.Now}
}

// Path returns the file location.
func (w *Workbook) Path() string {
	return w.path
}

// AppendTransactions adds rows for transactions not already present,
// matched by ID. It returns the number of rows written.
func (w *Workbook) AppendTransactions(txs []*store.Transaction) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := f.GetRows(SheetTransactions)
	if err != nil {
		return 0, syncErr("read transactions", false, err)
	}
	existing := make(map[string]bool, len(rows))
	for i, row := range rows {
		if i > 0 && len(row) > 0 {
			existing[row[0]] = true
		}
	}

	next := len(rows) + 1
	syncedAt := w.now().Format(dateTimeLayout)
	written := 0
	for _, tx := range txs {
		id := strconv.FormatInt(tx.ID, 10)
		if existing[id] {
			continue
		}
		if err := setRow(f, SheetTransactions, next, transactionRow(tx, syncedAt)); err != nil {
			return 0, err
		}
		existing[id] = true
		next++
		written++
	}
	if written == 0 {
		return 0, nil
	}
	return written, w.save(f)
}

// AppendBalance records the balance as a new history row.
func (w *Workbook) AppendBalance(b *store.Balance, note string) error {
	return w.appendRow(SheetBalance, w.balanceRow(b, note))
}

// AppendStatistics records a summary over the last days days.
func (w *Workbook) AppendStatistics(days int, s *store.SpendingSummary) error {
	return w.appendRow(SheetStatistics, w.statisticsRow(days, s))
}

// Rewrite replaces the workbook with snap.
func (w *Workbook) Rewrite(snap Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := newFile()
	if err != nil {
		return err
	}
	defer f.Close()

	syncedAt := w.now().Format(dateTimeLayout)
	row := 2
	// Oldest first, like incremental appends.
	for i := len(snap.Transactions) - 1; i >= 0; i-- {
		if err := setRow(f, SheetTransactions, row, transactionRow(snap.Transactions[i], syncedAt)); err != nil {
			return err
		}
		row++
	}
	if snap.Balance != nil {
		if err := setRow(f, SheetBalance, 2, w.balanceRow(snap.Balance, "Full export")); err != nil {
			return err
		}
	}
	for i, p := range snap.Periods {
		if err := setRow(f, SheetStatistics, i+2, w.statisticsRow(p.Days, p.Summary)); err != nil {
			return err
		}
	}
	return w.save(f)
}

func (w *Workbook) appendRow(sheet string, values []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return syncErr("read "+sheet, false, err)
	}
	if err := setRow(f, sheet, len(rows)+1, values); err != nil {
		return err
	}
	return w.save(f)
}

// open loads the workbook, creating it and any missing sheets.
func (w *Workbook) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		return newFile()
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, syncErr("open", false, fmt.Errorf("%s: %w", w.path, err))
	}
	if err := ensureSheets(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// newFile returns an empty workbook holding only our sheets.
func newFile() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := ensureSheets(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, syncErr("delete sheet "+defaultSheet, false, err)
	}
	if idx, err := f.GetSheetIndex(SheetTransactions); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func (w *Workbook) save(f *excelize.File) error {
	return syncErr("save", true, f.SaveAs(w.path))
}

func (w *Workbook) balanceRow(b *store.Balance, note string) []any {
	now := w.now()
	if note == "" {
		note = "Auto sync at " + now.Format(timeLayout)
	}
	return []any{now.Format(dateLayout), b.Cash, b.Bank, b.Total(), note}
}

func (w *Workbook) statisticsRow(days int, s *store.SpendingSummary) []any {
	now := w.now()
	return []any{
		now.Format(dateLayout),
		fmt.Sprintf("%d days", days),
		s.Count, s.TotalSpent, s.AvgSpent, s.MinSpent, s.MaxSpent, s.TotalIncome,
		now.Format(dateTimeLayout),
	}
}

func transactionRow(tx *store.Transaction, syncedAt string) []any {
	local := tx.CreatedAt.Local()
	return []any{
		tx.ID,
		local.Format(dateLayout),
		local.Format(timeLayout),
		tx.Description,
		tx.Amount,
		string(tx.MealTime),
		string(tx.FlowType),
		string(tx.AccountKind),
		local.Format(dateTimeLayout),
		syncedAt,
	}
}

func ensureSheets(f *excelize.File) error {
	var style int
	for _, name := range sheetOrder {
		idx, err := f.GetSheetIndex(name)
		if err != nil {
			return syncErr("sheet index", false, err)
		}
		if idx != -1 {
			continue
		}
		if _, err := f.NewSheet(name); err != nil {
			return syncErr("new sheet "+name, false, err)
		}
		if err := setRow(f, name, 1, headers[name]); err != nil {
			return err
		}
		if style == 0 {
			if style, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
				return syncErr("header style", false, err)
			}
		}
		if err := f.SetRowStyle(name, 1, 1, style); err != nil {
			return syncErr("header style", false, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return syncErr("cell name", false, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return syncErr("write "+sheet, false, err)
	}
	return nil
}
