package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	description  TEXT    NOT NULL,
	amount       REAL    NOT NULL,
	meal_time    TEXT    NOT NULL DEFAULT '',
	flow_type    TEXT    NOT NULL DEFAULT 'expense',
	account_kind TEXT    NOT NULL DEFAULT 'cash',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at);
CREATE TABLE IF NOT EXISTS balances (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	cash       REAL    NOT NULL DEFAULT 0,
	bank       REAL    NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO balances (id, cash, bank, updated_at) VALUES (1, 0, 0, 0);
`

const txColumns = `id, description, amount, meal_time, flow_type, account_kind, created_at`

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string, logger zerolog.Logger) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Debug().Str("path", path).Msg("sqlite store ready")
	return &SQLiteStore{db: db, now: time.Now, logger: logger}, nil
}

// Transaction operations

func (s *SQLiteStore) AddTransaction(ctx context.Context, tx *Transaction) error {
	applyDefaults(tx, s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (description, amount, meal_time, flow_type, account_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Description, tx.Amount, string(tx.MealTime), string(tx.FlowType), string(tx.AccountKind), tx.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID = id
	return nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) RecentTransactions(ctx context.Context, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, since time.Time) ([]*Transaction, error) {
	return s.query(ctx, `SELECT `+txColumns+` FROM transactions WHERE created_at >= ? ORDER BY created_at DESC, id DESC`, since.UnixNano())
}

// FindTransactions filters amount and meal time in SQL; the description
// match runs in Go because SQLite's LOWER only folds ASCII.
func (s *SQLiteStore) FindTransactions(ctx context.Context, q TransactionQuery) ([]*Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1 = 1`
	var args []any
	if q.Amount != nil {
		query += ` AND ABS(amount - ?) < 0.5`
		args = append(args, *q.Amount)
	}
	if q.MealTime != extraction.MealNone {
		query += ` AND meal_time = ?`
		args = append(args, string(q.MealTime))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	candidates, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*Transaction
	for _, tx := range candidates {
		if matches(tx, q) {
			out = append(out, tx)
		}
	}
	return limitTo(out, q.Limit), nil
}

func (s *SQLiteStore) DeleteMostRecent(ctx context.Context) (*Transaction, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	row := sqlTx.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY created_at DESC, id DESC LIMIT 1`)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("most recent transaction: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select most recent: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, tx.ID); err != nil {
		return nil, fmt.Errorf("delete transaction %d: %w", tx.ID, err)
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tx, nil
}

// Reporting

func (s *SQLiteStore) SpendingSummary(ctx context.Context, since time.Time) (*SpendingSummary, error) {
	out := &SpendingSummary{Since: since}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(amount), 0),
		       COALESCE(AVG(amount), 0),
		       COALESCE(MIN(amount), 0),
		       COALESCE(MAX(amount), 0)
		FROM transactions
		WHERE flow_type = ? AND created_at >= ?`,
		string(extraction.FlowExpense), since.UnixNano(),
	).Scan(&out.Count, &out.TotalSpent, &out.AvgSpent, &out.MinSpent, &out.MaxSpent)
	if err != nil {
		return nil, fmt.Errorf("spending summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE flow_type = ? AND created_at >= ?`,
		string(extraction.FlowIncome), since.UnixNano(),
	).Scan(&out.IncomeCount, &out.TotalIncome)
	if err != nil {
		return nil, fmt.Errorf("income summary: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) DailyTotals(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	txs, err := s.ListTransactions(ctx, since)
	if err != nil {
		return nil, err
	}
	return dailyTotals(txs), nil
}

// Balance operations

func (s *SQLiteStore) GetBalance(ctx context.Context) (*Balance, error) {
	return getBalance(ctx, s.db)
}

func (s *SQLiteStore) SetBalance(ctx context.Context, cash, bank *float64) (*Balance, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE balances SET cash = COALESCE(?, cash), bank = COALESCE(?, bank), updated_at = ? WHERE id = 1`,
		nullFloat(cash), nullFloat(bank), s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("set balance: %w", err)
	}
	return s.GetBalance(ctx)
}

func (s *SQLiteStore) AdjustBalance(ctx context.Context, cashDelta, bankDelta float64) (*Balance, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE balances SET cash = cash + ?, bank = bank + ?, updated_at = ? WHERE id = 1`,
		cashDelta, bankDelta, s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("adjust balance: %w", err)
	}
	return s.GetBalance(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		tx                  Transaction
		meal, flow, account string
		createdAt           int64
	)
	if err := row.Scan(&tx.ID, &tx.Description, &tx.Amount, &meal, &flow, &account, &createdAt); err != nil {
		return nil, err
	}
	tx.MealTime = extraction.MealTime(meal)
	tx.FlowType = extraction.FlowType(flow)
	tx.AccountKind = extraction.AccountKind(account)
	tx.CreatedAt = time.Unix(0, createdAt)
	return &tx, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func getBalance(ctx context.Context, db *sql.DB) (*Balance, error) {
	var (
		b         Balance
		updatedAt int64
	)
	err := db.QueryRowContext(ctx, `SELECT cash, bank, updated_at FROM balances WHERE id = 1`).
		Scan(&b.Cash, &b.Bank, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if updatedAt > 0 {
		b.UpdatedAt = time.Unix(0, updatedAt)
	}
	return &b, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
