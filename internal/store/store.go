// Package store persists transactions and the cash/bank balances.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is returned when no transaction matches.
var ErrNotFound = errors.New("not found")

// Transaction is one recorded expense or income.
type Transaction struct {
	ID          int64
	Description string
	Amount      float64
	MealTime    extraction.MealTime
	FlowType    extraction.FlowType
	AccountKind extraction.AccountKind
	CreatedAt   time.Time
}

// IsIncome reports whether the transaction added money.
func (t *Transaction) IsIncome() bool {
	return t.FlowType == extraction.FlowIncome
}

// Balance is the current cash and bank balance.
type Balance struct {
	Cash      float64
	Bank      float64
	UpdatedAt time.Time
}

// Total returns cash plus bank.
func (b *Balance) Total() float64 {
	return b.Cash + b.Bank
}

// TransactionQuery selects transactions for deletion. Empty fields match
// anything; Description matches case-insensitively as a substring.
type TransactionQuery struct {
	Description string
	Amount      *float64
	MealTime    extraction.MealTime
	Limit       int
}

// SpendingSummary aggregates expenses since a point in time. Income is
// totalled separately and never counted as spending.
type SpendingSummary struct {
	Since       time.Time
	Count       int
	TotalSpent  float64
	AvgSpent    float64
	MinSpent    float64
	MaxSpent    float64
	IncomeCount int
	TotalIncome float64
}

// DailyTotal is the spending and income of one local calendar day.
type DailyTotal struct {
	Day    time.Time
	Count  int
	Spent  float64
	Income float64
}

// Store defines the interface for all database operations used by the service
type Store interface {
	// Transaction operations
	AddTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	RecentTransactions(ctx context.Context, limit int) ([]*Transaction, error)
	ListTransactions(ctx context.Context, since time.Time) ([]*Transaction, error)
	FindTransactions(ctx context.Context, q TransactionQuery) ([]*Transaction, error)
	DeleteMostRecent(ctx context.Context) (*Transaction, error)

	// Reporting
	SpendingSummary(ctx context.Context, since time.Time) (*SpendingSummary, error)
	DailyTotals(ctx context.Context, since time.Time) ([]DailyTotal, error)

	// Balance operations
	GetBalance(ctx context.Context) (*Balance, error)
	SetBalance(ctx context.Context, cash, bank *float64) (*Balance, error)
	AdjustBalance(ctx context.Context, cashDelta, bankDelta float64) (*Balance, error)

	Close() error
}
