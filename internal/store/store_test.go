package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

func float64Ptr(v float64) *float64 { return &v }

// forEachStore runs fn against a fresh MemoryStore and SQLiteStore.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

// seed inserts transactions one minute apart, oldest first, ending at base.
func seed(t *testing.T, s Store, base time.Time, txs ...Transaction) []*Transaction {
	t.Helper()
	out := make([]*Transaction, 0, len(txs))
	for i := range txs {
		tx := txs[i]
		tx.CreatedAt = base.Add(-time.Duration(len(txs)-1-i) * time.Minute)
		require.NoError(t, s.AddTransaction(context.Background(), &tx))
		out = append(out, &tx)
	}
	return out
}

func TestStore_AddAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tx := &Transaction{Description: "phở", Amount: 35000, MealTime: extraction.MealMidday}
		require.NoError(t, s.AddTransaction(ctx, tx))
		assert.NotZero(t, tx.ID)
		assert.Equal(t, extraction.FlowExpense, tx.FlowType)
		assert.Equal(t, extraction.AccountCash, tx.AccountKind)
		assert.False(t, tx.CreatedAt.IsZero())

		got, err := s.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, "phở", got.Description)
		assert.Equal(t, 35000.0, got.Amount)
		assert.Equal(t, extraction.MealMidday, got.MealTime)
		assert.True(t, tx.CreatedAt.Equal(got.CreatedAt))

		_, err = s.GetTransaction(ctx, tx.ID+100)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_RecentAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now()
		seeded := seed(t, s, now,
			Transaction{Description: "cà phê", Amount: 25000},
			Transaction{Description: "phở", Amount: 35000},
			Transaction{Description: "bún chả", Amount: 45000},
		)

		recent, err := s.RecentTransactions(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "bún chả", recent[0].Description)
		assert.Equal(t, "phở", recent[1].Description)

		all, err := s.RecentTransactions(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, s.DeleteTransaction(ctx, seeded[1].ID))
		assert.True(t, errors.Is(s.DeleteTransaction(ctx, seeded[1].ID), ErrNotFound))

		deleted, err := s.DeleteMostRecent(ctx)
		require.NoError(t, err)
		assert.Equal(t, "bún chả", deleted.Description)

		deleted, err = s.DeleteMostRecent(ctx)
		require.NoError(t, err)
		assert.Equal(t, "cà phê", deleted.Description)

		_, err = s.DeleteMostRecent(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_FindTransactions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, time.Now(),
			Transaction{Description: "Phở bò", Amount: 40000, MealTime: extraction.MealMorning},
			Transaction{Description: "cà phê", Amount: 25000},
			Transaction{Description: "phở gà", Amount: 35000, MealTime: extraction.MealMidday},
		)

		tests := []struct {
			name  string
			query TransactionQuery
			want  []string
		}{
			{name: "substring newest first", query: TransactionQuery{Description: "phở"}, want: []string{"phở gà", "Phở bò"}},
			{name: "case insensitive with diacritics", query: TransactionQuery{Description: "PHỞ BÒ"}, want: []string{"Phở bò"}},
			{name: "amount", query: TransactionQuery{Description: "phở", Amount: float64Ptr(40000)}, want: []string{"Phở bò"}},
			{name: "meal time", query: TransactionQuery{MealTime: extraction.MealMidday}, want: []string{"phở gà"}},
			{name: "limit", query: TransactionQuery{Description: "phở", Limit: 1}, want: []string{"phở gà"}},
			{name: "no match", query: TransactionQuery{Description: "bún"}, want: nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.FindTransactions(ctx, tt.query)
				require.NoError(t, err)
				var names []string
				for _, tx := range got {
					names = append(names, tx.Description)
				}
				assert.Equal(t, tt.want, names)
			})
		}
	})
}

func TestStore_SpendingSummary(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now()
		seed(t, s, now.Add(-10*24*time.Hour), Transaction{Description: "cũ", Amount: 999000})
		seed(t, s, now,
			Transaction{Description: "cà phê", Amount: 25000},
			Transaction{Description: "lương", Amount: 5000000, FlowType: extraction.FlowIncome, AccountKind: extraction.AccountBank},
			Transaction{Description: "phở", Amount: 35000},
		)

		sum, err := s.SpendingSummary(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, sum.Count)
		assert.Equal(t, 60000.0, sum.TotalSpent)
		assert.Equal(t, 30000.0, sum.AvgSpent)
		assert.Equal(t, 25000.0, sum.MinSpent)
		assert.Equal(t, 35000.0, sum.MaxSpent)
		assert.Equal(t, 1, sum.IncomeCount)
		assert.Equal(t, 5000000.0, sum.TotalIncome)

		empty, err := s.SpendingSummary(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, empty.Count)
		assert.Zero(t, empty.AvgSpent)
	})
}

func TestStore_DailyTotals(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		today := time.Now()
		noon := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, time.Local)
		yesterday := noon.AddDate(0, 0, -1)

		seed(t, s, yesterday, Transaction{Description: "bún", Amount: 30000})
		seed(t, s, noon,
			Transaction{Description: "phở", Amount: 35000},
			Transaction{Description: "thưởng", Amount: 200000, FlowType: extraction.FlowIncome},
		)

		totals, err := s.DailyTotals(ctx, noon.AddDate(0, 0, -2))
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, yesterday.Day(), totals[0].Day.Day())
		assert.Equal(t, 30000.0, totals[0].Spent)
		assert.Equal(t, 35000.0, totals[1].Spent)
		assert.Equal(t, 200000.0, totals[1].Income)
		assert.Equal(t, 2, totals[1].Count)
	})
}

func TestStore_Balance(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		b, err := s.GetBalance(ctx)
		require.NoError(t, err)
		assert.Zero(t, b.Cash)
		assert.Zero(t, b.Bank)

		b, err = s.SetBalance(ctx, float64Ptr(500000), nil)
		require.NoError(t, err)
		assert.Equal(t, 500000.0, b.Cash)
		assert.Zero(t, b.Bank)

		b, err = s.SetBalance(ctx, nil, float64Ptr(2000000))
		require.NoError(t, err)
		assert.Equal(t, 500000.0, b.Cash)
		assert.Equal(t, 2000000.0, b.Bank)

		b, err = s.AdjustBalance(ctx, -35000, 0)
		require.NoError(t, err)
		assert.Equal(t, 465000.0, b.Cash)
		assert.Equal(t, 2465000.0, b.Total())
		assert.False(t, b.UpdatedAt.IsZero())
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := OpenSQLite(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.AddTransaction(ctx, &Transaction{Description: "phở", Amount: 35000}))
	_, err = s.SetBalance(ctx, float64Ptr(100000), float64Ptr(200000))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	recent, err := s.RecentTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	b, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300000.0, b.Total())
}
