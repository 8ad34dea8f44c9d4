package store

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// A Caser is stateful, so each call gets its own.
func foldText(s string) string {
	return cases.Lower(language.Vietnamese).String(norm.NFC.String(strings.TrimSpace(s)))
}

// matches applies q to a single transaction.
func matches(tx *Transaction, q TransactionQuery) bool {
	if q.Description != "" && !strings.Contains(foldText(tx.Description), foldText(q.Description)) {
		return false
	}
	if q.Amount != nil && math.Abs(tx.Amount-*q.Amount) >= 0.5 {
		return false
	}
	if q.MealTime != extraction.MealNone && tx.MealTime != q.MealTime {
		return false
	}
	return true
}

// newestFirst orders by creation time, then id, both descending.
func newestFirst(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
}

// dailyTotals buckets txs by local calendar day, oldest first.
func dailyTotals(txs []*Transaction) []DailyTotal {
	byDay := map[time.Time]*DailyTotal{}
	for _, tx := range txs {
		local := tx.CreatedAt.Local()
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
		dt, ok := byDay[day]
		if !ok {
			dt = &DailyTotal{Day: day}
			byDay[day] = dt
		}
		dt.Count++
		if tx.IsIncome() {
			dt.Income += tx.Amount
		} else {
			dt.Spent += tx.Amount
		}
	}

	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// summarize computes a SpendingSummary over txs already filtered by since.
func summarize(txs []*Transaction, since time.Time) *SpendingSummary {
	s := &SpendingSummary{Since: since}
	for _, tx := range txs {
		if tx.IsIncome() {
			s.IncomeCount++
			s.TotalIncome += tx.Amount
			continue
		}
		if s.Count == 0 || tx.Amount < s.MinSpent {
			s.MinSpent = tx.Amount
		}
		if tx.Amount > s.MaxSpent {
			s.MaxSpent = tx.Amount
		}
		s.Count++
		s.TotalSpent += tx.Amount
	}
	if s.Count > 0 {
		s.AvgSpent = s.TotalSpent / float64(s.Count)
	}
	return s
}

func applyDefaults(tx *Transaction, now time.Time) {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.FlowType == "" {
		tx.FlowType = extraction.FlowExpense
	}
	if tx.AccountKind == "" {
		tx.AccountKind = extraction.AccountCash
	}
}
