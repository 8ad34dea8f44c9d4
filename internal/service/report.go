package service

import (
	"context"
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/sheets"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

const (
	statisticsRecent = 3
	reportRecent     = 10
)

// exportPeriods are the statistics windows written by ExportAll.
var exportPeriods = []int{1, 7, 30}

// Report is a spending summary over the last Days days.
type Report struct {
	Days    int
	Period  string
	Summary *store.SpendingSummary
	Recent  []*store.Transaction
	// Daily has one entry per calendar day, oldest first, including days
	// without transactions.
	Daily   []store.DailyTotal
	Balance *store.Balance
}

// BalanceSummary returns the current cash and bank balances.
func (s *TrackerService) BalanceSummary(ctx context.Context) (*store.Balance, error) {
	b, err := s.store.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// SpendingReport summarizes the last days days with the ten most recent
// transactions and the balance.
func (s *TrackerService) SpendingReport(ctx context.Context, days int) (*Report, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	report, err := s.buildReport(ctx, days, reportRecent)
	if err != nil {
		return nil, err
	}
	report.Period = periodLabel(extraction.PeriodCustom, days)
	if report.Balance, err = s.BalanceSummary(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

// RecentTransactions returns up to limit transactions, newest first.
func (s *TrackerService) RecentTransactions(ctx context.Context, limit int) ([]*store.Transaction, error) {
	txs, err := s.store.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return txs, nil
}

// ExportAll rewrites the mirror with every transaction, the balance and
// summaries for the last 1, 7 and 30 days.
func (s *TrackerService) ExportAll(ctx context.Context) error {
	if s.mirror == nil {
		return ErrMirrorDisabled
	}

	txs, err := s.store.RecentTransactions(ctx, 0)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	b, err := s.BalanceSummary(ctx)
	if err != nil {
		return err
	}
	snap := sheets.Snapshot{Transactions: txs, Balance: b}
	for _, days := range exportPeriods {
		summary, err := s.store.SpendingSummary(ctx, s.since(days))
		if err != nil {
			return fmt.Errorf("summary for %d days: %w", days, err)
		}
		snap.Periods = append(snap.Periods, sheets.PeriodSummary{Days: days, Summary: summary})
	}

	if err := s.mirror.Export(ctx, snap); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	s.logger.Info().Int("transactions", len(txs)).Msg("mirror exported")
	return nil
}

func (s *TrackerService) buildReport(ctx context.Context, days, recent int) (*Report, error) {
	since := s.since(days)
	summary, err := s.store.SpendingSummary(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("spending summary: %w", err)
	}
	txs, err := s.store.RecentTransactions(ctx, recent)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	daily, err := s.store.DailyTotals(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	return &Report{
		Days:    days,
		Summary: summary,
		Recent:  txs,
		Daily:   fillDays(daily, since, days),
	}, nil
}

// fillDays returns exactly days entries starting at since, inserting zero
// totals for days with no transactions.
func fillDays(totals []store.DailyTotal, since time.Time, days int) []store.DailyTotal {
	byDay := make(map[string]store.DailyTotal, len(totals))
	for _, t := range totals {
		byDay[t.Day.Format(time.DateOnly)] = t
	}
	out := make([]store.DailyTotal, 0, days)
	for i := range days {
		day := since.AddDate(0, 0, i)
		t, ok := byDay[day.Format(time.DateOnly)]
		if !ok {
			t = store.DailyTotal{Day: day}
		}
		out = append(out, t)
	}
	return out
}

func periodLabel(p extraction.Period, days int) string {
	switch p {
	case extraction.PeriodToday:
		return "hôm nay"
	case extraction.PeriodThisWeek:
		return "tuần này"
	case extraction.PeriodThisMonth:
		return "tháng này"
	}
	return fmt.Sprintf("%d ngày qua", days)
}
