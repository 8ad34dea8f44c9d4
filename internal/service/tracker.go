// Package service applies routed chat messages to the transaction store and
// builds the replies shown to the user.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/logger"
	"github.com/castlemilk/pfinance/assistant/internal/sheets"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

// ErrMirrorDisabled is returned by ExportAll when no spreadsheet mirror is
// configured.
var ErrMirrorDisabled = errors.New("spreadsheet mirror is disabled")

// OfflineMarker is appended to successful replies produced without a model.
const OfflineMarker = "(offline mode)"

// Mirror receives copies of every change. Sync calls must not block.
type Mirror interface {
	SyncTransaction(tx *store.Transaction)
	SyncBalance(b *store.Balance, note string)
	SyncStatistics(days int, summary *store.SpendingSummary)
	Export(ctx context.Context, snap sheets.Snapshot) error
}

// Router picks the handler for a message.
type Router interface {
	Route(ctx context.Context, message string) extraction.Decision
	Degraded() bool
}

// TrackerService is the single-user expense tracker.
type TrackerService struct {
	router Router
	store  store.Store
	mirror Mirror
	logger zerolog.Logger
	now    func() time.Time
}

// NewTrackerService wires the tracker. mirror may be nil.
func NewTrackerService(router Router, st store.Store, mirror Mirror, logger zerolog.Logger) *TrackerService {
	return &TrackerService{
		router: router,
		store:  st,
		mirror: mirror,
		logger: logger.With().Str("component", "tracker").Logger(),
		now:    time.Now,
	}
}

// Degraded reports whether messages are currently handled offline.
func (s *TrackerService) Degraded() bool {
	return s.router.Degraded()
}

// ProcessMessage routes one chat message and applies it. Rejected or
// unmatched messages produce an unsuccessful Reply; an error is returned
// only when the store fails.
func (s *TrackerService) ProcessMessage(ctx context.Context, message string) (*Reply, error) {
	requestID := uuid.NewString()
	log := s.logger.With().Str("request_id", requestID).Logger()
	ctx = logger.WithContext(ctx, log)

	d := s.router.Route(ctx, message)
	reply := &Reply{RequestID: requestID, Route: d.Route, Offline: d.Degraded}

	var err error
	switch {
	case !d.Accepted:
		reply.Message = d.Reason
		reply.Suggestion = d.Suggestion
	case d.Route == extraction.RouteAddExpense:
		err = s.addExpense(ctx, d.Expense, reply)
	case d.Route == extraction.RouteDeleteExpense:
		err = s.deleteExpense(ctx, d.Delete, reply)
	case d.Route == extraction.RouteUpdateBalance:
		err = s.updateBalance(ctx, d.Balance, reply)
	case d.Route == extraction.RouteViewStatistics:
		err = s.statistics(ctx, d.Statistics, reply)
	}
	if err != nil {
		log.Error().Err(err).Str("route", string(d.Route)).Msg("message failed")
		return nil, err
	}

	if reply.Success && reply.Offline {
		reply.Message += " " + OfflineMarker
	}
	log.Info().
		Str("route", string(d.Route)).
		Bool("success", reply.Success).
		Bool("offline", reply.Offline).
		Msg("message processed")
	return reply, nil
}

func (s *TrackerService) addExpense(ctx context.Context, exp *extraction.ExpenseFields, reply *Reply) error {
	tx := &store.Transaction{
		Description: exp.Description,
		Amount:      exp.Amount,
		MealTime:    exp.MealTime,
		FlowType:    exp.FlowType,
		AccountKind: exp.AccountKind,
		CreatedAt:   s.now(),
	}
	if err := s.store.AddTransaction(ctx, tx); err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}

	reply.Success = true
	reply.Transaction = tx
	reply.Balance, reply.BalanceUpdated = s.applyToBalance(ctx, tx, 1)
	reply.Quick = s.quickStatsAfter(ctx, tx)

	if s.mirror != nil {
		s.mirror.SyncTransaction(tx)
	}

	action := "Đã ghi nhận chi tiêu"
	if tx.IsIncome() {
		action = "Đã ghi nhận thu nhập"
	}
	reply.Message = fmt.Sprintf("%s: %s - %s (%s)", action, tx.Description, FormatVND(tx.Amount), accountLabel(tx.AccountKind))
	return nil
}

func (s *TrackerService) deleteExpense(ctx context.Context, criteria *extraction.DeleteCriteria, reply *Reply) error {
	var (
		deleted *store.Transaction
		err     error
	)
	if criteria.DeleteMostRecent {
		deleted, err = s.store.DeleteMostRecent(ctx)
		if errors.Is(err, store.ErrNotFound) {
			reply.Message = "Không có giao dịch nào để xóa"
			return nil
		}
	} else {
		deleted, err = s.deleteMatching(ctx, criteria)
		if errors.Is(err, store.ErrNotFound) {
			reply.Message = fmt.Sprintf("Không tìm thấy giao dịch phù hợp với %q", criteria.Description)
			reply.Suggestion = "Kiểm tra lại tên món hoặc xem danh sách giao dịch gần đây. Hoặc chỉ gõ 'xóa' để xóa giao dịch gần nhất."
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	reply.Success = true
	reply.Transaction = deleted
	reply.Balance, reply.BalanceUpdated = s.applyToBalance(ctx, deleted, -1)
	reply.Quick = s.quickStatsAfter(ctx, deleted)

	prefix := "Đã xóa giao dịch"
	if criteria.DeleteMostRecent {
		prefix = "Đã xóa giao dịch gần nhất"
	}
	reply.Message = fmt.Sprintf("%s: %s - %s", prefix, deleted.Description, FormatVND(deleted.Amount))
	reply.Note = "Dùng lệnh export để đồng bộ việc xóa lên bảng tính"
	return nil
}

// deleteMatching removes the most recent transaction matching criteria.
func (s *TrackerService) deleteMatching(ctx context.Context, criteria *extraction.DeleteCriteria) (*store.Transaction, error) {
	found, err := s.store.FindTransactions(ctx, store.TransactionQuery{
		Description: criteria.Description,
		Amount:      criteria.Amount,
		MealTime:    criteria.MealTime,
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	if err := s.store.DeleteTransaction(ctx, found[0].ID); err != nil {
		return nil, err
	}
	return found[0], nil
}

// applyToBalance moves the transaction's account by its signed amount.
// direction is 1 when recording and -1 when reversing. A failure is logged
// and reported as not updated.
func (s *TrackerService) applyToBalance(ctx context.Context, tx *store.Transaction, direction float64) (*store.Balance, bool) {
	delta := -tx.Amount
	if tx.IsIncome() {
		delta = tx.Amount
	}
	delta *= direction

	var cash, bank float64
	if tx.AccountKind == extraction.AccountBank {
		bank = delta
	} else {
		cash = delta
	}
	b, err := s.store.AdjustBalance(ctx, cash, bank)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("transaction_id", tx.ID).Msg("balance not updated")
		return nil, false
	}
	return b, true
}

func (s *TrackerService) updateBalance(ctx context.Context, upd *extraction.BalanceUpdate, reply *Reply) error {
	var (
		b       *store.Balance
		err     error
		changes []string
		action  string
	)
	switch upd.Operation {
	case extraction.BalanceSet:
		b, err = s.store.SetBalance(ctx, upd.CashBalance, upd.BankBalance)
		if upd.CashBalance != nil {
			changes = append(changes, "Tiền mặt = "+FormatVND(*upd.CashBalance))
		}
		if upd.BankBalance != nil {
			changes = append(changes, "Tài khoản = "+FormatVND(*upd.BankBalance))
		}
		action = "Đã thiết lập số dư"
	default:
		b, err = s.store.AdjustBalance(ctx, deref(upd.CashDelta), deref(upd.BankDelta))
		if upd.CashDelta != nil {
			changes = append(changes, "Tiền mặt "+formatSigned(*upd.CashDelta))
		}
		if upd.BankDelta != nil {
			changes = append(changes, "Tài khoản "+formatSigned(*upd.BankDelta))
		}
		action = "Đã cập nhật số dư"
	}
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if s.mirror != nil {
		s.mirror.SyncBalance(b, "")
	}

	reply.Success = true
	reply.Balance = b
	reply.BalanceUpdated = true
	reply.Message = action + ": " + joinChanges(changes)
	return nil
}

func (s *TrackerService) statistics(ctx context.Context, req *extraction.StatisticsRequest, reply *Reply) error {
	days := max(req.DayCount, 1)
	report, err := s.buildReport(ctx, days, statisticsRecent)
	if err != nil {
		return err
	}
	report.Period = periodLabel(req.Period, days)

	if s.mirror != nil {
		s.mirror.SyncStatistics(days, report.Summary)
	}

	reply.Success = true
	reply.Report = report
	reply.Message = "Thống kê chi tiêu " + report.Period
	return nil
}

// quickStatsAfter reports quick stats once tx has already been written. The
// change stands either way, so a failure is logged and yields nil.
func (s *TrackerService) quickStatsAfter(ctx context.Context, tx *store.Transaction) *QuickStats {
	quick, err := s.quickStats(ctx, tx.Amount)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("transaction_id", tx.ID).Msg("quick stats unavailable")
		return nil
	}
	return quick
}

// quickStats summarizes today and the last seven days.
func (s *TrackerService) quickStats(ctx context.Context, amount float64) (*QuickStats, error) {
	today, err := s.store.SpendingSummary(ctx, s.since(1))
	if err != nil {
		return nil, fmt.Errorf("today summary: %w", err)
	}
	week, err := s.store.SpendingSummary(ctx, s.since(7))
	if err != nil {
		return nil, fmt.Errorf("week summary: %w", err)
	}
	return &QuickStats{
		TodayTotal: today.TotalSpent,
		TodayCount: today.Count,
		WeekTotal:  week.TotalSpent,
		WeekCount:  week.Count,
		Amount:     amount,
	}, nil
}

// since returns local midnight of the first of the last days days,
// today included.
func (s *TrackerService) since(days int) time.Time {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, -(max(days, 1) - 1))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
