package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/sheets"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

// stubRouter returns a fixed decision for every message.
type stubRouter struct {
	decision extraction.Decision
}

func (r *stubRouter) Route(ctx context.Context, message string) extraction.Decision {
	return r.decision
}

func (r *stubRouter) Degraded() bool { return r.decision.Degraded }

type recordingMirror struct {
	mu           sync.Mutex
	transactions []*store.Transaction
	balances     []*store.Balance
	statistics   []int
	snapshots    []sheets.Snapshot
	exportErr    error
}

func (m *recordingMirror) SyncTransaction(tx *store.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
}

func (m *recordingMirror) SyncBalance(b *store.Balance, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances = append(m.balances, b)
}

func (m *recordingMirror) SyncStatistics(days int, summary *store.SpendingSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statistics = append(m.statistics, days)
}

func (m *recordingMirror) Export(ctx context.Context, snap sheets.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	return m.exportErr
}

func offlineTracker(t *testing.T, st store.Store, mirror Mirror) *TrackerService {
	t.Helper()
	router := extraction.NewRouter(extraction.NewExtractionService(context.Background(), extraction.Config{}), zerolog.Nop())
	return NewTrackerService(router, st, mirror, zerolog.Nop())
}

func stubTracker(d extraction.Decision, st store.Store, mirror Mirror) *TrackerService {
	return NewTrackerService(&stubRouter{decision: d}, st, mirror, zerolog.Nop())
}

func float64Ptr(v float64) *float64 { return &v }

func TestProcessMessage_AddExpenseOffline(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	mirror := &recordingMirror{}
	svc := offlineTracker(t, st, mirror)
	_, err := st.SetBalance(ctx, float64Ptr(500000), nil)
	require.NoError(t, err)

	reply, err := svc.ProcessMessage(ctx, "trưa ăn phở 35k")
	require.NoError(t, err)

	assert.True(t, reply.Success)
	assert.True(t, reply.Offline)
	assert.NotEmpty(t, reply.RequestID)
	assert.Equal(t, extraction.RouteAddExpense, reply.Route)
	assert.Equal(t, "Đã ghi nhận chi tiêu: phở - "+FormatVND(35000)+" (tiền mặt) "+OfflineMarker, reply.Message)

	require.NotNil(t, reply.Transaction)
	assert.Equal(t, "phở", reply.Transaction.Description)
	assert.Equal(t, extraction.MealMidday, reply.Transaction.MealTime)

	require.True(t, reply.BalanceUpdated)
	assert.Equal(t, 465000.0, reply.Balance.Cash)

	require.NotNil(t, reply.Quick)
	assert.Equal(t, 35000.0, reply.Quick.TodayTotal)
	assert.Equal(t, 1, reply.Quick.TodayCount)
	assert.Equal(t, 1, reply.Quick.WeekCount)

	require.Len(t, mirror.transactions, 1)
	assert.Equal(t, reply.Transaction.ID, mirror.transactions[0].ID)
}

func TestProcessMessage_IncomeToBank(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := offlineTracker(t, st, nil)

	reply, err := svc.ProcessMessage(ctx, "lãnh lương 5000k vào tài khoản")
	require.NoError(t, err)
	require.True(t, reply.Success)
	assert.Contains(t, reply.Message, "Đã ghi nhận thu nhập")
	assert.Contains(t, reply.Message, "(tài khoản)")
	assert.Equal(t, 5000000.0, reply.Balance.Bank)
	assert.Zero(t, reply.Balance.Cash)
	// Income is not spending.
	assert.Zero(t, reply.Quick.TodayTotal)
}

func TestProcessMessage_DeleteShortcutReversesBalance(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := offlineTracker(t, st, nil)

	_, err := svc.ProcessMessage(ctx, "trưa ăn phở 35k")
	require.NoError(t, err)
	_, err = svc.ProcessMessage(ctx, "lãnh lương 5000k vào tài khoản")
	require.NoError(t, err)

	reply, err := svc.ProcessMessage(ctx, "xóa")
	require.NoError(t, err)
	require.True(t, reply.Success)
	assert.Equal(t, "lương", reply.Transaction.Description)
	assert.Contains(t, reply.Message, "Đã xóa giao dịch gần nhất: lương")
	assert.Zero(t, reply.Balance.Bank)
	assert.Equal(t, -35000.0, reply.Balance.Cash)

	reply, err = svc.ProcessMessage(ctx, "xóa")
	require.NoError(t, err)
	require.True(t, reply.Success)
	assert.Zero(t, reply.Balance.Total())

	reply, err = svc.ProcessMessage(ctx, "")
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "Không có giao dịch nào để xóa", reply.Message)
	assert.NotContains(t, reply.Message, OfflineMarker)
}

func TestProcessMessage_DeleteByCriteria(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	for i, tx := range []store.Transaction{
		{Description: "Phở bò", Amount: 40000},
		{Description: "cà phê", Amount: 25000, AccountKind: extraction.AccountBank},
		{Description: "phở gà", Amount: 35000},
	} {
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.AddTransaction(ctx, &tx))
	}

	tests := []struct {
		name     string
		criteria extraction.DeleteCriteria
		want     string
		wantCash float64
		wantBank float64
	}{
		{name: "most recent match", criteria: extraction.DeleteCriteria{Description: "phở"}, want: "phở gà", wantCash: 35000},
		{name: "amount narrows", criteria: extraction.DeleteCriteria{Description: "PHỞ", Amount: float64Ptr(40000)}, want: "Phở bò", wantCash: 40000},
		{name: "bank account reversed", criteria: extraction.DeleteCriteria{Description: "cà phê"}, want: "cà phê", wantBank: 25000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := tt.criteria
			svc := stubTracker(extraction.Decision{Route: extraction.RouteDeleteExpense, Delete: &criteria, Accepted: true}, st, nil)
			before, err := st.GetBalance(ctx)
			require.NoError(t, err)

			reply, err := svc.ProcessMessage(ctx, "ignored")
			require.NoError(t, err)
			require.True(t, reply.Success)
			assert.Equal(t, tt.want, reply.Transaction.Description)
			assert.Equal(t, "Đã xóa giao dịch: "+tt.want+" - "+FormatVND(reply.Transaction.Amount), reply.Message)
			assert.Equal(t, before.Cash+tt.wantCash, reply.Balance.Cash)
			assert.Equal(t, before.Bank+tt.wantBank, reply.Balance.Bank)
			assert.NotEmpty(t, reply.Note)
		})
	}

	t.Run("no match", func(t *testing.T) {
		svc := stubTracker(extraction.Decision{
			Route:    extraction.RouteDeleteExpense,
			Delete:   &extraction.DeleteCriteria{Description: "bún"},
			Accepted: true,
		}, st, nil)
		reply, err := svc.ProcessMessage(ctx, "xóa bún")
		require.NoError(t, err)
		assert.False(t, reply.Success)
		assert.Equal(t, `Không tìm thấy giao dịch phù hợp với "bún"`, reply.Message)
		assert.NotEmpty(t, reply.Suggestion)
	})
}

func TestProcessMessage_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	mirror := &recordingMirror{}

	set := stubTracker(extraction.Decision{
		Route:    extraction.RouteUpdateBalance,
		Balance:  &extraction.BalanceUpdate{Operation: extraction.BalanceSet, CashBalance: float64Ptr(500000), BankBalance: float64Ptr(2000000)},
		Accepted: true,
	}, st, mirror)
	reply, err := set.ProcessMessage(ctx, "ignored")
	require.NoError(t, err)
	require.True(t, reply.Success)
	assert.Equal(t, "Đã thiết lập số dư: Tiền mặt = "+FormatVND(500000)+", Tài khoản = "+FormatVND(2000000), reply.Message)
	assert.Equal(t, 2500000.0, reply.Balance.Total())

	adjust := stubTracker(extraction.Decision{
		Route:    extraction.RouteUpdateBalance,
		Balance:  &extraction.BalanceUpdate{Operation: extraction.BalanceAdjust, CashDelta: float64Ptr(-50000)},
		Accepted: true,
		Degraded: true,
	}, st, mirror)
	reply, err = adjust.ProcessMessage(ctx, "ignored")
	require.NoError(t, err)
	require.True(t, reply.Success)
	assert.Equal(t, "Đã cập nhật số dư: Tiền mặt "+FormatVND(-50000)+" "+OfflineMarker, reply.Message)
	assert.Equal(t, 450000.0, reply.Balance.Cash)
	assert.Equal(t, 2000000.0, reply.Balance.Bank)

	assert.Len(t, mirror.balances, 2)
}

func TestProcessMessage_Statistics(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	mirror := &recordingMirror{}
	for _, amount := range []float64{25000, 35000, 45000, 55000} {
		require.NoError(t, st.AddTransaction(ctx, &store.Transaction{Description: "món", Amount: amount}))
	}

	svc := stubTracker(extraction.Decision{
		Route:      extraction.RouteViewStatistics,
		Statistics: &extraction.StatisticsRequest{Period: extraction.PeriodThisWeek, DayCount: 7},
		Accepted:   true,
	}, st, mirror)

	reply, err := svc.ProcessMessage(ctx, "thống kê tuần này")
	require.NoError(t, err)
	require.True(t, reply.Success)
	assert.Equal(t, "Thống kê chi tiêu tuần này", reply.Message)

	r := reply.Report
	require.NotNil(t, r)
	assert.Equal(t, 7, r.Days)
	assert.Equal(t, 4, r.Summary.Count)
	assert.Equal(t, 160000.0, r.Summary.TotalSpent)
	assert.Len(t, r.Recent, statisticsRecent)
	require.Len(t, r.Daily, 7)
	assert.Equal(t, 160000.0, r.Daily[6].Spent)
	assert.Zero(t, r.Daily[0].Spent)
	assert.Equal(t, []int{7}, mirror.statistics)
}

func TestProcessMessage_RejectedDecision(t *testing.T) {
	st := store.NewMemoryStore()
	svc := stubTracker(extraction.Decision{
		Route:      extraction.RouteAddExpense,
		Expense:    &extraction.ExpenseFields{Description: "phở"},
		Degraded:   true,
		Reason:     "Không thể hiểu rõ thông tin chi tiêu. Độ tin cậy: 0.10",
		Suggestion: extraction.SuggestExpense,
	}, st, nil)

	reply, err := svc.ProcessMessage(context.Background(), "phở")
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.True(t, reply.Offline)
	assert.Equal(t, "Không thể hiểu rõ thông tin chi tiêu. Độ tin cậy: 0.10", reply.Message)
	assert.Equal(t, extraction.SuggestExpense, reply.Suggestion)

	recent, err := st.RecentTransactions(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestProcessMessage_StoreFailures(t *testing.T) {
	addDecision := extraction.Decision{
		Route:    extraction.RouteAddExpense,
		Expense:  &extraction.ExpenseFields{Description: "phở", Amount: 35000, FlowType: extraction.FlowExpense, AccountKind: extraction.AccountCash},
		Accepted: true,
	}

	t.Run("insert failure is returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		mockStore.EXPECT().AddTransaction(gomock.Any(), gomock.Any()).Return(errors.New("disk I/O error"))

		reply, err := stubTracker(addDecision, mockStore, nil).ProcessMessage(context.Background(), "ignored")
		assert.Nil(t, reply)
		assert.ErrorContains(t, err, "disk I/O error")
	})

	t.Run("balance failure keeps the transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		mockStore.EXPECT().AddTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, tx *store.Transaction) error {
				tx.ID = 7
				return nil
			})
		mockStore.EXPECT().AdjustBalance(gomock.Any(), -35000.0, 0.0).Return(nil, errors.New("locked"))
		mockStore.EXPECT().SpendingSummary(gomock.Any(), gomock.Any()).Return(&store.SpendingSummary{Count: 1, TotalSpent: 35000}, nil).Times(2)

		reply, err := stubTracker(addDecision, mockStore, nil).ProcessMessage(context.Background(), "ignored")
		require.NoError(t, err)
		assert.True(t, reply.Success)
		assert.False(t, reply.BalanceUpdated)
		assert.Nil(t, reply.Balance)
		assert.Equal(t, int64(7), reply.Transaction.ID)
	})

	t.Run("stats failure after insert keeps the reply", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		mockStore.EXPECT().AddTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, tx *store.Transaction) error {
				tx.ID = 9
				return nil
			})
		mockStore.EXPECT().AdjustBalance(gomock.Any(), -35000.0, 0.0).Return(&store.Balance{Cash: 465000}, nil)
		mockStore.EXPECT().SpendingSummary(gomock.Any(), gomock.Any()).Return(nil, errors.New("database is locked"))
		mirror := &recordingMirror{}

		reply, err := stubTracker(addDecision, mockStore, mirror).ProcessMessage(context.Background(), "ignored")
		require.NoError(t, err)
		assert.True(t, reply.Success)
		assert.True(t, reply.BalanceUpdated)
		assert.Nil(t, reply.Quick)
		require.Len(t, mirror.transactions, 1)
		assert.Equal(t, int64(9), mirror.transactions[0].ID)
	})

	t.Run("stats failure after delete keeps the reply", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		mockStore.EXPECT().DeleteMostRecent(gomock.Any()).Return(&store.Transaction{
			ID: 4, Description: "phở", Amount: 35000,
			FlowType: extraction.FlowExpense, AccountKind: extraction.AccountCash,
		}, nil)
		mockStore.EXPECT().AdjustBalance(gomock.Any(), 35000.0, 0.0).Return(&store.Balance{Cash: 500000}, nil)
		mockStore.EXPECT().SpendingSummary(gomock.Any(), gomock.Any()).Return(nil, errors.New("database is locked"))

		d := extraction.Decision{Route: extraction.RouteDeleteExpense, Delete: &extraction.DeleteCriteria{DeleteMostRecent: true}, Accepted: true}
		reply, err := stubTracker(d, mockStore, nil).ProcessMessage(context.Background(), "xóa")
		require.NoError(t, err)
		assert.True(t, reply.Success)
		assert.Nil(t, reply.Quick)
		assert.Equal(t, "Đã xóa giao dịch gần nhất: phở - "+FormatVND(35000), reply.Message)
	})

	t.Run("delete lookup failure is returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		mockStore.EXPECT().FindTransactions(gomock.Any(), store.TransactionQuery{Description: "phở", Limit: 1}).
			Return(nil, errors.New("database is closed"))

		d := extraction.Decision{Route: extraction.RouteDeleteExpense, Delete: &extraction.DeleteCriteria{Description: "phở"}, Accepted: true}
		_, err := stubTracker(d, mockStore, nil).ProcessMessage(context.Background(), "xóa phở")
		assert.ErrorContains(t, err, "database is closed")
	})
}

func TestSpendingReport(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := offlineTracker(t, st, nil)

	_, err := svc.SpendingReport(ctx, 0)
	assert.Error(t, err)

	for i := 0; i < 12; i++ {
		require.NoError(t, st.AddTransaction(ctx, &store.Transaction{Description: "món", Amount: 10000}))
	}
	report, err := svc.SpendingReport(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "3 ngày qua", report.Period)
	assert.Len(t, report.Daily, 3)
	assert.Len(t, report.Recent, reportRecent)
	assert.Equal(t, 120000.0, report.Summary.TotalSpent)
	require.NotNil(t, report.Balance)
}

func TestExportAll(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	err := offlineTracker(t, st, nil).ExportAll(ctx)
	assert.ErrorIs(t, err, ErrMirrorDisabled)

	require.NoError(t, st.AddTransaction(ctx, &store.Transaction{Description: "phở", Amount: 35000}))
	mirror := &recordingMirror{}
	require.NoError(t, offlineTracker(t, st, mirror).ExportAll(ctx))
	require.Len(t, mirror.snapshots, 1)
	snap := mirror.snapshots[0]
	assert.Len(t, snap.Transactions, 1)
	require.Len(t, snap.Periods, len(exportPeriods))
	assert.Equal(t, 1, snap.Periods[0].Days)
	assert.Equal(t, 35000.0, snap.Periods[2].Summary.TotalSpent)

	mirror.exportErr = errors.New("upload failed")
	assert.ErrorContains(t, offlineTracker(t, st, mirror).ExportAll(ctx), "upload failed")
}

func TestSince(t *testing.T) {
	svc := offlineTracker(t, store.NewMemoryStore(), nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 18, 45, 0, 0, time.Local) }

	tests := []struct {
		days int
		want time.Time
	}{
		{1, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)},
		{7, time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local)},
		{30, time.Date(2024, 2, 15, 0, 0, 0, 0, time.Local)},
		{0, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		if got := svc.since(tt.days); !got.Equal(tt.want) {
			t.Errorf("since(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestFormatVND(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{35000, "35.000đ"},
		{5000000, "5.000.000đ"},
		{500, "500đ"},
	}
	for _, tt := range tests {
		if got := FormatVND(tt.amount); got != tt.want {
			t.Errorf("FormatVND(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
	if got := formatSigned(200000); got != "+"+FormatVND(200000) {
		t.Errorf("formatSigned(200000) = %q", got)
	}
}

func TestFillDays(t *testing.T) {
	since := time.Date(2024, 3, 13, 0, 0, 0, 0, time.Local)
	totals := []store.DailyTotal{{Day: time.Date(2024, 3, 14, 0, 0, 0, 0, time.Local), Count: 2, Spent: 60000}}

	got := fillDays(totals, since, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 13, got[0].Day.Day())
	assert.Zero(t, got[0].Count)
	assert.Equal(t, 60000.0, got[1].Spent)
	assert.Equal(t, 15, got[2].Day.Day())
}
