package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Route is the handler selected for a message.
type Route string

const (
	RouteAddExpense     Route = "add_expense"
	RouteDeleteExpense  Route = "delete_expense"
	RouteUpdateBalance  Route = "update_balance"
	RouteViewStatistics Route = "view_statistics"
	RouteUnclassified   Route = "unclassified"
	RouteUnsupported    Route = "unsupported"
)

// Confidence floors applied by the router.
const (
	IntentFloor          = 0.3
	ExpenseFloor         = 0.4
	ExpenseFloorDegraded = 0.25
	DeleteFloor          = 0.4
	StatisticsFloor      = 0.4
	ShortcutConfidence   = 1.0
)

// Suggested phrasings shown when a message cannot be used.
const (
	SuggestUnclassified = "Vui lòng thử lại với: 'ăn/uống [món] [giá]' hoặc 'xóa [món]'"
	SuggestUnsupported  = "Thử: 'ăn phở 30k', 'xóa phở', 'thống kê hôm nay'"
	SuggestExpense      = "Vui lòng thử lại với format: '[thời gian] ăn/uống [món] [giá]' (VD: 'trưa ăn phở 35k')"
	SuggestDelete       = "Vui lòng thử: 'xóa [món ăn]', 'xóa [món ăn] [giá]', hoặc chỉ 'xóa' để xóa giao dịch gần nhất"
	SuggestBalance      = "Vui lòng thử: 'cập nhật tiền mặt 500k' hoặc 'tài khoản còn 2 triệu'"
	SuggestStatistics   = "Vui lòng thử: 'thống kê hôm nay', 'thống kê tuần này' hoặc 'thống kê 10 ngày'"
	OfflineNote         = "Chế độ offline: vui lòng nhập rõ ràng hơn"
)

// deleteShortcuts select the most recent transaction without extraction.
var deleteShortcuts = map[string]bool{
	"":                       true,
	"xóa":                    true,
	"xoá":                    true,
	"gần nhất":               true,
	"recent":                 true,
	"last":                   true,
	"latest":                 true,
	"xóa gần nhất":           true,
	"xóa giao dịch gần nhất": true,
}

// Decision is the outcome of routing one message. Exactly one payload is
// set for the four handler routes. Accepted is false when the payload did
// not clear its confidence floor; Suggestion then holds an example phrasing.
type Decision struct {
	Route      Route
	Intent     *IntentClassification
	Expense    *ExpenseFields
	Delete     *DeleteCriteria
	Balance    *BalanceUpdate
	Statistics *StatisticsRequest
	Accepted   bool
	Degraded   bool
	Shortcut   bool
	Reason     string
	Suggestion string
}

// Payload returns the branch result, or nil for unclassified and
// unsupported messages.
func (d Decision) Payload() Result {
	switch {
	case d.Expense != nil:
		return d.Expense
	case d.Delete != nil:
		return d.Delete
	case d.Balance != nil:
		return d.Balance
	case d.Statistics != nil:
		return d.Statistics
	}
	return nil
}

// Confidence returns the confidence of the payload, falling back to the
// intent's.
func (d Decision) Confidence() float64 {
	if p := d.Payload(); p != nil {
		return ConfidenceOf(p)
	}
	if d.Intent != nil {
		return d.Intent.Confidence
	}
	return 0
}

// Router picks a handler for each message and applies per-branch floors.
type Router struct {
	extractor *ExtractionService
	logger    zerolog.Logger
}

// NewRouter creates a router over the given extraction service.
func NewRouter(extractor *ExtractionService, logger zerolog.Logger) *Router {
	return &Router{
		extractor: extractor,
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// Degraded reports whether messages are currently handled offline.
func (r *Router) Degraded() bool {
	return r.extractor.State() == StateDegraded
}

// Route classifies message and extracts the payload for its branch.
func (r *Router) Route(ctx context.Context, message string) Decision {
	if isDeleteShortcut(message) {
		d := Decision{
			Route: RouteDeleteExpense,
			Delete: &DeleteCriteria{
				DeleteMostRecent: true,
				Meta:             Meta{Confidence: ShortcutConfidence, Source: SourceShortcut},
			},
			Accepted: true,
			Shortcut: true,
			Degraded: r.Degraded(),
		}
		r.logger.Debug().Str("route", string(d.Route)).Msg("delete shortcut")
		return d
	}

	intent := r.extractor.ClassifyIntent(ctx, message)
	d := Decision{Intent: intent, Degraded: intent.Degraded}

	if intent.Confidence < IntentFloor {
		d.Route = RouteUnclassified
		d.Reason = strings.TrimSpace("Không hiểu rõ ý định của bạn. " + intent.Analysis)
		d.Suggestion = withOfflineNote(SuggestUnclassified, d.Degraded)
		r.log(d)
		return d
	}

	switch intent.Intent {
	case IntentAddExpense:
		exp := r.extractor.ExtractExpense(ctx, message)
		floor := ExpenseFloor
		if exp.Degraded {
			floor = ExpenseFloorDegraded
		}
		d.Route, d.Expense = RouteAddExpense, exp
		d.Accepted = exp.Confidence >= floor && exp.Amount > 0
		if !d.Accepted {
			d.Reason = fmt.Sprintf("Không thể hiểu rõ thông tin chi tiêu. Độ tin cậy: %.2f", exp.Confidence)
			d.Suggestion = SuggestExpense
		}
	case IntentDeleteExpense:
		del := r.extractor.ExtractDelete(ctx, message)
		d.Route, d.Delete = RouteDeleteExpense, del
		d.Accepted = del.Confidence >= DeleteFloor && del.HasCriteria()
		if !d.Accepted {
			d.Reason = fmt.Sprintf("Không thể hiểu rõ giao dịch cần xóa. Độ tin cậy: %.2f", del.Confidence)
			d.Suggestion = SuggestDelete
		}
	case IntentUpdateBalance:
		bal := r.extractor.ExtractBalance(ctx, message)
		d.Route, d.Balance = RouteUpdateBalance, bal
		d.Accepted = !bal.Empty()
		if !d.Accepted {
			d.Reason = "Không thể xử lý lệnh cập nhật số dư"
			d.Suggestion = SuggestBalance
		}
	case IntentViewStatistics:
		stats := r.extractor.ExtractStatistics(ctx, message)
		d.Route, d.Statistics = RouteViewStatistics, stats
		d.Accepted = stats.Confidence >= StatisticsFloor
		if !d.Accepted {
			d.Reason = fmt.Sprintf("Không thể hiểu rõ khoảng thời gian thống kê. Độ tin cậy: %.2f", stats.Confidence)
			d.Suggestion = SuggestStatistics
		}
	default:
		d.Route = RouteUnsupported
		d.Reason = strings.TrimSpace("Chưa hỗ trợ loại yêu cầu này: " + intent.Analysis)
		d.Suggestion = withOfflineNote(SuggestUnsupported, d.Degraded)
	}

	if p := d.Payload(); p != nil && IsDegraded(p) {
		d.Degraded = true
	}
	r.log(d)
	return d
}

func (r *Router) log(d Decision) {
	r.logger.Debug().
		Str("route", string(d.Route)).
		Bool("accepted", d.Accepted).
		Bool("degraded", d.Degraded).
		Float64("confidence", d.Confidence()).
		Msg("message routed")
}

func isDeleteShortcut(message string) bool {
	return deleteShortcuts[strings.Trim(normalizeText(message), " \t\n.!?")]
}

func withOfflineNote(suggestion string, degraded bool) string {
	if degraded {
		return suggestion + "\n" + OfflineNote
	}
	return suggestion
}
