package service

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

// Reply is the outcome of one chat message.
type Reply struct {
	RequestID  string
	Route      extraction.Route
	Success    bool
	Message    string
	Suggestion string
	Note       string
	Offline    bool

	// Transaction is the row added or deleted.
	Transaction    *store.Transaction
	Balance        *store.Balance
	BalanceUpdated bool
	Quick          *QuickStats
	Report         *Report
}

// QuickStats is the running total shown after an add or delete.
type QuickStats struct {
	TodayTotal float64
	TodayCount int
	WeekTotal  float64
	WeekCount  int
	Amount     float64
}

var vnd = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount with Vietnamese digit grouping, e.g. 35.000đ.
func FormatVND(amount float64) string {
	return vnd.Sprintf("%.0f", amount) + "đ"
}

func formatSigned(amount float64) string {
	if amount > 0 {
		return "+" + FormatVND(amount)
	}
	return FormatVND(amount)
}

func accountLabel(a extraction.AccountKind) string {
	if a == extraction.AccountBank {
		return "tài khoản"
	}
	return "tiền mặt"
}

func joinChanges(changes []string) string {
	return strings.Join(changes, ", ")
}
