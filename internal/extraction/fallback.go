package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	fallbackMinConfidence = 0.2
	fallbackMaxConfidence = 0.9
)

// Placeholder descriptions used when nothing better can be found.
const (
	PlaceholderExpense = "chi tiêu"
	PlaceholderIncome  = "thu nhập"
)

var customDaysRe = regexp.MustCompile(`(\d+)\s*ngày`)

// Fallback runs the rule-based extractor for kind. It never fails and the
// result is always marked degraded.
func Fallback(kind SchemaKind, message string) Result {
	switch kind {
	case KindIntent:
		return FallbackIntent(message)
	case KindExpense:
		return FallbackExpense(message)
	case KindDelete:
		return FallbackDelete(message)
	case KindBalance:
		return FallbackBalance(message)
	case KindStatistics:
		return FallbackStatistics(message)
	}
	return nil
}

// FallbackIntent classifies a message by ordered keyword tests. Delete
// keywords win over expense cues so "xóa ăn phở 30k" is a delete.
func FallbackIntent(message string) *IntentClassification {
	text := normalizeText(strings.TrimSpace(message))
	_, hasAmount := NormalizeAmount(text)
	hasCue := hasAnyKeyword(text, expenseKeywords) || hasAnyKeyword(text, incomeKeywords)

	out := &IntentClassification{}
	switch {
	case hasAnyKeyword(text, deleteKeywords):
		out.Intent, out.Confidence, out.Analysis = IntentDeleteExpense, 0.8, "phát hiện từ khóa xóa"
	case hasAnyKeyword(text, statsKeywords):
		out.Intent, out.Confidence, out.Analysis = IntentViewStatistics, 0.85, "phát hiện yêu cầu thống kê"
	case hasAnyKeyword(text, periodKeywords) && !hasAmount && !hasCue:
		out.Intent, out.Confidence, out.Analysis = IntentViewStatistics, 0.85, "phát hiện khoảng thời gian thống kê"
	case isBalanceRequest(text):
		out.Intent, out.Confidence, out.Analysis = IntentUpdateBalance, 0.8, "phát hiện yêu cầu cập nhật số dư"
	case hasCue && hasAmount:
		out.Intent, out.Confidence, out.Analysis = IntentAddExpense, 0.9, "phát hiện giao dịch có số tiền"
	case hasAmount:
		out.Intent, out.Confidence, out.Analysis = IntentAddExpense, 0.75, "phát hiện số tiền"
	case hasCue:
		out.Intent, out.Confidence, out.Analysis = IntentUnknown, 0.3, "có động từ giao dịch nhưng thiếu số tiền"
	default:
		out.Intent, out.Confidence, out.Analysis = IntentUnknown, 0.2, "không xác định được ý định"
	}
	markFallback(&out.Meta)
	return out
}

func isBalanceRequest(text string) bool {
	if hasAnyKeyword(text, balanceKeywords) {
		return true
	}
	if hasAnyKeyword(text, balanceUpdateVerbs) && hasAnyKeyword(text, balanceTargets) {
		return true
	}
	return hasAnyKeyword(text, balanceAccountTargets) && hasAnyKeyword(text, balanceAssignments)
}

// FallbackExpense extracts a single expense or income entry.
func FallbackExpense(message string) *ExpenseFields {
	text := normalizeText(message)
	out := &ExpenseFields{FlowType: FlowExpense, AccountKind: AccountCash}
	confidence := 0.3

	if flow, ok := detectFlow(text); ok {
		out.FlowType = flow
		confidence += 0.1
	}

	account, boost, _ := detectAccount(text)
	out.AccountKind = account
	confidence += boost

	if amt, ok := NormalizeAmount(text); ok {
		out.Amount = amt.Value
		confidence += 0.2
	}

	if meal, ok := detectMealTime(text); ok {
		out.MealTime = meal
		confidence += 0.15
	}

	desc, boost := deriveDescription(text, out.FlowType)
	if desc == "" {
		desc = placeholderFor(out.FlowType)
	} else {
		confidence += boost
		if out.Amount > 0 {
			if out.MealTime != MealNone {
				confidence += 0.1
			} else {
				confidence += 0.05
			}
		}
	}
	out.Description = desc

	out.Confidence = confidence
	markFallback(&out.Meta)
	return out
}

// FallbackDelete extracts delete criteria. A message with nothing beyond
// delete markers selects the most recent transaction.
func FallbackDelete(message string) *DeleteCriteria {
	text := normalizeText(strings.TrimSpace(message))
	out := &DeleteCriteria{}

	stripped := removeKeywords(text, deleteMarkers)
	if len(tokenize(stripped)) == 0 {
		out.DeleteMostRecent = true
		out.Confidence = 0.8
		markFallback(&out.Meta)
		return out
	}
	rest := removeKeywords(stripped, mostRecentMarkers)
	if len(tokenize(rest)) == 0 {
		out.DeleteMostRecent = true
		out.Confidence = 0.8
		markFallback(&out.Meta)
		return out
	}

	confidence := 0.4
	found := false
	if amt, ok := NormalizeAmount(rest); ok {
		out.Amount = float64Ptr(amt.Value)
		confidence += 0.15
		found = true
	}
	if meal, ok := detectMealTime(rest); ok {
		out.MealTime = meal
		confidence += 0.1
		found = true
	}
	flow, _ := detectFlow(rest)
	if desc, _ := deriveDescription(rest, flow); desc != "" {
		out.Description = desc
		confidence += 0.2
		found = true
	}
	if !found {
		confidence = 0.3
	}

	out.Confidence = confidence
	markFallback(&out.Meta)
	return out
}

// FallbackBalance extracts a balance set or adjustment. Without an amount
// the returned update is empty.
func FallbackBalance(message string) *BalanceUpdate {
	text := normalizeText(message)
	out := &BalanceUpdate{Operation: BalanceSet}
	confidence := 0.5

	explicitOp := false
	switch {
	case hasAnyKeyword(text, balanceSetMarkers):
		explicitOp = true
	case hasAnyKeyword(text, balanceAdjustMarkers):
		out.Operation = BalanceAdjust
		explicitOp = true
	}

	account, _, explicitAccount := detectAccount(text)

	amt, ok := NormalizeAmount(text)
	if !ok {
		out.Description = "không tìm thấy số tiền"
		out.Confidence = 0.3
		markFallback(&out.Meta)
		return out
	}
	confidence += 0.2
	if explicitAccount {
		confidence += 0.1
	}
	if explicitOp {
		confidence += 0.1
	}

	value := amt.Value
	if out.Operation == BalanceAdjust {
		if hasAnyKeyword(text, outflowKeywords) && !hasAnyKeyword(text, incomeKeywords) {
			value = -value
		}
		if account == AccountBank {
			out.BankDelta = float64Ptr(value)
		} else {
			out.CashDelta = float64Ptr(value)
		}
		out.Description = fmt.Sprintf("%s %s", accountLabel(account), formatSigned(value))
	} else {
		if account == AccountBank {
			out.BankBalance = float64Ptr(value)
		} else {
			out.CashBalance = float64Ptr(value)
		}
		out.Description = fmt.Sprintf("đặt %s = %s", accountLabel(account), strconv.FormatFloat(value, 'f', 0, 64))
	}

	out.Confidence = confidence
	markFallback(&out.Meta)
	return out
}

// FallbackStatistics maps period words to a reporting window.
func FallbackStatistics(message string) *StatisticsRequest {
	text := normalizeText(message)
	out := &StatisticsRequest{}
	switch {
	case hasAnyKeyword(text, todayKeywords):
		out.Period, out.DayCount, out.Confidence = PeriodToday, 1, 0.85
	case hasAnyKeyword(text, weekKeywords):
		out.Period, out.DayCount, out.Confidence = PeriodThisWeek, 7, 0.85
	case hasAnyKeyword(text, monthKeywords):
		out.Period, out.DayCount, out.Confidence = PeriodThisMonth, 30, 0.85
	default:
		if m := customDaysRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				out.Period, out.DayCount, out.Confidence = PeriodCustom, n, 0.8
				break
			}
		}
		out.Period, out.DayCount, out.Confidence = PeriodThisWeek, 7, 0.55
	}
	markFallback(&out.Meta)
	return out
}

func detectFlow(text string) (FlowType, bool) {
	if hasAnyKeyword(text, incomeKeywords) {
		return FlowIncome, true
	}
	if hasAnyKeyword(text, expenseKeywords) {
		return FlowExpense, true
	}
	return FlowExpense, false
}

// detectAccount picks the balance bucket. Transfer words force bank, other
// bank words beat cash words, and cash is the default.
func detectAccount(text string) (kind AccountKind, boost float64, explicit bool) {
	switch {
	case hasAnyKeyword(text, transferKeywords):
		return AccountBank, 0.2, true
	case hasAnyKeyword(text, bankKeywords):
		return AccountBank, 0.1, true
	case hasAnyKeyword(text, cashKeywords):
		return AccountCash, 0.1, true
	}
	return AccountCash, 0, false
}

func detectMealTime(text string) (MealTime, bool) {
	for _, rule := range mealRules {
		if hasAnyKeyword(text, rule.keywords) {
			return rule.meal, true
		}
	}
	return MealNone, false
}

// deriveDescription finds what the transaction was for. It tries, in order:
// the phrase after a purchase verb, a known income description, and the
// first content word. It returns "" when nothing fits.
func deriveDescription(text string, flow FlowType) (string, float64) {
	tokens := tokenize(text)

	for i, tok := range tokens {
		if !descriptionVerbs[tok] {
			continue
		}
		if phrase := descriptionPhrase(tokens[i+1:]); phrase != "" {
			return phrase, 0.2
		}
	}

	if flow == FlowIncome {
		if desc, ok := firstKeyword(text, incomeDescriptions); ok {
			return desc, 0.15
		}
	}

	for _, tok := range tokens {
		if isAmountToken(tok) || contentStopwords[tok] || utf8.RuneCountInString(tok) < 2 {
			continue
		}
		return tok, 0.1
	}
	return "", 0
}

// descriptionPhrase collects up to four words until an amount, a time word,
// a connector, or an account word.
func descriptionPhrase(tokens []string) string {
	var words []string
	for i, tok := range tokens {
		if len(words) == 4 || isAmountToken(tok) || phraseStops[tok] || descriptionVerbs[tok] {
			break
		}
		if next, ok := phraseStopPairs[tok]; ok && i+1 < len(tokens) && tokens[i+1] == next {
			break
		}
		words = append(words, tok)
	}
	return strings.Join(words, " ")
}

func placeholderFor(flow FlowType) string {
	if flow == FlowIncome {
		return PlaceholderIncome
	}
	return PlaceholderExpense
}

func accountLabel(kind AccountKind) string {
	if kind == AccountBank {
		return "tài khoản"
	}
	return "tiền mặt"
}

func formatSigned(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	if v > 0 {
		return "+" + s
	}
	return s
}

func markFallback(m *Meta) {
	m.Degraded = true
	m.Source = SourceFallback
	m.Confidence = clampConfidence(m.Confidence, fallbackMinConfidence, fallbackMaxConfidence)
}

func clampConfidence(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
