package extraction

import (
	"math"
	"strings"
)

const (
	modelMinConfidence = 0.05
	modelMaxConfidence = 0.95

	descriptionPenalty      = 0.2
	descriptionPenaltyFloor = 0.3
)

// repairResult patches known slips in model answers using the original
// message. It never consults the model again.
func repairResult(r Result, message string) {
	text := normalizeText(message)
	switch v := r.(type) {
	case *IntentClassification:
		if !v.Intent.Valid() {
			v.Intent = FallbackIntent(message).Intent
		}
	case *ExpenseFields:
		repairExpense(v, text)
	case *DeleteCriteria:
		if v.Amount != nil {
			*v.Amount = repairAmount(*v.Amount, text)
		}
		if !v.MealTime.Valid() {
			v.MealTime, _ = detectMealTime(text)
		}
		v.Description = strings.TrimSpace(v.Description)
	case *BalanceUpdate:
		for _, p := range []*float64{v.CashBalance, v.BankBalance, v.CashDelta, v.BankDelta} {
			if p != nil {
				*p = math.Copysign(repairAmount(math.Abs(*p), text), *p)
			}
		}
	case *StatisticsRequest:
		if v.DayCount < 1 {
			v.DayCount = defaultDayCount(v.Period)
		}
	}
}

func repairExpense(v *ExpenseFields, text string) {
	v.Amount = repairAmount(v.Amount, text)

	if !v.FlowType.Valid() {
		v.FlowType, _ = detectFlow(text)
	}
	if !v.AccountKind.Valid() {
		v.AccountKind, _, _ = detectAccount(text)
	}
	if hasAnyKeyword(text, transferKeywords) {
		v.AccountKind = AccountBank
	}
	if !v.MealTime.Valid() {
		v.MealTime, _ = detectMealTime(text)
	}

	v.Description = strings.TrimSpace(v.Description)
	if v.Description == "" {
		desc, _ := deriveDescription(text, v.FlowType)
		if desc == "" {
			desc = placeholderFor(v.FlowType)
		}
		v.Description = desc
		if penalized := v.Confidence - descriptionPenalty; penalized >= descriptionPenaltyFloor {
			v.Confidence = penalized
		} else if v.Confidence > descriptionPenaltyFloor {
			v.Confidence = descriptionPenaltyFloor
		}
	}
}

// repairAmount restores a dropped thousands multiplier: a model reading
// "35k" as 35.
func repairAmount(amount float64, text string) float64 {
	if amount >= 1000 || !strings.Contains(text, "k") {
		return amount
	}
	if v, ok := RescanThousands(text); ok {
		return v
	}
	return amount
}

func defaultDayCount(p Period) int {
	switch p {
	case PeriodToday:
		return 1
	case PeriodThisMonth:
		return 30
	}
	return 7
}

func markModel(m *Meta) {
	m.Degraded = false
	m.Source = SourceModel
	m.Confidence = clampConfidence(m.Confidence, modelMinConfidence, modelMaxConfidence)
}
