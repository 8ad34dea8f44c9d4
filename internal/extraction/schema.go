package extraction

// Intent is what the user wants done with a message.
type Intent string

const (
	IntentAddExpense     Intent = "add_expense"
	IntentDeleteExpense  Intent = "delete_expense"
	IntentUpdateBalance  Intent = "update_balance"
	IntentViewStatistics Intent = "view_statistics"
	IntentUnknown        Intent = "unknown"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentAddExpense, IntentDeleteExpense, IntentUpdateBalance, IntentViewStatistics, IntentUnknown:
		return true
	}
	return false
}

// MealTime is the coarse time-of-day bucket of a transaction.
type MealTime string

const (
	MealNone      MealTime = ""
	MealMorning   MealTime = "morning"
	MealMidday    MealTime = "midday"
	MealAfternoon MealTime = "afternoon"
	MealEvening   MealTime = "evening"
)

// Valid reports whether m is empty or a known bucket.
func (m MealTime) Valid() bool {
	switch m {
	case MealNone, MealMorning, MealMidday, MealAfternoon, MealEvening:
		return true
	}
	return false
}

// FlowType is the direction of money.
type FlowType string

const (
	FlowExpense FlowType = "expense"
	FlowIncome  FlowType = "income"
)

func (f FlowType) Valid() bool {
	return f == FlowExpense || f == FlowIncome
}

// AccountKind is the balance bucket a transaction affects.
type AccountKind string

const (
	AccountCash AccountKind = "cash"
	AccountBank AccountKind = "bank"
)

func (a AccountKind) Valid() bool {
	return a == AccountCash || a == AccountBank
}

// BalanceOperation distinguishes overwriting a balance from shifting it.
type BalanceOperation string

const (
	BalanceSet    BalanceOperation = "set"
	BalanceAdjust BalanceOperation = "adjust"
)

// Period is a statistics window.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodThisWeek  Period = "this_week"
	PeriodThisMonth Period = "this_month"
	PeriodCustom    Period = "custom"
)

// SchemaKind names one variant of Result.
type SchemaKind string

const (
	KindIntent     SchemaKind = "intent"
	KindExpense    SchemaKind = "expense"
	KindDelete     SchemaKind = "delete"
	KindBalance    SchemaKind = "balance"
	KindStatistics SchemaKind = "statistics"
)

// Source records which path produced a result.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
	SourceShortcut Source = "shortcut"
)

// Meta is carried by every extraction result.
type Meta struct {
	Confidence float64 `json:"confidence"`
	Degraded   bool    `json:"-"`
	Source     Source  `json:"-"`
}

func (m *Meta) meta() *Meta { return m }

// Result is the closed set of extraction outputs. Only the types in this
// file implement it.
type Result interface {
	Kind() SchemaKind
	meta() *Meta
}

// IntentClassification is the first-stage answer for every message.
type IntentClassification struct {
	Intent   Intent `json:"intent"`
	Analysis string `json:"analysis"`
	Meta
}

func (*IntentClassification) Kind() SchemaKind { return KindIntent }

// ExpenseFields describes a single expense or income entry. Amount is in
// base currency units and Description is never empty once returned by
// ExtractionService.
type ExpenseFields struct {
	Description string      `json:"description"`
	Amount      float64     `json:"amount"`
	MealTime    MealTime    `json:"meal_time,omitempty"`
	FlowType    FlowType    `json:"flow_type"`
	AccountKind AccountKind `json:"account_kind"`
	Meta
}

func (*ExpenseFields) Kind() SchemaKind { return KindExpense }

// DeleteCriteria selects the transaction to remove. When DeleteMostRecent is
// set the other fields are ignored.
type DeleteCriteria struct {
	Description      string   `json:"description,omitempty"`
	Amount           *float64 `json:"amount,omitempty"`
	MealTime         MealTime `json:"meal_time,omitempty"`
	DeleteMostRecent bool     `json:"delete_most_recent"`
	Meta
}

func (*DeleteCriteria) Kind() SchemaKind { return KindDelete }

// HasCriteria reports whether at least one selector is present.
func (d *DeleteCriteria) HasCriteria() bool {
	return d.DeleteMostRecent || d.Description != "" || d.Amount != nil || d.MealTime != MealNone
}

// BalanceUpdate overwrites (set) or shifts (adjust) the cash and bank
// balances. Only the fields matching Operation are meaningful.
type BalanceUpdate struct {
	Operation   BalanceOperation `json:"operation"`
	CashBalance *float64         `json:"cash_balance,omitempty"`
	BankBalance *float64         `json:"bank_balance,omitempty"`
	CashDelta   *float64         `json:"cash_delta,omitempty"`
	BankDelta   *float64         `json:"bank_delta,omitempty"`
	Description string           `json:"description"`
	Meta
}

func (*BalanceUpdate) Kind() SchemaKind { return KindBalance }

// Empty reports whether the update would change nothing.
func (b *BalanceUpdate) Empty() bool {
	switch b.Operation {
	case BalanceSet:
		return b.CashBalance == nil && b.BankBalance == nil
	case BalanceAdjust:
		return b.CashDelta == nil && b.BankDelta == nil
	}
	return true
}

// StatisticsRequest asks for a spending report over the last DayCount days.
type StatisticsRequest struct {
	Period   Period `json:"period"`
	DayCount int    `json:"day_count"`
	Meta
}

func (*StatisticsRequest) Kind() SchemaKind { return KindStatistics }

// NewResult returns an empty value of the given kind, ready to be decoded
// into.
func NewResult(kind SchemaKind) Result {
	switch kind {
	case KindIntent:
		return &IntentClassification{}
	case KindExpense:
		return &ExpenseFields{}
	case KindDelete:
		return &DeleteCriteria{}
	case KindBalance:
		return &BalanceUpdate{}
	case KindStatistics:
		return &StatisticsRequest{}
	}
	return nil
}

// copyResult overwrites dst with src. Both must be the same kind.
func copyResult(dst, src Result) {
	switch d := dst.(type) {
	case *IntentClassification:
		*d = *src.(*IntentClassification)
	case *ExpenseFields:
		*d = *src.(*ExpenseFields)
	case *DeleteCriteria:
		*d = *src.(*DeleteCriteria)
	case *BalanceUpdate:
		*d = *src.(*BalanceUpdate)
	case *StatisticsRequest:
		*d = *src.(*StatisticsRequest)
	}
}

// ConfidenceOf returns the confidence carried by r.
func ConfidenceOf(r Result) float64 {
	return r.meta().Confidence
}

// IsDegraded reports whether r came from the rule-based path.
func IsDegraded(r Result) bool {
	return r.meta().Degraded
}

func float64Ptr(v float64) *float64 {
	return &v
}
