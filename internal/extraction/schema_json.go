package extraction

// JSONSchema returns the JSON Schema (draft 2020-12 subset) a model answer
// of the given kind must satisfy. Optional fields may be omitted or null.
func JSONSchema(kind SchemaKind) map[string]any {
	switch kind {
	case KindIntent:
		return object(map[string]any{
			"intent":     enumProp(string(IntentAddExpense), string(IntentDeleteExpense), string(IntentUpdateBalance), string(IntentViewStatistics), string(IntentUnknown)),
			"analysis":   map[string]any{"type": "string"},
			"confidence": confidenceProp(),
		}, "intent", "confidence")
	case KindExpense:
		return object(map[string]any{
			"description":  map[string]any{"type": "string"},
			"amount":       amountProp(),
			"meal_time":    nullableEnumProp(string(MealMorning), string(MealMidday), string(MealAfternoon), string(MealEvening)),
			"flow_type":    enumProp(string(FlowExpense), string(FlowIncome)),
			"account_kind": enumProp(string(AccountCash), string(AccountBank)),
			"confidence":   confidenceProp(),
		}, "description", "amount", "flow_type", "account_kind", "confidence")
	case KindDelete:
		return object(map[string]any{
			"description":        map[string]any{"type": []any{"string", "null"}},
			"amount":             nullable(amountProp()),
			"meal_time":          nullableEnumProp(string(MealMorning), string(MealMidday), string(MealAfternoon), string(MealEvening)),
			"delete_most_recent": map[string]any{"type": "boolean"},
			"confidence":         confidenceProp(),
		}, "delete_most_recent", "confidence")
	case KindBalance:
		return object(map[string]any{
			"operation":    enumProp(string(BalanceSet), string(BalanceAdjust)),
			"cash_balance": nullable(amountProp()),
			"bank_balance": nullable(amountProp()),
			"cash_delta":   map[string]any{"type": []any{"number", "null"}},
			"bank_delta":   map[string]any{"type": []any{"number", "null"}},
			"description":  map[string]any{"type": "string"},
			"confidence":   confidenceProp(),
		}, "operation", "confidence")
	case KindStatistics:
		return object(map[string]any{
			"period":     enumProp(string(PeriodToday), string(PeriodThisWeek), string(PeriodThisMonth), string(PeriodCustom)),
			"day_count":  map[string]any{"type": "integer", "minimum": 1},
			"confidence": confidenceProp(),
		}, "period", "day_count", "confidence")
	}
	return nil
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func enumProp(values ...string) map[string]any {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return map[string]any{"type": "string", "enum": enum}
}

func nullableEnumProp(values ...string) map[string]any {
	enum := make([]any, 0, len(values)+1)
	for _, v := range values {
		enum = append(enum, v)
	}
	enum = append(enum, nil)
	return map[string]any{"type": []any{"string", "null"}, "enum": enum}
}

func nullable(prop map[string]any) map[string]any {
	out := make(map[string]any, len(prop))
	for k, v := range prop {
		out[k] = v
	}
	out["type"] = []any{out["type"], "null"}
	return out
}

func amountProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}

func confidenceProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}
