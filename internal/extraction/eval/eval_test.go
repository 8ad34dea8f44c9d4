package eval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// --- Unit Tests for Metric Functions ---

func TestAmountMatch(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{35000, 35000, true},
		{35000, 35000.4, true},
		{35000, 35001, false},
		{35, 35000, false},
		{0, 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.1f_vs_%.1f", tt.a, tt.b), func(t *testing.T) {
			if got := amountMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("amountMatch(%.1f, %.1f) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDescriptionSimilarity(t *testing.T) {
	tests := []struct {
		a, b    string
		wantMin float64
		wantMax float64
	}{
		{"phở", "phở", 1.0, 1.0},
		{"", "", 1.0, 1.0},
		{"Phở Bò", "phở bò", 1.0, 1.0},
		{"bún bò", "bún bò huế", 0.5, 0.9},
		{"phở", "xăng", 0.0, 0.3},
		{"cà phê", "", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q_vs_%q", tt.a, tt.b), func(t *testing.T) {
			got := descriptionSimilarity(tt.a, tt.b)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("descriptionSimilarity(%q, %q) = %.3f, want [%.1f, %.1f]",
					tt.a, tt.b, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"phở", "", 3},
		{"phở", "pho", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	fixture := &Fixture{
		Name: "mini",
		Cases: []Case{
			{Message: "trưa ăn phở 35k", Expected: Expected{Intent: extraction.IntentAddExpense, Description: "phở", Amount: 35000, MealTime: extraction.MealMidday, FlowType: extraction.FlowExpense, AccountKind: extraction.AccountCash}},
			{Message: "xóa phở", Expected: Expected{Intent: extraction.IntentDeleteExpense}},
		},
	}
	outcomes := []Outcome{
		{Intent: extraction.IntentAddExpense, Expense: &extraction.ExpenseFields{
			Description: "phở", Amount: 35000, MealTime: extraction.MealMidday,
			FlowType: extraction.FlowExpense, AccountKind: extraction.AccountCash,
		}},
		{Intent: extraction.IntentDeleteExpense},
	}

	result := ComputeMetrics("test", fixture, outcomes, 0)

	if result.IntentAccuracy != 1.0 {
		t.Errorf("expected intent accuracy 1.0, got %.2f", result.IntentAccuracy)
	}
	if result.AmountAccuracy != 1.0 {
		t.Errorf("expected amount accuracy 1.0, got %.2f", result.AmountAccuracy)
	}
	if result.DescriptionSim != 1.0 {
		t.Errorf("expected description similarity 1.0, got %.2f", result.DescriptionSim)
	}
	if result.OverallScore < 0.999 {
		t.Errorf("expected overall score 1.0, got %.3f", result.OverallScore)
	}
	if len(result.Misses) != 0 {
		t.Errorf("expected no misses, got %v", result.Misses)
	}
}

func TestComputeMetrics_MissingOutcomes(t *testing.T) {
	fixture := &Fixture{
		Name: "mini",
		Cases: []Case{
			{Message: "xóa phở", Expected: Expected{Intent: extraction.IntentDeleteExpense}},
			{Message: "thống kê", Expected: Expected{Intent: extraction.IntentViewStatistics}},
		},
	}
	result := ComputeMetrics("test", fixture, []Outcome{{Intent: extraction.IntentUnknown}}, 0)

	if result.IntentAccuracy != 0 {
		t.Errorf("expected intent accuracy 0, got %.2f", result.IntentAccuracy)
	}
	if len(result.Misses) != 1 || result.Misses[0] != "xóa phở" {
		t.Errorf("expected one miss for %q, got %v", "xóa phở", result.Misses)
	}
}

// --- Integration Tests ---

func TestLoadFixtures(t *testing.T) {
	fixtures, err := LoadFixtures()
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(fixtures))
	}
	for _, f := range fixtures {
		if len(f.Cases) == 0 {
			t.Errorf("fixture %s has no cases", f.Name)
		}
	}
}

func TestRunEval_Rules(t *testing.T) {
	fixtures, err := LoadFixtures()
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}

	results := RunEval(context.Background(), map[string]StrategyFunc{"rules": RulesStrategy()}, fixtures)
	if len(results) != len(fixtures) {
		t.Fatalf("expected %d results, got %d", len(fixtures), len(results))
	}

	for _, r := range results {
		if r.IntentAccuracy != 1.0 {
			t.Errorf("%s: intent accuracy = %.2f, misses %v", r.Fixture, r.IntentAccuracy, r.Misses)
		}
		if r.Fixture == "expenses" {
			if r.AmountAccuracy != 1.0 {
				t.Errorf("%s: amount accuracy = %.2f, want 1.0", r.Fixture, r.AmountAccuracy)
			}
			if r.Degraded != r.Cases {
				t.Errorf("%s: degraded = %d, want %d", r.Fixture, r.Degraded, r.Cases)
			}
		}
	}
}

func TestRunEval_ServiceWithoutModelMatchesRules(t *testing.T) {
	fixtures, err := LoadFixtures()
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	svc := extraction.NewExtractionService(context.Background(), extraction.Config{})

	results := RunEval(context.Background(), map[string]StrategyFunc{
		"rules":   RulesStrategy(),
		"service": ServiceStrategy(svc),
	}, fixtures)

	byKey := map[string]*EvalResult{}
	for _, r := range results {
		byKey[r.Strategy+"/"+r.Fixture] = r
	}
	for _, f := range fixtures {
		rules, service := byKey["rules/"+f.Name], byKey["service/"+f.Name]
		if rules.OverallScore != service.OverallScore {
			t.Errorf("%s: rules score %.3f != service score %.3f", f.Name, rules.OverallScore, service.OverallScore)
		}
	}
}

func TestRunEval_CountsErrors(t *testing.T) {
	fixture := &Fixture{Name: "one", Cases: []Case{{Message: "x", Expected: Expected{Intent: extraction.IntentUnknown}}}}
	failing := func(context.Context, string) (Outcome, error) {
		return Outcome{}, errors.New("boom")
	}
	results := RunEval(context.Background(), map[string]StrategyFunc{"failing": failing}, []*Fixture{fixture})
	if results[0].Errors != 1 {
		t.Errorf("expected 1 error, got %d", results[0].Errors)
	}
}

func TestPrintSummary(t *testing.T) {
	results := []*EvalResult{
		{Strategy: "rules", Fixture: "expenses", Cases: 8, IntentAccuracy: 1, OverallScore: 0.9},
		{Strategy: "service", Fixture: "commands", Cases: 9, IntentAccuracy: 0.89, Misses: []string{"xin chào"}},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, results)
	out := buf.String()

	for _, want := range []string{"Strategy", "rules", "service", "expenses", "intent misses", "xin chào"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
