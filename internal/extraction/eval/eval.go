// Package eval scores extraction strategies (rule-based, model-backed)
// against labelled chat messages.
package eval

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// Expected is the labelled answer for one message. Expense fields are only
// compared when Intent is add_expense.
type Expected struct {
	Intent      extraction.Intent      `json:"intent"`
	Description string                 `json:"description,omitempty"`
	Amount      float64                `json:"amount,omitempty"`
	MealTime    extraction.MealTime    `json:"meal_time,omitempty"`
	FlowType    extraction.FlowType    `json:"flow_type,omitempty"`
	AccountKind extraction.AccountKind `json:"account_kind,omitempty"`
}

// Outcome is what a strategy produced for one message.
type Outcome struct {
	Intent  extraction.Intent
	Expense *extraction.ExpenseFields
}

// EvalResult holds metrics from running one strategy over a fixture set.
type EvalResult struct {
	Strategy       string
	Fixture        string
	Cases          int
	IntentAccuracy float64
	AmountAccuracy float64
	FlowAccuracy   float64
	AccountAcc     float64
	MealAccuracy   float64
	DescriptionSim float64
	OverallScore   float64
	Degraded       int
	Duration       time.Duration
	Errors         int
	Misses         []string
}

// StrategyFunc extracts one message.
type StrategyFunc func(ctx context.Context, message string) (Outcome, error)

// RulesStrategy runs the rule-based fallback only.
func RulesStrategy() StrategyFunc {
	return func(_ context.Context, message string) (Outcome, error) {
		out := Outcome{Intent: extraction.FallbackIntent(message).Intent}
		if out.Intent == extraction.IntentAddExpense {
			out.Expense = extraction.FallbackExpense(message)
		}
		return out, nil
	}
}

// ServiceStrategy runs the full extraction service, model first.
func ServiceStrategy(svc *extraction.ExtractionService) StrategyFunc {
	return func(ctx context.Context, message string) (Outcome, error) {
		out := Outcome{Intent: svc.ClassifyIntent(ctx, message).Intent}
		if out.Intent == extraction.IntentAddExpense {
			out.Expense = svc.ExtractExpense(ctx, message)
		}
		return out, nil
	}
}

// --- Metric Functions ---

type tally struct {
	ok, total int
}

func (t *tally) add(ok bool) {
	t.total++
	if ok {
		t.ok++
	}
}

func (t tally) ratio() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.ok) / float64(t.total)
}

// ComputeMetrics scores outcomes against the fixture's cases, in order.
func ComputeMetrics(strategy string, fixture *Fixture, outcomes []Outcome, duration time.Duration) *EvalResult {
	result := &EvalResult{
		Strategy: strategy,
		Fixture:  fixture.Name,
		Cases:    len(fixture.Cases),
		Duration: duration,
	}

	var intent, amount, flow, account, meal tally
	var descSum float64
	for i, c := range fixture.Cases {
		if i >= len(outcomes) {
			intent.add(false)
			continue
		}
		got := outcomes[i]
		intentOK := got.Intent == c.Expected.Intent
		intent.add(intentOK)
		if !intentOK {
			result.Misses = append(result.Misses, c.Message)
		}
		if c.Expected.Intent != extraction.IntentAddExpense {
			continue
		}
		if got.Expense == nil {
			amount.add(false)
			flow.add(false)
			account.add(false)
			meal.add(false)
			continue
		}
		if got.Expense.Degraded {
			result.Degraded++
		}
		amount.add(amountMatch(got.Expense.Amount, c.Expected.Amount))
		flow.add(got.Expense.FlowType == c.Expected.FlowType)
		account.add(got.Expense.AccountKind == c.Expected.AccountKind)
		meal.add(got.Expense.MealTime == c.Expected.MealTime)
		descSum += descriptionSimilarity(got.Expense.Description, c.Expected.Description)
	}

	result.IntentAccuracy = intent.ratio()
	result.AmountAccuracy = amount.ratio()
	result.FlowAccuracy = flow.ratio()
	result.AccountAcc = account.ratio()
	result.MealAccuracy = meal.ratio()
	if amount.total > 0 {
		result.DescriptionSim = descSum / float64(amount.total)
	}

	result.OverallScore = 0.35*result.IntentAccuracy +
		0.25*result.AmountAccuracy +
		0.10*result.FlowAccuracy +
		0.10*result.AccountAcc +
		0.05*result.MealAccuracy +
		0.15*result.DescriptionSim

	return result
}

// amountMatch returns true if amounts are equal to the nearest đồng.
func amountMatch(a, b float64) bool {
	return math.Abs(a-b) < 0.5
}

// descriptionSimilarity returns a 0-1 similarity score using normalized Levenshtein distance.
func descriptionSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1.0
	}

	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	maxLen := max(lenA, lenB)

	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance between two strings, by rune.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr := make([]int, len(rb)+1)
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[len(rb)]
}

// --- Runner ---

// RunEval executes every strategy against every fixture. Results are
// ordered by fixture, then strategy name.
func RunEval(ctx context.Context, strategies map[string]StrategyFunc, fixtures []*Fixture) []*EvalResult {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*EvalResult
	for _, fixture := range fixtures {
		for _, name := range names {
			strategy := strategies[name]
			outcomes := make([]Outcome, 0, len(fixture.Cases))
			errs := 0

			start := time.Now()
			for _, c := range fixture.Cases {
				out, err := strategy(ctx, c.Message)
				if err != nil {
					errs++
				}
				outcomes = append(outcomes, out)
			}

			result := ComputeMetrics(name, fixture, outcomes, time.Since(start))
			result.Errors = errs
			results = append(results, result)
		}
	}
	return results
}

// --- Summary Printer ---

// PrintSummary outputs a formatted comparison table to an io.Writer.
func PrintSummary(w io.Writer, results []*EvalResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Strategy\tFixture\tCases\tIntent%\tAmt%\tFlow%\tAcct%\tMeal%\tDesc~\tScore\tOffline\tTime\tErrors")
	fmt.Fprintln(tw, "--------\t-------\t-----\t-------\t----\t-----\t-----\t-----\t-----\t-----\t-------\t----\t------")

	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f%%\t%.0f%%\t%.0f%%\t%.0f%%\t%.0f%%\t%.2f\t%.3f\t%d\t%s\t%d\n",
			r.Strategy,
			r.Fixture,
			r.Cases,
			r.IntentAccuracy*100,
			r.AmountAccuracy*100,
			r.FlowAccuracy*100,
			r.AccountAcc*100,
			r.MealAccuracy*100,
			r.DescriptionSim,
			r.OverallScore,
			r.Degraded,
			r.Duration.Round(time.Millisecond),
			r.Errors,
		)
	}
	tw.Flush()

	for _, r := range results {
		if len(r.Misses) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s/%s intent misses:\n", r.Strategy, r.Fixture)
		for _, m := range r.Misses {
			fmt.Fprintf(w, "  - %s\n", truncate(m, 60))
		}
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
