// Package extraction turns free-form Vietnamese chat messages into typed
// transaction records, using a language model when one is reachable and
// deterministic keyword rules otherwise.
package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// AmountUnit names the cue that scaled a parsed amount.
type AmountUnit string

const (
	UnitNone      AmountUnit = ""
	UnitK         AmountUnit = "k"
	UnitNghin     AmountUnit = "nghìn"
	UnitTrieu     AmountUnit = "triệu"
	UnitThousands AmountUnit = "000"
)

// Amount is a monetary value in base currency units together with the text
// it was read from.
type Amount struct {
	Value float64
	Unit  AmountUnit
	Raw   string
}

// Bare reports whether the amount was read without any unit cue. Callers may
// treat bare amounts with less trust.
func (a Amount) Bare() bool {
	return a.Unit == UnitNone
}

type amountRule struct {
	unit       AmountUnit
	re         *regexp.Regexp
	multiplier float64
}

// amountRules are tried in order against the whole message; the first rule
// that matches anywhere wins.
var amountRules = []amountRule{
	{unit: UnitK, re: regexp.MustCompile(`(\d+(?:\.\d+)?)k(?:$|[^\p{L}\p{N}])`), multiplier: 1000},
	{unit: UnitNghin, re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:nghìn|ngàn)`), multiplier: 1000},
	{unit: UnitTrieu, re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*triệu`), multiplier: 1_000_000},
	{unit: UnitThousands, re: regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+|\d+000)(?:$|đ|[^\p{L}\p{N}.])`), multiplier: 1},
	{unit: UnitNone, re: regexp.MustCompile(`(\d+)(?:$|đ|[^\p{L}\p{N}])`), multiplier: 1},
}

var thousandsSuffixRe = regexp.MustCompile(`(\d+(?:\.\d+)?)k(?:$|[^\p{L}\p{N}])`)

// NormalizeAmount finds the first monetary amount in text and converts it to
// base currency units. "35k" and "35 nghìn" yield 35000, "2 triệu" yields
// 2000000, "35000" and "35.000" are taken literally.
func NormalizeAmount(text string) (Amount, bool) {
	lowered := normalizeText(text)
	for _, rule := range amountRules {
		m := rule.re.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		digits := m[1]
		if rule.unit == UnitThousands {
			digits = strings.ReplaceAll(digits, ".", "")
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil || v <= 0 {
			continue
		}
		return Amount{
			Value: math.Round(v * rule.multiplier),
			Unit:  rule.unit,
			Raw:   strings.TrimSpace(m[0]),
		}, true
	}
	return Amount{}, false
}

// RescanThousands looks only for a "<digits>k" cue. It repairs model output
// that dropped the thousands multiplier.
func RescanThousands(text string) (float64, bool) {
	m := thousandsSuffixRe.FindStringSubmatch(normalizeText(text))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return math.Round(v * 1000), true
}

// normalizeText composes Vietnamese diacritics (some keyboards emit them
// decomposed) and lower-cases the message.
func normalizeText(s string) string {
	return cases.Lower(language.Vietnamese).String(norm.NFC.String(s))
}

// hasKeyword reports whether kw occurs in text on word boundaries.
// text must already be normalized.
func hasKeyword(text, kw string) bool {
	return indexKeyword(text, kw) >= 0
}

func hasAnyKeyword(text string, kws []string) bool {
	for _, kw := range kws {
		if hasKeyword(text, kw) {
			return true
		}
	}
	return false
}

func firstKeyword(text string, kws []string) (string, bool) {
	for _, kw := range kws {
		if hasKeyword(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// tokenize splits a normalized message into words, keeping digits, dots and
// unit suffixes together so "35.000" and "1.5k" stay whole.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r) && r != '.'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// isAmountToken reports whether a token starts with a number ("35k", "200",
// "2tr").
func isAmountToken(tok string) bool {
	for _, r := range tok {
		return unicode.IsDigit(r)
	}
	return false
}
