package extraction

import (
	"fmt"
	"testing"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     float64
		wantUnit AmountUnit
		wantOK   bool
	}{
		{name: "k suffix", input: "trưa ăn phở 35k", want: 35000, wantUnit: UnitK, wantOK: true},
		{name: "upper case K", input: "Cà phê 25K", want: 25000, wantUnit: UnitK, wantOK: true},
		{name: "decimal k", input: "bánh mì 1.5k", want: 1500, wantUnit: UnitK, wantOK: true},
		{name: "large k", input: "lãnh lương 5000k", want: 5000000, wantUnit: UnitK, wantOK: true},
		{name: "nghìn", input: "trà đá 5 nghìn", want: 5000, wantUnit: UnitNghin, wantOK: true},
		{name: "ngàn", input: "xôi 10 ngàn", want: 10000, wantUnit: UnitNghin, wantOK: true},
		{name: "triệu", input: "tiền nhà 3 triệu", want: 3000000, wantUnit: UnitTrieu, wantOK: true},
		{name: "literal thousands", input: "bún chả 45000", want: 45000, wantUnit: UnitThousands, wantOK: true},
		{name: "dotted thousands", input: "bún chả 45.000đ", want: 45000, wantUnit: UnitThousands, wantOK: true},
		{name: "bare digits", input: "gửi xe 5", want: 5, wantUnit: UnitNone, wantOK: true},
		{name: "k wins over bare number earlier in text", input: "2 tô phở 60k", want: 60000, wantUnit: UnitK, wantOK: true},
		{name: "k inside a word is not a unit", input: "mua 3kg gạo", wantOK: false},
		{name: "digits glued to a word are skipped", input: "mua 2kg cam hết 50", want: 50, wantUnit: UnitNone, wantOK: true},
		{name: "bare digits with dong sign", input: "gửi xe 5đ", want: 5, wantUnit: UnitNone, wantOK: true},
		{name: "decomposed diacritics", input: "tra\u0300 \u0111a\u0301 5 nghi\u0300n", want: 5000, wantUnit: UnitNghin, wantOK: true},
		{name: "no amount", input: "ăn phở", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeAmount(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeAmount(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Value != tt.want {
				t.Errorf("NormalizeAmount(%q) = %v, want %v", tt.input, got.Value, tt.want)
			}
			if got.Unit != tt.wantUnit {
				t.Errorf("NormalizeAmount(%q) unit = %q, want %q", tt.input, got.Unit, tt.wantUnit)
			}
		})
	}
}

func TestNormalizeAmount_RoundTrip(t *testing.T) {
	for _, n := range []int{1, 5, 12, 35, 100, 250, 999, 5000} {
		cases := map[string]float64{
			fmt.Sprintf("%dk", n):           float64(n) * 1000,
			fmt.Sprintf("%d000", n):         float64(n) * 1000,
			fmt.Sprintf("%d nghìn", n):      float64(n) * 1000,
			fmt.Sprintf("%d triệu", n):      float64(n) * 1_000_000,
			fmt.Sprintf("ăn %dk", n):        float64(n) * 1000,
			fmt.Sprintf("%d triệu đồng", n): float64(n) * 1_000_000,
		}
		for input, want := range cases {
			got, ok := NormalizeAmount(input)
			if !ok || got.Value != want {
				t.Errorf("NormalizeAmount(%q) = %v (ok=%v), want %v", input, got.Value, ok, want)
			}
		}
	}
}

func TestAmountBare(t *testing.T) {
	got, _ := NormalizeAmount("gửi xe 5")
	if !got.Bare() {
		t.Errorf("NormalizeAmount(%q).Bare() = false, want true", "gửi xe 5")
	}
	got, _ = NormalizeAmount("gửi xe 5k")
	if got.Bare() {
		t.Errorf("NormalizeAmount(%q).Bare() = true, want false", "gửi xe 5k")
	}
}

func TestRescanThousands(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"ăn phở 35k", 35000, true},
		{"cà phê 2.5k", 2500, true},
		{"ck 200", 0, false},
		{"mua 2kg cam hết 50", 0, false},
		{"không có số", 0, false},
	}
	for _, tt := range tests {
		got, ok := RescanThousands(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("RescanThousands(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHasKeyword(t *testing.T) {
	tests := []struct {
		text string
		kw   string
		want bool
	}{
		{"mua cà phê 25k ck", "ck", true},
		{"check số dư", "ck", false},
		{"ăn phở", "ăn", true},
		{"bún chả ăn liền", "chả", true},
		{"tiền mặt=500k", "=", true},
		{"cập nhật tiền mặt", "tiền mặt", true},
		{"tiền mặtt", "tiền mặt", false},
		{"", "xóa", false},
	}
	for _, tt := range tests {
		if got := hasKeyword(tt.text, tt.kw); got != tt.want {
			t.Errorf("hasKeyword(%q, %q) = %v, want %v", tt.text, tt.kw, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("trưa, ăn phở 35.000đ!")
	want := []string{"trưa", "ăn", "phở", "35.000đ"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
