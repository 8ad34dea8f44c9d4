package extraction

import (
	"strings"
	"unicode/utf8"
)

// Keyword tables for the rule-based path. Entries are lower-case NFC and are
// matched on word boundaries.
var (
	deleteKeywords = []string{"xóa", "xoá", "hủy", "huỷ", "bỏ", "delete", "remove"}

	// deleteMarkers are stripped before looking for delete criteria.
	deleteMarkers = []string{"xóa", "xoá", "hủy", "huỷ", "bỏ", "delete", "remove", "giao dịch", "transaction"}

	mostRecentMarkers = []string{"gần nhất", "gần đây nhất", "cuối cùng", "vừa rồi", "vừa nãy", "recent", "last", "latest"}

	statsKeywords = []string{"thống kê", "báo cáo", "tổng kết", "xem chi tiêu", "statistic", "statistics", "report"}

	periodKeywords = []string{"hôm nay", "tuần", "tháng", "today", "daily", "week", "weekly", "month", "monthly"}

	balanceKeywords = []string{"số dư", "balance"}

	balanceUpdateVerbs = []string{"cập nhật", "update", "đặt lại", "thiết lập", "set"}

	balanceTargets = []string{"tiền", "tài khoản", "số dư", "account", "cash"}

	balanceAccountTargets = []string{"tiền mặt", "tài khoản", "cash", "account"}

	balanceAssignments = []string{"là", "thành", "chỉ có", "còn", "="}

	incomeKeywords = []string{"tiền lương", "thu nhập", "được trả", "lãnh", "lương", "nhận", "thưởng", "salary", "income"}

	expenseKeywords = []string{"ăn", "uống", "mua", "chi", "tiêu", "trả", "đóng", "nạp", "order", "gọi", "spend", "mất"}

	// descriptionVerbs introduce the thing that was bought.
	descriptionVerbs = map[string]bool{
		"ăn": true, "uống": true, "mua": true, "order": true,
		"gọi": true, "trả": true, "đóng": true, "nạp": true,
	}

	incomeDescriptions = []string{"tiền lương", "thu nhập", "nhận tiền", "lương", "thưởng"}

	transferKeywords = []string{"ck", "chuyển khoản"}
	bankKeywords     = []string{"tài khoản", "ngân hàng", "chuyển khoản", "ck", "bank", "banking", "atm", "account"}
	cashKeywords     = []string{"tiền mặt", "tiền lẻ", "tiền túi", "cash"}

	balanceSetMarkers    = []string{"chỉ có", "đặt lại", "thiết lập", "cập nhật", "reset", "là", "thành", "còn", "đặt", "set", "="}
	balanceAdjustMarkers = []string{"lãnh", "nhận", "thêm", "cộng", "trừ", "chi", "tiêu", "mất", "trả", "rút"}
	outflowKeywords      = []string{"chi", "tiêu", "mất", "trả", "trừ", "rút", "spend"}

	todayKeywords = []string{"hôm nay", "today", "daily"}
	weekKeywords  = []string{"tuần", "week", "weekly"}
	monthKeywords = []string{"tháng", "month", "monthly"}
)

type mealRule struct {
	meal     MealTime
	keywords []string
}

var mealRules = []mealRule{
	{meal: MealMorning, keywords: []string{"buổi sáng", "sáng", "breakfast"}},
	{meal: MealMidday, keywords: []string{"buổi trưa", "trưa", "lunch"}},
	{meal: MealAfternoon, keywords: []string{"buổi chiều", "chiều", "afternoon"}},
	{meal: MealEvening, keywords: []string{"buổi tối", "tối", "đêm", "dinner", "supper"}},
}

// phraseStops end a description phrase.
var phraseStops = map[string]bool{
	"nhưng": true, "và": true, "vào": true, "từ": true, "bằng": true, "với": true,
	"ở": true, "cho": true, "của": true, "lúc": true, "hết": true, "giá": true,
	"ck": true, "bank": true, "cash": true, "atm": true,
	"hôm": true, "nay": true, "qua": true,
	"buổi": true, "sáng": true, "trưa": true, "chiều": true, "tối": true, "đêm": true,
	"lunch": true, "dinner": true, "breakfast": true, "supper": true,
	"đ": true, "k": true, "vnd": true, "đồng": true, "nghìn": true, "ngàn": true, "triệu": true,
}

// phraseStopPairs end a description phrase when both words appear in order.
var phraseStopPairs = map[string]string{
	"tiền":   "mặt",
	"tài":    "khoản",
	"chuyển": "khoản",
	"ngân":   "hàng",
}

// contentStopwords are never picked as a description on their own.
var contentStopwords = func() map[string]bool {
	words := map[string]bool{
		"lãnh": true, "nhận": true, "được": true, "chi": true, "tiêu": true, "mất": true,
		"spend": true, "tiền": true, "mặt": true, "tài": true, "khoản": true, "chuyển": true,
		"ngân": true, "hàng": true, "thêm": true, "xóa": true, "xoá": true, "hủy": true,
		"huỷ": true, "bỏ": true, "giao": true, "dịch": true, "delete": true, "remove": true,
		"gần": true, "nhất": true, "cuối": true, "cùng": true, "vừa": true, "rồi": true,
		"recent": true, "last": true, "latest": true, "món": true, "cái": true, "đi": true,
		"tôi": true, "mình": true, "em": true, "anh": true, "đã": true, "có": true,
	}
	for w := range descriptionVerbs {
		words[w] = true
	}
	for w := range phraseStops {
		words[w] = true
	}
	return words
}()

// removeKeywords blanks out every word-bounded occurrence of the keywords.
func removeKeywords(text string, kws []string) string {
	for _, kw := range kws {
		for {
			i := indexKeyword(text, kw)
			if i < 0 {
				break
			}
			text = text[:i] + " " + text[i+len(kw):]
		}
	}
	return strings.TrimSpace(text)
}

// indexKeyword finds kw in text. Boundaries are only enforced on the sides
// of kw that are letters or digits, so "=" matches inside "tiền mặt=500k".
func indexKeyword(text, kw string) int {
	if kw == "" {
		return -1
	}
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], kw)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(kw)
		if (!isWordRune(first) || boundaryBefore(text, start)) && (!isWordRune(last) || boundaryAfter(text, end)) {
			return start
		}
		offset = start + 1
	}
	return -1
}
