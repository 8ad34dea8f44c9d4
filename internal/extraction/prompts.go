package extraction

import "strings"

const promptPreamble = "Bạn là trợ lý quản lý chi tiêu cá nhân bằng tiếng Việt. " +
	"Chỉ trả về JSON khớp với JSON Schema được cung cấp, không giải thích, không markdown. " +
	"Nếu một trường không có thông tin, bỏ qua trường đó. " +
	"Số tiền luôn quy về đồng: 35k = 35000, 35 nghìn = 35000, 2 triệu = 2000000. " +
	"confidence là số từ 0 đến 1."

var kindInstructions = map[SchemaKind][]string{
	KindIntent: {
		"Phân loại ý định của câu chat vào một trong các intent:",
		"add_expense: thêm giao dịch chi tiêu hoặc thu nhập (\"ăn phở 30k\", \"lãnh lương 5000k\").",
		"delete_expense: xóa giao dịch (\"xóa phở\", \"hủy giao dịch gần nhất\").",
		"update_balance: cập nhật số dư tiền mặt hoặc tài khoản (\"cập nhật tiền mặt 200k\").",
		"view_statistics: xem thống kê (\"thống kê hôm nay\", \"báo cáo tuần này\").",
		"unknown: không rõ ý định.",
		"analysis là một câu ngắn giải thích lý do.",
	},
	KindExpense: {
		"Trích xuất một giao dịch từ câu chat.",
		"description: tên món hoặc nội dung giao dịch, ngắn gọn, không chứa số tiền.",
		"amount: số tiền tính bằng đồng.",
		"meal_time: morning (sáng), midday (trưa), afternoon (chiều), evening (tối); bỏ qua nếu không nhắc tới.",
		"flow_type: income khi là lương, thưởng, nhận tiền; ngược lại là expense.",
		"account_kind: bank khi nhắc tới tài khoản, ngân hàng, ck, chuyển khoản; ngược lại là cash.",
	},
	KindDelete: {
		"Trích xuất tiêu chí để tìm giao dịch cần xóa.",
		"description: tên món hoặc nội dung giao dịch nếu có.",
		"amount: số tiền tính bằng đồng nếu có.",
		"meal_time: morning, midday, afternoon hoặc evening nếu có.",
		"delete_most_recent: true khi người dùng muốn xóa giao dịch gần nhất mà không nêu cụ thể.",
	},
	KindBalance: {
		"Trích xuất yêu cầu cập nhật số dư.",
		"operation: set khi đặt số dư tuyệt đối (\"tiền mặt là 500k\", \"cập nhật tài khoản 2 triệu\"),",
		"adjust khi cộng hoặc trừ (\"nhận thêm 200k vào tài khoản\", \"mất 50k tiền mặt\").",
		"Với set dùng cash_balance, bank_balance. Với adjust dùng cash_delta, bank_delta, số âm khi giảm.",
		"description: mô tả ngắn thay đổi.",
	},
	KindStatistics: {
		"Xác định khoảng thời gian thống kê.",
		"period: today (hôm nay, day_count 1), this_week (tuần này, day_count 7), this_month (tháng này, day_count 30),",
		"custom khi người dùng nêu số ngày (\"10 ngày qua\" → day_count 10).",
	},
}

// Instructions returns the system instruction sent to the model for kind.
func Instructions(kind SchemaKind) string {
	parts := append([]string{promptPreamble}, kindInstructions[kind]...)
	return strings.Join(parts, "\n")
}
