package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/service"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

var title = cases.Title(language.Vietnamese)

func printReply(w io.Writer, r *service.Reply) {
	if r.Offline {
		fmt.Fprintln(w, "[offline] Không có kết nối tới mô hình, đang dùng quy tắc từ khóa.")
	}
	if !r.Success {
		fmt.Fprintln(w, r.Message)
		if r.Suggestion != "" {
			fmt.Fprintln(w, "Gợi ý: "+r.Suggestion)
		}
		return
	}

	fmt.Fprintln(w, r.Message)
	if r.Note != "" {
		fmt.Fprintln(w, "Lưu ý: "+r.Note)
	}
	if r.Quick != nil {
		printQuickStats(w, r)
	}
	if r.Report != nil {
		printReport(w, r.Report)
	}
	if r.Balance != nil {
		fmt.Fprintf(w, "Số dư hiện tại: Tiền mặt %s | Tài khoản %s\n",
			service.FormatVND(r.Balance.Cash), service.FormatVND(r.Balance.Bank))
	}
}

func printQuickStats(w io.Writer, r *service.Reply) {
	q := r.Quick
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	label, suffix := "Giao dịch này", ""
	if r.Route == extraction.RouteDeleteExpense {
		label, suffix = "Đã xóa", " còn"
	}
	fmt.Fprintf(tw, "%s\t%s\n", label, service.FormatVND(q.Amount))
	fmt.Fprintf(tw, "Hôm nay%s\t%s (%d lần)\n", suffix, service.FormatVND(q.TodayTotal), q.TodayCount)
	fmt.Fprintf(tw, "Tuần này%s\t%s (%d lần)\n", suffix, service.FormatVND(q.WeekTotal), q.WeekCount)
}

func printReport(w io.Writer, r *service.Report) {
	s := r.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Thời gian\t%s\n", title.String(r.Period))
	fmt.Fprintf(tw, "Số giao dịch\t%d\n", s.Count)
	fmt.Fprintf(tw, "Tổng chi tiêu\t%s\n", service.FormatVND(s.TotalSpent))
	if s.Count > 0 {
		fmt.Fprintf(tw, "Trung bình/lần\t%s\n", service.FormatVND(s.AvgSpent))
		fmt.Fprintf(tw, "Thấp nhất\t%s\n", service.FormatVND(s.MinSpent))
		fmt.Fprintf(tw, "Cao nhất\t%s\n", service.FormatVND(s.MaxSpent))
	}
	if s.IncomeCount > 0 {
		fmt.Fprintf(tw, "Thu nhập\t%s (%d lần)\n", service.FormatVND(s.TotalIncome), s.IncomeCount)
	}
	tw.Flush()

	if len(r.Daily) > 1 {
		fmt.Fprintln(w, "\nTheo ngày:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, d := range r.Daily {
			fmt.Fprintf(tw, "%s\t%s\t%d\t\n", d.Day.Format("02/01"), service.FormatVND(d.Spent), d.Count)
		}
		tw.Flush()
	}
	if len(r.Recent) > 0 {
		fmt.Fprintln(w, "\nGiao dịch gần đây:")
		printTransactions(w, r.Recent)
	}
}

func printTransactions(w io.Writer, txs []*store.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "STT\tNgày\tMô tả\tSố tiền\tBữa\tTài khoản")
	for i, tx := range txs {
		amount := service.FormatVND(tx.Amount)
		if tx.IsIncome() {
			amount = "+" + amount
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, tx.CreatedAt.Local().Format(time.DateOnly), tx.Description, amount, tx.MealTime, tx.AccountKind)
	}
}

func printBalance(w io.Writer, b *store.Balance) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	fmt.Fprintf(tw, "Tiền mặt\t%s\t\n", service.FormatVND(b.Cash))
	fmt.Fprintf(tw, "Tài khoản ngân hàng\t%s\t\n", service.FormatVND(b.Bank))
	fmt.Fprintf(tw, "Tổng cộng\t%s\t\n", service.FormatVND(b.Total()))
}
