//go:build ignore
// +build ignore

package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

type demoItem struct {
	description string
	minAmount   int
	maxAmount   int
	meal        extraction.MealTime
	account     extraction.AccountKind
}

var demoItems = []demoItem{
	{"bánh mì", 15, 30, extraction.MealMorning, extraction.AccountCash},
	{"phở", 35, 60, extraction.MealMorning, extraction.AccountCash},
	{"cà phê sữa", 20, 45, extraction.MealMorning, extraction.AccountBank},
	{"cơm tấm", 35, 55, extraction.MealMidday, extraction.AccountCash},
	{"bún chả", 40, 65, extraction.MealMidday, extraction.AccountCash},
	{"trà sữa", 30, 60, extraction.MealAfternoon, extraction.AccountBank},
	{"lẩu", 150, 400, extraction.MealEvening, extraction.AccountBank},
	{"bún bò huế", 45, 70, extraction.MealEvening, extraction.AccountCash},
	{"xăng", 60, 120, extraction.MealNone, extraction.AccountCash},
}

func main() {
	dbPath := os.Getenv("ASSISTANT_DB_PATH")
	if dbPath == "" {
		dbPath = "expense_tracker.db"
	}
	days := 14

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, dbPath, zerolog.Nop())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	log.Printf("🌱 Seeding %d days of transactions into %s", days, dbPath)

	cash, bank := 3_000_000.0, 20_000_000.0
	if _, err := st.SetBalance(ctx, &cash, &bank); err != nil {
		log.Fatalf("Failed to set balance: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	today := time.Now()
	count := 0
	for d := days - 1; d >= 0; d-- {
		day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, -d)

		for i := 0; i < 2+rng.Intn(3); i++ {
			item := demoItems[rng.Intn(len(demoItems))]
			amount := float64((item.minAmount + rng.Intn(item.maxAmount-item.minAmount+1)) * 1000)
			tx := &store.Transaction{
				Description: item.description,
				Amount:      amount,
				MealTime:    item.meal,
				FlowType:    extraction.FlowExpense,
				AccountKind: item.account,
				CreatedAt:   day.Add(time.Duration(7+rng.Intn(14))*time.Hour + time.Duration(rng.Intn(60))*time.Minute),
			}
			if err := addWithBalance(ctx, st, tx); err != nil {
				log.Fatalf("Failed to add transaction: %v", err)
			}
			count++
		}

		if day.Day() == 1 || d == days-1 {
			salary := &store.Transaction{
				Description: "lương",
				Amount:      15_000_000,
				FlowType:    extraction.FlowIncome,
				AccountKind: extraction.AccountBank,
				CreatedAt:   day.Add(9 * time.Hour),
			}
			if err := addWithBalance(ctx, st, salary); err != nil {
				log.Fatalf("Failed to add salary: %v", err)
			}
			count++
		}
	}

	b, err := st.GetBalance(ctx)
	if err != nil {
		log.Fatalf("Failed to read balance: %v", err)
	}
	log.Printf("✅ Created %d transactions", count)
	log.Printf("💰 Balance: cash %.0f, bank %.0f", b.Cash, b.Bank)
}

func addWithBalance(ctx context.Context, st store.Store, tx *store.Transaction) error {
	if err := st.AddTransaction(ctx, tx); err != nil {
		return err
	}
	delta := -tx.Amount
	if tx.IsIncome() {
		delta = tx.Amount
	}
	var err error
	if tx.AccountKind == extraction.AccountBank {
		_, err = st.AdjustBalance(ctx, 0, delta)
	} else {
		_, err = st.AdjustBalance(ctx, delta, 0)
	}
	return err
}
