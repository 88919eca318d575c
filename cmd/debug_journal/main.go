package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/momentum_pulse/internal/infrastructure/storage"
)

func main() {
	path := flag.String("db", "journal.db", "trade journal path")
	limit := flag.Int("limit", 20, "records to print")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*path)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	trades, err := store.ListTrades(context.Background(), *limit)
	if err != nil {
		fmt.Printf("Failed to list trades: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d trades:\n", len(trades))
	for _, t := range trades {
		mode := "live"
		if t.DryRun {
			mode = "dry"
		}
		fmt.Printf("- %s %-5s %-4s %s qty=%d price=%.2f sl=%.2f reason=%s order=%s [%s]\n",
			t.CreatedAt.Format("2006-01-02 15:04:05"), t.Event, t.Side, t.TradingSymbol,
			t.Quantity, t.Price, t.StopLevel, t.Reason, t.OrderID, mode)
	}
}
