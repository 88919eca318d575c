package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vitos/momentum_pulse/internal/config"
	"github.com/vitos/momentum_pulse/internal/infrastructure/broker"
)

// check_broker verifies AliceBlue credentials without placing orders.
func main() {
	symbol := "NIFTY"
	if len(os.Args) > 1 {
		symbol = os.Args[1]
	}

	// Live credentials are required even if the bot itself runs dry.
	os.Setenv("DRY_RUN", "false")
	cfg, err := config.Load("config/config.yaml", ".env")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing AliceBlue Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Broker.BaseURL)
	fmt.Printf("User: %s\n", cfg.Broker.UserID)

	adapter := broker.NewAliceBlueAdapter(broker.Credentials{
		AppID:       cfg.Broker.AppID,
		APIKey:      cfg.Broker.APIKey,
		AccessToken: cfg.Broker.AccessToken,
		UserID:      cfg.Broker.UserID,
	}, cfg.Broker.BaseURL, cfg.BrokerTimeout(), nil)
	ctx := context.Background()

	failed := false

	inst, err := adapter.LookupInstrument(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to look up %s: %v\n", symbol, err)
		failed = true
	} else {
		fmt.Printf("✅ %s token: %s (%s)\n", symbol, inst.Token, inst.Exchange)
	}

	positions, err := adapter.GetPositions(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get positions: %v\n", err)
		failed = true
	} else {
		fmt.Printf("✅ Open positions: %d\n", len(positions))
		for _, p := range positions {
			fmt.Printf("   - %s qty=%d avg=%.2f ltp=%.2f pnl=%.2f\n", p.TradingSymbol, p.Quantity, p.AveragePrice, p.LastPrice, p.UnrealizedPnL)
		}
	}

	if failed {
		os.Exit(1)
	}
}
