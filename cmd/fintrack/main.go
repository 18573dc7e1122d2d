// fintrack prints composite financial views for one user as JSON. It is
// the operational entry point for inspecting a tracker database: the
// dashboard, the real-time metrics or the obligation summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	userID := flag.String("user", "", "user id to report on")
	view := flag.String("view", "dashboard", "view to print: dashboard, metrics or obligations")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: fintrack -user <id> [-view dashboard|metrics|obligations]")
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	positions := cache.NewLRUCache[services.FinancialPosition](cfg.PositionCacheSize, cfg.PositionCacheTTL)
	txSvc := services.NewTransactionService(repo, nil, logger)
	billSvc := services.NewBillService(repo, logger, cfg.DueSoonHorizonDays)
	recurringSvc := services.NewRecurringService(repo, txSvc, logger)
	goalSvc := services.NewGoalService(repo, logger)
	summarySvc := services.NewSummaryService(txSvc, billSvc, recurringSvc, goalSvc, repo, positions, logger)
	txSvc.SetMutationHook(summarySvc.Invalidate)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out any
	var err error
	switch *view {
	case "dashboard":
		out, err = summarySvc.DashboardFor(ctx, *userID)
	case "metrics":
		out, err = summarySvc.RealTimeMetricsFor(ctx, *userID)
	case "obligations":
		out, err = txSvc.Summary(ctx, *userID)
	default:
		fmt.Fprintf(os.Stderr, "unknown view %q\n", *view)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("failed to build view", log.FieldError, err, log.FieldUserID, *userID)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("failed to encode output", log.FieldError, err)
		os.Exit(1)
	}
}
