package main

import (
	"context"
	"flag"
	"fmt"

	"mint-sale-go/internal/api"
	"mint-sale-go/internal/common"
	"mint-sale-go/internal/config"
	"mint-sale-go/internal/models"

	"go.uber.org/zap"
)

func phase(s models.Session, now int64) string {
	switch {
	case s.Closed:
		return "closed"
	case now < s.AllocationStart:
		return "pending"
	case s.InAllocation(now):
		return "allocation"
	case s.InMinting(now):
		return "minting"
	case now > s.MintingEnd:
		return "awaiting rollover"
	default:
		return "between windows"
	}
}

func printReport(report *models.SessionReport, now int64) {
	s := report.Session
	fmt.Printf("\n┌─ Session %d: %s (%s)\n", s.Id, s.ItemCollection, phase(s, now))
	fmt.Printf("│  Coordinator: %s   Asset: %s   Rollover: %s   Epoch: %d\n",
		s.Coordinator, s.DepositAsset, s.RolloverOption, s.Epoch)
	fmt.Printf("│  Allocation: %s .. %s\n", common.FormatUnix(s.AllocationStart), common.FormatUnix(s.AllocationEnd))
	fmt.Printf("│  Minting:    %s .. %s\n", common.FormatUnix(s.MintingStart), common.FormatUnix(s.MintingEnd))
	fmt.Printf("│  Deposited: %s   Min price: %s   Result price: %s\n",
		s.TotalDeposited.String(), s.MinPrice.String(), s.ResultPrice.String())
	fmt.Printf("│  Supply left: %d   Items issued: %d   Rewards: %s\n",
		s.MaxSupply, report.ItemsIssued, report.Rewards.String())
	for user, count := range report.MintedBy {
		fmt.Printf("│  Minted by %s: %d\n", user, count)
	}
	if report.Escrow != nil {
		fmt.Printf("│  Escrow balance: %s\n", report.Escrow.String())
	}
	common.PrintBoxSeparator(78)

	if len(report.Deposits) == 0 {
		fmt.Printf("%s (no deposits)\n", common.BoxPrefix(len(report.RecentEntries) == 0))
	}
	for i, d := range report.Deposits {
		isLast := i == len(report.Deposits)-1 && len(report.RecentEntries) == 0
		fmt.Printf("%s %-20s: %20s (penalty %s)\n",
			common.BoxPrefix(isLast), d.UserId, d.Amount.String(), d.LossPenalty.String())
	}

	for i, e := range report.RecentEntries {
		isLast := i == len(report.RecentEntries)-1
		fmt.Printf("%s %s %-9s %-15s amount=%s payout=%s forfeited=%s items=%d\n",
			common.BoxPrefix(isLast), common.FormatUnix(e.Timestamp), e.EntryType, e.UserId,
			e.Amount.String(), e.Payout.String(), e.Forfeited.String(), e.Items)
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	sessionFlag := flag.Int64("id", 0, "Report a single session (default: all sessions)")
	recentFlag := flag.Int("recent", 5, "Number of recent sale entries to show per session")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	reports := api.NewReportService(services.Store, services.Assets)
	if err := reports.HealthCheck(ctx); err != nil {
		zap.L().Fatal("Sale store is not healthy", zap.Error(err))
	}

	var ids []int64
	if *sessionFlag > 0 {
		ids = []int64{*sessionFlag}
	} else {
		sessions, err := services.Engine.ListSessions(ctx)
		if err != nil {
			zap.L().Fatal("Failed to list sessions", zap.Error(err))
		}
		for _, s := range sessions {
			ids = append(ids, s.Id)
		}
	}

	now := services.Engine.Now()
	common.PrintHeader(fmt.Sprintf("SALE SESSION REPORT (%s)", common.FormatUnix(now)), common.WideWidth)

	var reported int
	for _, id := range ids {
		report, err := reports.SessionReport(ctx, id, *recentFlag)
		if err != nil {
			zap.L().Error("Failed to build session report", zap.Int64("session_id", id), zap.Error(err))
			continue
		}
		printReport(report, now)
		reported++
	}

	rewards, err := services.Store.ListRewards(ctx)
	if err != nil {
		zap.L().Error("Failed to list coordinator rewards", zap.Error(err))
	}
	for _, r := range rewards {
		fmt.Printf("\nRewards: %-20s %-8s %s\n", r.Coordinator, r.Asset, r.Balance.String())
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d sessions reported, %d reward balances", reported, len(rewards)), common.WideWidth)
}
