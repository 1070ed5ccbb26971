package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"mint-sale-go/internal/common"
	"mint-sale-go/internal/config"
	"mint-sale-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	open      func(ctx context.Context) (*common.Services, error)
	services  *common.Services
	reference string
}

func Execute() error {
	a := &app{open: openServices}
	defer a.close()
	return newRootCmd(a).ExecuteContext(context.Background())
}

func openServices(ctx context.Context) (*common.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return common.InitializeServices(ctx, cfg)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sale",
		Short:         "Operate pro-rata mint sale sessions",
		Long:          "sale drives the mint sale engine: create sessions, move deposits, mint or forgo, apply rollovers and withdraw coordinator rewards.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.services != nil {
				return nil
			}
			services, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			a.services = services
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.reference, "reference", "", "External reference recorded with the ledger transfer (default: random)")

	rootCmd.AddCommand(
		newSessionCmd(a),
		newFundCmd(a),
		newDepositCmd(a),
		newWithdrawCmd(a),
		newMintCmd(a),
		newForgoCmd(a),
		newRolloverCmd(a),
		newRewardsCmd(a),
	)

	return rootCmd
}

func (a *app) close() {
	if a.services != nil {
		a.services.Close()
		a.services = nil
	}
}

// operationContext tags engine calls with the cli source and the --reference flag.
func (a *app) operationContext(ctx context.Context) context.Context {
	return models.WithOperationContext(ctx, &models.OperationContext{
		Reference: a.reference,
		Source:    "cli",
	})
}

func parseSessionId(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func parseAmount(arg string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	return amount, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		zap.L().Error("Error marshaling output to JSON", zap.Error(err))
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
