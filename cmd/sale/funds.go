package main

import (
	"context"
	"fmt"

	"mint-sale-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type userAmountFunc func(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (any, error)

// newUserAmountCmd builds a "<verb> <session-id> <user> <amount>" command.
func newUserAmountCmd(a *app, use, short string, run func(a *app) userAmountFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id> <user> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionId(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}

			result, err := run(a)(a.operationContext(cmd.Context()), args[1], id, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newFundCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <user> <asset> <amount>",
		Short: "Credit a user's asset ledger account from outside the sale",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			reference := a.reference
			if reference == "" {
				reference = uuid.New().String()
			}
			if err := a.services.Assets.Fund(cmd.Context(), args[0], args[1], amount, reference); err != nil {
				return err
			}
			balance, err := a.services.Assets.GetBalance(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s balance: %s\n", args[0], args[1], balance.String())
			return nil
		},
	}
}

func newDepositCmd(a *app) *cobra.Command {
	return newUserAmountCmd(a, "deposit", "Deposit into a session's allocation", func(a *app) userAmountFunc {
		return func(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (any, error) {
			if err := a.services.Engine.Deposit(ctx, userId, sessionId, amount); err != nil {
				return nil, err
			}
			return a.services.Engine.GetDeposit(ctx, userId, sessionId)
		}
	})
}

func newWithdrawCmd(a *app) *cobra.Command {
	return newUserAmountCmd(a, "withdraw", "Withdraw a deposit, net of the loss penalty", func(a *app) userAmountFunc {
		return func(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (any, error) {
			return a.services.Engine.Withdraw(ctx, userId, sessionId, amount)
		}
	})
}

func newMintCmd(a *app) *cobra.Command {
	return newUserAmountCmd(a, "mint", "Mint items at the clearing price", func(a *app) userAmountFunc {
		return func(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (any, error) {
			result, err := a.services.Engine.Mint(ctx, userId, sessionId, amount)
			if err != nil {
				return nil, err
			}
			return struct {
				*models.MintResult
				ItemIds []int64 `json:"item_ids"`
			}{result, result.ItemIds()}, nil
		}
	})
}

func newForgoCmd(a *app) *cobra.Command {
	return newUserAmountCmd(a, "forgo", "Forgo minting and take the deposit back", func(a *app) userAmountFunc {
		return func(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (any, error) {
			return a.services.Engine.Forgo(ctx, userId, sessionId, amount)
		}
	})
}
