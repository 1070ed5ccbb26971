package main

import (
	"fmt"

	"mint-sale-go/internal/common"
	"mint-sale-go/internal/models"

	"github.com/spf13/cobra"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage sale sessions",
	}

	cmd.AddCommand(
		newSessionCreateCmd(a),
		newSessionShowCmd(a),
		newSessionListCmd(a),
		newSessionClearCmd(a),
	)

	return cmd
}

func newSessionCreateCmd(a *app) *cobra.Command {
	var (
		cfg      models.SessionConfig
		minPrice string
		rollover string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			price, err := parseAmount(minPrice)
			if err != nil {
				return err
			}
			cfg.MinPrice = price
			cfg.RolloverOption = models.RolloverOption(rollover)

			session, err := a.services.Engine.CreateSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), session)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ItemCollection, "collection", "", "Item collection minted by the session")
	flags.StringVar(&cfg.Coordinator, "coordinator", "", "Coordinator identity")
	flags.StringVar(&cfg.DepositAsset, "asset", "", "Deposit asset symbol")
	flags.Int64Var(&cfg.AllocationStart, "allocation-start", 0, "Allocation window start (unix seconds)")
	flags.Int64Var(&cfg.AllocationEnd, "allocation-end", 0, "Allocation window end (unix seconds)")
	flags.Int64Var(&cfg.MintingStart, "minting-start", 0, "Minting window start (unix seconds)")
	flags.Int64Var(&cfg.MintingEnd, "minting-end", 0, "Minting window end (unix seconds)")
	flags.Int64Var(&cfg.MaxSupply, "supply", 0, "Maximum number of items")
	flags.StringVar(&minPrice, "min-price", "1", "Minimum price per item in smallest units")
	flags.StringVar(&rollover, "rollover", string(models.RolloverClose), "Rollover option: restart, guaranteed_mint or close")

	for _, name := range []string{"collection", "coordinator", "asset"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newSessionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionId(args[0])
			if err != nil {
				return err
			}
			session, err := a.services.Engine.GetSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), session)
		},
	}
}

func newSessionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := a.services.Engine.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			for _, s := range sessions {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\n",
					s.Id, s.ItemCollection, s.DepositAsset, s.TotalDeposited.String(), common.FormatUnix(s.MintingEnd))
			}

			return nil
		},
	}
}

func newSessionClearCmd(a *app) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Remove a closed, drained session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionId(args[0])
			if err != nil {
				return err
			}
			if err := a.services.Engine.ClearSession(a.operationContext(cmd.Context()), caller, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %d cleared\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "Coordinator identity")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}
