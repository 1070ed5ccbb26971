package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRolloverCmd(a *app) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "rollover <session-id>",
		Short: "Apply the session's rollover option once minting has ended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionId(args[0])
			if err != nil {
				return err
			}
			session, err := a.services.Engine.Rollover(a.operationContext(cmd.Context()), caller, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), session)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "Coordinator identity")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func newRewardsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewards",
		Short: "Coordinator rewards",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <coordinator> <asset>",
			Short: "Show accrued rewards",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := a.services.Engine.Rewards(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s rewards: %s\n", args[0], args[1], amount.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "withdraw <coordinator> <asset>",
			Short: "Pay out accrued rewards",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := a.services.Engine.WithdrawRewards(a.operationContext(cmd.Context()), args[0], args[1])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s rewards paid: %s\n", args[0], args[1], amount.String())
				return nil
			},
		},
	)

	return cmd
}
