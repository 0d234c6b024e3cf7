package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newAccountCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Print the account snapshot and holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			br, err := buildBroker(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Broker.Timeout)
			defer cancel()
			acct, err := br.Account(ctx)
			if err != nil {
				return err
			}
			holdings, err := br.Holdings(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Buying power: %s\n", acct.BuyingPower.StringFixed(2))
			fmt.Fprintf(out, "Equity:       %s\n", acct.TotalEquity.StringFixed(2))
			fmt.Fprintf(out, "Liquidity:    %s%%\n", acct.LiquidityRatio().Shift(2).StringFixed(1))
			if len(holdings) == 0 {
				fmt.Fprintln(out, "No holdings")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("Symbol", "Quantity", "Updated", "Instrument ID")
			for _, h := range holdings {
				t.Row(h.Symbol, h.Quantity.String(), h.UpdatedAt.Format("2006-01-02 15:04"), h.InstrumentID)
			}
			fmt.Fprintln(out, t)
			return nil
		},
	}
}
