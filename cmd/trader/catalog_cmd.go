package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"PresenceTrader/internal/model"
)

func newCatalogCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [SYMBOL]",
		Short: "List the instrument catalog or show one instrument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("#", "Symbol", "Description", "Sector", "Market cap", "Dividend yield")
			row := func(i int, inst model.Instrument) {
				t.Row(strconv.Itoa(i), inst.Symbol, inst.Description, inst.Sector,
					inst.MarketCap.String(), inst.DividendYield.String())
			}

			if len(args) == 1 {
				i, err := cat.Find(args[0])
				if err != nil {
					return err
				}
				inst, _ := cat.Get(i)
				row(i, inst)
			} else {
				for i := 0; i < cat.Size(); i++ {
					inst, _ := cat.Get(i)
					row(i, inst)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
}
