package cmd

import (
	"fmt"
	"os"

	"blockwatch/internal/cli"
	"blockwatch/internal/model"
	"blockwatch/internal/pipeline"

	"github.com/spf13/cobra"
)

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Monthly usage report",
	RunE:  runMonthly,
}

func init() {
	rootCmd.AddCommand(monthlyCmd)
}

func runMonthly(_ *cobra.Command, _ []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	sessions, err := rc.filteredSessions()
	if err != nil {
		return err
	}

	months := pipeline.Monthly(sessions, rc.loc)
	months = pipeline.Recent(months, flagRecent)
	months = pipeline.Reorder(months, rc.order)

	if flagJSON {
		return cli.WriteJSON(os.Stdout, cli.MonthlyView(months, flagBreakdown))
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("MONTHLY USAGE"))
	fmt.Println()

	var total model.TokenCounts
	var totalCost float64
	rows := make([][]string, 0, len(months)+2)
	for _, m := range months {
		total.Add(m.Tokens)
		totalCost += m.CostUSD
		rows = append(rows, []string{
			m.Month,
			cli.FormatNumber(int64(m.Entries)),
			cli.FormatTokens(m.Tokens.Input),
			cli.FormatTokens(m.Tokens.Output),
			cli.FormatTokens(m.Tokens.CacheCreation + m.Tokens.CacheRead),
			cli.FormatTokens(m.Tokens.Total()),
			cli.FormatCost(m.CostUSD),
		})
		if flagBreakdown {
			rows = append(rows, breakdownRows(m.Models, m.Breakdown)...)
		}
	}
	rows = append(rows, []string{cli.SeparatorRow})
	rows = append(rows, []string{
		"Total", "",
		cli.FormatTokens(total.Input),
		cli.FormatTokens(total.Output),
		cli.FormatTokens(total.CacheCreation + total.CacheRead),
		cli.FormatTokens(total.Total()),
		cli.FormatCost(totalCost),
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Entries", "Input", "Output", "Cache", "Total", "Cost"},
		Rows:    rows,
	}))
	return nil
}
