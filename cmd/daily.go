package cmd

import (
	"fmt"
	"os"

	"blockwatch/internal/cli"
	"blockwatch/internal/model"
	"blockwatch/internal/pipeline"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily usage report",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	sessions, err := rc.filteredSessions()
	if err != nil {
		return err
	}

	days := pipeline.Daily(sessions, rc.loc)
	days = pipeline.Recent(days, flagRecent)
	days = pipeline.Reorder(days, rc.order)

	if flagJSON {
		return cli.WriteJSON(os.Stdout, cli.DailyView(days, flagBreakdown))
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY USAGE"))
	fmt.Println()

	var total model.TokenCounts
	var totalCost float64
	rows := make([][]string, 0, len(days)+2)
	for _, d := range days {
		total.Add(d.Tokens)
		totalCost += d.CostUSD
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			cli.FormatNumber(int64(d.Entries)),
			cli.FormatTokens(d.Tokens.Input),
			cli.FormatTokens(d.Tokens.Output),
			cli.FormatTokens(d.Tokens.CacheCreation + d.Tokens.CacheRead),
			cli.FormatTokens(d.Tokens.Total()),
			cli.FormatCost(d.CostUSD),
		})
		if flagBreakdown {
			rows = append(rows, breakdownRows(d.Models, d.Breakdown)...)
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
		Headers: []string{"Date", "Entries", "Input", "Output", "Cache", "Total", "Cost"},
		Rows:    rows,
	}))
	return nil
}

// breakdownRows renders indented per-model rows under an aggregate row.
func breakdownRows(order []string, breakdown map[string]*model.ModelBreakdown) [][]string {
	rows := make([][]string, 0, len(order))
	for _, name := range order {
		mb, ok := breakdown[name]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			"  └ " + name,
			cli.FormatNumber(int64(mb.Entries)),
			cli.FormatTokens(mb.Tokens.Input),
			cli.FormatTokens(mb.Tokens.Output),
			cli.FormatTokens(mb.Tokens.CacheCreation + mb.Tokens.CacheRead),
			cli.FormatTokens(mb.Tokens.Total()),
			cli.FormatCost(mb.CostUSD),
		})
	}
	return rows
}
