package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"blockwatch/internal/cli"
	"blockwatch/internal/pipeline"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Per-session usage report",
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	sessions, err := rc.filteredSessions()
	if err != nil {
		return err
	}

	sessions = pipeline.Recent(sessions, flagRecent)
	sessions = pipeline.Reorder(sessions, rc.order)

	if flagJSON {
		return cli.WriteJSON(os.Stdout, cli.SessionView(sessions, flagBreakdown))
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SESSIONS"))
	fmt.Println()

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		names := make([]string, 0, len(s.Models))
		for name := range s.Models {
			names = append(names, name)
		}
		sort.Strings(names)

		flag := ""
		if s.HasLimitError {
			flag = "limit"
		}
		rows = append(rows, []string{
			shortID(s.ID),
			s.StartTime.In(rc.loc).Format("2006-01-02 15:04"),
			cli.FormatMinutes(s.DurationMinutes()),
			strings.Join(shortModels(names), ","),
			cli.FormatTokens(s.TotalWeightedTokens),
			cli.FormatCost(s.CostUSD),
			flag,
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Session", "Start", "Duration", "Models", "Weighted", "Cost", ""},
		Rows:    rows,
	}))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// shortModels compresses model identifiers for table display:
// "claude-sonnet-4-20250514" -> "sonnet-4".
func shortModels(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		short := strings.TrimPrefix(name, "claude-")
		if idx := strings.LastIndex(short, "-20"); idx > 0 {
			short = short[:idx]
		}
		out[i] = short
	}
	return out
}
