package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"blockwatch/internal/analytics"
	"blockwatch/internal/blocks"
	"blockwatch/internal/cli"
	"blockwatch/internal/model"
	"blockwatch/internal/pipeline"
	"blockwatch/internal/plan"

	"github.com/spf13/cobra"
)

var (
	flagBlocksPlan   string
	flagBlocksActive bool
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "5-hour accounting blocks with burn rates and projections",
	RunE:  runBlocks,
}

func init() {
	blocksCmd.Flags().StringVar(&flagBlocksPlan, "plan", "", "Capacity plan for projections: pro, max5, max20, custom_max")
	blocksCmd.Flags().BoolVar(&flagBlocksActive, "active", false, "Show only the active block")
	rootCmd.AddCommand(blocksCmd)
}

func runBlocks(_ *cobra.Command, _ []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	tier, err := plan.ParseTier(flagBlocksPlan)
	if err != nil {
		return err
	}

	sessions, err := rc.filteredSessions()
	if err != nil {
		return err
	}

	now := time.Now()
	built := buildBlocks(rc, sessions, now)
	attachProjections(built, sessions, tier, now)

	if flagBlocksActive {
		var active []model.Block
		for _, b := range built {
			if b.IsActive {
				active = append(active, b)
			}
		}
		built = active
	}
	built = pipeline.Recent(built, flagRecent)
	built = pipeline.Reorder(built, rc.order)

	if flagJSON {
		return cli.WriteJSON(os.Stdout, cli.BlockView(built))
	}
	if len(built) == 0 {
		fmt.Println("No active block.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("USAGE BLOCKS"))
	fmt.Println()

	rows := make([][]string, 0, len(built))
	for _, b := range built {
		rows = append(rows, blockRow(rc, b))
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Block", "Span", "Sessions", "Weighted", "Cost", "Burn", "Status"},
		Rows:    rows,
	}))
	return nil
}

// buildBlocks runs the block state machine with the configured
// heuristics.
func buildBlocks(rc *runContext, sessions []*model.Session, now time.Time) []model.Block {
	return blocks.Build(sessions, now, blocks.Options{
		BlockDuration: rc.cfg.BlockDuration(),
		GapThreshold:  rc.cfg.GapThreshold(),
		ActiveWindow:  rc.cfg.ActiveWindow(),
	})
}

// attachProjections adds a forward projection to the active block. The
// limit comes from the selected plan, falling back to detection when no
// plan was given. custom_max uses the highest block ever observed.
func attachProjections(built []model.Block, sessions []*model.Session, tier plan.Tier, now time.Time) {
	limit := projectionLimit(built, tier)
	if limit <= 0 {
		return
	}
	for i := range built {
		b := &built[i]
		if !b.IsActive {
			continue
		}
		rate := analytics.WindowedRate(sessions, now, 0, 0)
		if rate == nil {
			rate = b.BurnRate
		}
		b.Projection = analytics.Project(b.WeightedTokens, limit, rate, b.CostUSD)
	}
}

func projectionLimit(built []model.Block, tier plan.Tier) int64 {
	switch tier {
	case plan.TierCustomMax:
		var peak int64
		for _, b := range built {
			if !b.IsGap && b.WeightedTokens > peak {
				peak = b.WeightedTokens
			}
		}
		return peak
	case plan.TierUnknown:
		return plan.Detect(built).Limit
	default:
		return tier.Limit()
	}
}

func blockRow(rc *runContext, b model.Block) []string {
	if b.IsGap {
		return []string{
			b.ID,
			cli.FormatTimeRange(b.StartTime, b.EndTime, rc.loc),
			"-", "-", "-", "-",
			"gap",
		}
	}

	burn := "-"
	if b.BurnRate != nil {
		burn = cli.FormatRate(b.BurnRate.TokensPerMinute)
	}
	var status []string
	if b.IsActive {
		status = append(status, "active")
	}
	if b.Projection != nil {
		status = append(status, "limit in "+cli.FormatMinutes(b.Projection.RemainingMinutes))
	}
	if b.LimitErrors > 0 {
		status = append(status, "limit errors")
	}
	return []string{
		b.ID,
		cli.FormatTimeRange(b.StartTime, b.EndTime, rc.loc),
		cli.FormatNumber(int64(b.Sessions)),
		cli.FormatTokens(b.WeightedTokens),
		cli.FormatCost(b.CostUSD),
		burn,
		strings.Join(status, ", "),
	}
}
