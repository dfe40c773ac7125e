package cmd

import (
	"fmt"
	"os"
	"time"

	"blockwatch/internal/cli"
	"blockwatch/internal/plan"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Guess the capacity plan from observed usage",
	Long: "Classify the account's capacity tier from peak block usage and\n" +
		"limit-error evidence. Heuristic and advisory only.",
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

// planJSON is the serialized detection result.
type planJSON struct {
	Tier       string   `json:"tier"`
	Limit      int64    `json:"limit"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

func runPlan(_ *cobra.Command, _ []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	sessions, err := rc.filteredSessions()
	if err != nil {
		return err
	}

	built := buildBlocks(rc, sessions, time.Now())
	det := plan.Detect(built)

	if flagJSON {
		return cli.WriteJSON(os.Stdout, planJSON{
			Tier:       string(det.Tier),
			Limit:      det.Limit,
			Confidence: det.Confidence,
			Evidence:   det.Evidence,
		})
	}

	fmt.Printf("Plan:       %s\n", det.Tier)
	if det.Limit > 0 {
		fmt.Printf("Limit:      %s weighted tokens per block\n", cli.FormatNumber(det.Limit))
	}
	fmt.Printf("Confidence: %s\n", cli.FormatPercent(det.Confidence))
	for _, e := range det.Evidence {
		fmt.Printf("  - %s\n", e)
	}
	return nil
}
