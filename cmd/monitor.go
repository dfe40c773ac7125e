package cmd

import (
	"fmt"
	"time"

	"blockwatch/internal/blocks"
	"blockwatch/internal/plan"
	"blockwatch/internal/tui"

	"github.com/spf13/cobra"
)

var (
	flagMonitorPlan    string
	flagMonitorReset   int
	flagMonitorRefresh int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live monitor of the active block and burn rate",
	Long: "Full-screen live view: active block usage, burn rate, and projected\n" +
		"time until the plan limit. Refreshes on a timer and on log changes.",
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&flagMonitorPlan, "plan", "", "Capacity plan: pro, max5, max20, custom_max (default auto-detect)")
	monitorCmd.Flags().IntVar(&flagMonitorReset, "reset-hour", -1, "Daily quota reset hour (0-23)")
	monitorCmd.Flags().IntVar(&flagMonitorRefresh, "refresh", 0, "Refresh interval in seconds")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(_ *cobra.Command, _ []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}

	planName := flagMonitorPlan
	if planName == "" {
		planName = rc.cfg.Monitor.Plan
	}
	tier, err := plan.ParseTier(planName)
	if err != nil {
		return err
	}

	var resetHour *int
	switch {
	case flagMonitorReset >= 0 && flagMonitorReset <= 23:
		h := flagMonitorReset
		resetHour = &h
	case flagMonitorReset != -1:
		return fmt.Errorf("reset hour %d out of range (0-23)", flagMonitorReset)
	case rc.cfg.Monitor.ResetHour != nil:
		resetHour = rc.cfg.Monitor.ResetHour
	}

	refreshSecs := flagMonitorRefresh
	if refreshSecs <= 0 {
		refreshSecs = rc.cfg.Monitor.RefreshSeconds
	}

	return tui.Run(tui.Options{
		LoadOpts: rc.loadOpts,
		Blocks: blocks.Options{
			BlockDuration: rc.cfg.BlockDuration(),
			GapThreshold:  rc.cfg.GapThreshold(),
			ActiveWindow:  rc.cfg.ActiveWindow(),
		},
		Plan:      tier,
		Refresh:   time.Duration(refreshSecs) * time.Second,
		Location:  rc.loc,
		ResetHour: resetHour,
	})
}
