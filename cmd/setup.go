package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"blockwatch/internal/cli"
	"blockwatch/internal/config"
	"blockwatch/internal/source"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	claudeDir := flagClaudeDir
	if claudeDir == "" {
		claudeDir = config.DefaultClaudeDir(cfg)
	}
	files, _ := source.ScanDir(claudeDir)

	fmt.Println()
	fmt.Println("  Welcome to blockwatch!")
	if len(files) > 0 {
		fmt.Printf("  Found %s session logs in %s (%d projects)\n",
			cli.FormatNumber(int64(len(files))), claudeDir, source.CountProjects(files))
	}
	fmt.Println()

	planChoice := cfg.Monitor.Plan
	timezone := cfg.General.Timezone
	resetHour := ""
	if cfg.Monitor.ResetHour != nil {
		resetHour = strconv.Itoa(*cfg.Monitor.ResetHour)
	}
	refresh := cfg.Monitor.RefreshSeconds
	if refresh <= 0 {
		refresh = 2
	}
	refreshChoice := strconv.Itoa(refresh)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Capacity plan").
				Description("Used for monitor-mode limits. auto guesses from usage.").
				Options(
					huh.NewOption("Auto-detect", ""),
					huh.NewOption("Pro", "pro"),
					huh.NewOption("Max 5x", "max5"),
					huh.NewOption("Max 20x", "max20"),
					huh.NewOption("Custom (highest observed block)", "custom_max"),
				).
				Value(&planChoice),

			huh.NewInput().
				Title("Timezone").
				Description("IANA name, e.g. Europe/Berlin. Blank uses the system zone.").
				Value(&timezone),

			huh.NewInput().
				Title("Daily reset hour").
				Description("0-23, blank for none.").
				Validate(validateResetHour).
				Value(&resetHour),

			huh.NewSelect[string]().
				Title("Monitor refresh interval").
				Options(
					huh.NewOption("1 second", "1"),
					huh.NewOption("2 seconds", "2"),
					huh.NewOption("5 seconds", "5"),
					huh.NewOption("10 seconds", "10"),
				).
				Value(&refreshChoice),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	cfg.Monitor.Plan = planChoice
	cfg.General.Timezone = timezone
	if resetHour == "" {
		cfg.Monitor.ResetHour = nil
	} else {
		h, _ := strconv.Atoi(resetHour)
		cfg.Monitor.ResetHour = &h
	}
	cfg.Monitor.RefreshSeconds, _ = strconv.Atoi(refreshChoice)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `blockwatch setup` anytime to reconfigure.")
	return nil
}

func validateResetHour(s string) error {
	if s == "" {
		return nil
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return fmt.Errorf("reset hour must be 0-23")
	}
	return nil
}
