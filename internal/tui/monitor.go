// Package tui implements the live monitor: a full-screen view of the
// active block, burn rate, and limit projection, refreshed on a timer
// and on filesystem changes to the log directory.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"blockwatch/internal/analytics"
	"blockwatch/internal/blocks"
	"blockwatch/internal/cli"
	"blockwatch/internal/model"
	"blockwatch/internal/pipeline"
	"blockwatch/internal/plan"
)

// Options configure the monitor.
type Options struct {
	LoadOpts pipeline.Options
	Blocks   blocks.Options
	Plan     plan.Tier
	Refresh  time.Duration
	Location *time.Location
	// ResetHour, when set, is the hour (0-23) the provider quota
	// resets each day; shown as a countdown.
	ResetHour *int
}

// sparklineLen bounds the burn-rate history shown in the footer.
const sparklineLen = 30

type tickMsg time.Time

type fsChangeMsg struct{}

type dataMsg struct {
	sessions []*model.Session
	blocks   []model.Block
	err      error
}

// Monitor is the bubbletea model for monitor mode.
type Monitor struct {
	opts    Options
	watcher *fsnotify.Watcher

	sessions  []*model.Session
	blocks    []model.Block
	detection plan.Detection
	history   []float64
	lastErr   error
	updatedAt time.Time
	loading   bool
	spin      spinner.Model

	width  int
	height int
}

// NewMonitor builds the monitor model. The filesystem watcher is best
// effort; when it cannot be created the monitor still refreshes on its
// timer.
func NewMonitor(opts Options) *Monitor {
	if opts.Refresh <= 0 {
		opts.Refresh = 2 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = monDimStyle

	m := &Monitor{opts: opts, loading: true, spin: sp}

	w, err := fsnotify.NewWatcher()
	if err == nil {
		projectsDir := filepath.Join(opts.LoadOpts.ClaudeDir, "projects")
		_ = w.Add(projectsDir)
		if entries, err := os.ReadDir(projectsDir); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					_ = w.Add(filepath.Join(projectsDir, e.Name()))
				}
			}
		}
		m.watcher = w
	}
	return m
}

// Run starts the monitor loop and blocks until quit.
func Run(opts Options) error {
	m := NewMonitor(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Close releases the filesystem watcher.
func (m *Monitor) Close() {
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}

func (m *Monitor) Init() tea.Cmd {
	cmds := []tea.Cmd{m.reload(), m.tick(), m.spin.Tick}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForChange())
	}
	return tea.Batch(cmds...)
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks on the watcher until a log file changes. New
// project directories are added to the watch set as they appear.
func (m *Monitor) waitForChange() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						_ = m.watcher.Add(ev.Name)
						continue
					}
				}
				if filepath.Ext(ev.Name) == ".jsonl" {
					return fsChangeMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// reload reruns the whole pipeline. Every refresh starts from scratch;
// no state survives between runs except the rendered history.
func (m *Monitor) reload() tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		result, err := pipeline.Load(opts.LoadOpts)
		if err != nil {
			return dataMsg{err: err}
		}
		built := blocks.Build(result.Sessions, time.Now(), opts.Blocks)
		return dataMsg{sessions: result.Sessions, blocks: built}
	}
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, m.reload()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.reload(), m.tick())

	case fsChangeMsg:
		return m, tea.Batch(m.reload(), m.waitForChange())

	case dataMsg:
		m.loading = false
		m.lastErr = msg.err
		if msg.err == nil {
			m.sessions = msg.sessions
			m.blocks = msg.blocks
			m.detection = plan.Detect(msg.blocks)
			m.updatedAt = time.Now()
			m.pushHistory()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Monitor) pushHistory() {
	rate := 0.0
	if br := m.currentRate(); br != nil {
		rate = br.TokensPerMinute
	}
	m.history = append(m.history, rate)
	if len(m.history) > sparklineLen {
		m.history = m.history[len(m.history)-sparklineLen:]
	}
}

func (m *Monitor) activeBlock() *model.Block {
	for i := range m.blocks {
		if m.blocks[i].IsActive {
			return &m.blocks[i]
		}
	}
	return nil
}

// currentRate prefers the windowed session rate and falls back to the
// active block's lifetime rate.
func (m *Monitor) currentRate() *model.BurnRate {
	now := time.Now()
	if br := analytics.WindowedRate(m.sessions, now, 0, 0); br != nil {
		return br
	}
	if b := m.activeBlock(); b != nil {
		return b.BurnRate
	}
	return nil
}

// limit resolves the projection limit for the selected plan, falling
// back to detection.
func (m *Monitor) limit() int64 {
	switch m.opts.Plan {
	case plan.TierCustomMax:
		var peak int64
		for _, b := range m.blocks {
			if !b.IsGap && b.WeightedTokens > peak {
				peak = b.WeightedTokens
			}
		}
		return peak
	case plan.TierUnknown:
		return m.detection.Limit
	default:
		return m.opts.Plan.Limit()
	}
}

var (
	monTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorText)
	monLabelStyle  = lipgloss.NewStyle().Foreground(cli.ColorTextMuted).Width(14)
	monValueStyle  = lipgloss.NewStyle().Foreground(cli.ColorText)
	monAccentStyle = lipgloss.NewStyle().Foreground(cli.ColorAccent)
	monAlertStyle  = lipgloss.NewStyle().Foreground(cli.ColorRed)
	monDimStyle    = lipgloss.NewStyle().Foreground(cli.ColorTextDim)
)

func (m *Monitor) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(monTitleStyle.Render("  blockwatch monitor"))
	if m.loading {
		b.WriteString("  " + m.spin.View() + monDimStyle.Render(" refreshing..."))
	} else if !m.updatedAt.IsZero() {
		b.WriteString(monDimStyle.Render("  updated " + m.updatedAt.In(m.opts.Location).Format("15:04:05")))
	}
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString(monAlertStyle.Render("  " + m.lastErr.Error()))
		b.WriteString("\n\n")
	}

	if active := m.activeBlock(); active != nil {
		m.renderActive(&b, active)
	} else if !m.loading {
		b.WriteString(monDimStyle.Render("  No active block. Waiting for usage..."))
		b.WriteString("\n")
	}

	if len(m.history) > 1 {
		b.WriteString("\n")
		b.WriteString(monLabelStyle.Render("  Burn history"))
		b.WriteString(monAccentStyle.Render(cli.RenderSparkline(m.history)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(monDimStyle.Render("  q quit · r refresh"))
	b.WriteString("\n")
	return b.String()
}

func (m *Monitor) renderActive(b *strings.Builder, active *model.Block) {
	row := func(label, value string) {
		b.WriteString(monLabelStyle.Render("  " + label))
		b.WriteString(monValueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Block", fmt.Sprintf("%s (%s)", active.ID,
		cli.FormatTimeRange(active.StartTime, active.StartTime.Add(m.opts.Blocks.BlockDuration), m.opts.Location)))
	row("Sessions", cli.FormatNumber(int64(active.Sessions)))
	row("Cost", cli.FormatCost(active.CostUSD))

	limit := m.limit()
	if limit > 0 {
		b.WriteString(monLabelStyle.Render("  Usage"))
		b.WriteString(cli.RenderUsageBar(active.WeightedTokens, limit, 30))
		b.WriteString("\n")
	} else {
		row("Weighted", cli.FormatTokens(active.WeightedTokens))
	}

	rate := m.currentRate()
	if rate != nil {
		row("Burn rate", cli.FormatRate(rate.TokensPerMinute))
	}

	if limit > 0 && rate != nil {
		if at := analytics.PredictExhaustion(active.WeightedTokens, limit, rate, time.Now()); !at.IsZero() {
			row("Limit at", at.In(m.opts.Location).Format("15:04")+
				" (in "+cli.FormatMinutes(time.Until(at).Minutes())+")")
		}
	}

	if m.opts.ResetHour != nil {
		next := nextReset(time.Now().In(m.opts.Location), *m.opts.ResetHour)
		row("Quota reset", next.Format("15:04")+" (in "+cli.FormatMinutes(time.Until(next).Minutes())+")")
	}

	if m.opts.Plan == plan.TierUnknown && m.detection.Tier != plan.TierUnknown {
		row("Plan guess", fmt.Sprintf("%s (%s confidence)",
			m.detection.Tier, cli.FormatPercent(m.detection.Confidence)))
	}
}

// nextReset returns the next occurrence of the given hour after now.
func nextReset(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
