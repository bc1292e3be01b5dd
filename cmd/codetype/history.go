package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
	"github.com/verte-zerg/codetype/internal/stats"
	"github.com/verte-zerg/codetype/internal/statsui"
)

var (
	historyCategory    string
	historySince       string
	historyLast        int
	historyCurveWindow int
	historyPlain       bool
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show your past sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyCategory, "category", "", "category filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	provider, err := newProvider(fileCfg, st)
	if err != nil {
		return err
	}
	ident, err := provider.Load()
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}
	if ident == nil {
		return fmt.Errorf("not signed in (run: codetype login <username>)")
	}

	filter := model.HistoryFilter{
		UserID:      ident.UserID,
		Category:    prompts.NormalizeCategory(historyCategory),
		Since:       sinceTime,
		Last:        historyLast,
		CurveWindow: historyCurveWindow,
	}

	if historyPlain {
		report, err := stats.BuildReport(cmd.Context(), st, filter)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return report.Render(cmd.OutOrStdout(), stats.TerminalWidth(os.Stdout))
	}

	m := statsui.NewModel(st, filter, ident.Username)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}
