package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/output"
)

var (
	sessionsLimit  int
	statsRecompute bool
	clearConfirmed bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		sessions, err := newClient().Sessions(ctx, sessionsLimit)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(sessions)
		}
		if len(sessions) == 0 {
			ui.Info("No sessions recorded yet")
			return nil
		}
		printSessions(sessions)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one session from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := newClient().DeleteSession(ctx, args[0]); err != nil {
			return err
		}
		ui.Success("Deleted session %s", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		stats, err := newClient().Stats(ctx, statsRecompute)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(stats)
		}
		printStats(stats)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sessions, statistics and timer state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirmed {
			return fmt.Errorf("refusing to clear all data without --yes")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := newClient().ClearAll(ctx); err != nil {
			return err
		}
		ui.Success("All data cleared")
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the service's recent events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		entries, err := newClient().Events(ctx)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(entries)
		}
		table := ui.Table([]string{"TIME", "EVENT", "DETAILS"})
		for _, entry := range entries {
			_ = table.Append([]string{
				entry.Time.Local().Format("15:04:05"),
				output.Cyan(entry.Type),
				formatFields(entry.Fields),
			})
		}
		_ = table.Render()
		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 0, "Maximum sessions to show (default from the service)")
	statsCmd.Flags().BoolVar(&statsRecompute, "recompute", false, "Rebuild statistics from stored history")
	clearCmd.Flags().BoolVarP(&clearConfirmed, "yes", "y", false, "Confirm deletion")

	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd, statsCmd, clearCmd, eventsCmd)
}

func printSessions(sessions []model.Session) {
	table := ui.Table([]string{"ID", "DATE", "MODE", "PLANNED", "ACTUAL", "DISTRACTIONS", "RESULT"})
	for _, s := range sessions {
		result := "stopped"
		if s.Completed {
			result = "completed"
		}
		_ = table.Append([]string{
			s.ID,
			s.StartTime.Local().Format("2006-01-02 15:04"),
			output.ModeColor(string(s.Mode)),
			output.Clock(s.PlannedDurationSeconds),
			output.Clock(s.ActualDurationSeconds),
			strconv.Itoa(s.Distractions),
			output.StatusColor(result),
		})
	}
	_ = table.Render()
}

func printStats(stats *model.Statistics) {
	table := ui.Table([]string{"METRIC", "VALUE"})
	rows := [][]string{
		{"Sessions", strconv.Itoa(stats.TotalSessions)},
		{"Completed", strconv.Itoa(stats.CompletedSessions)},
		{"Focus sessions", strconv.Itoa(stats.FocusSessions)},
		{"Focus time", output.Clock(stats.TotalFocusSeconds)},
		{"Distractions", strconv.Itoa(stats.TotalDistractions)},
		{"Current streak", output.Green(strconv.Itoa(stats.CurrentStreak))},
		{"Longest streak", strconv.Itoa(stats.LongestStreak)},
		{"Average focus", output.Clock(int(stats.AverageFocusSeconds))},
		{"Average distractions", strconv.FormatFloat(stats.AverageDistractions, 'f', 1, 64)},
	}
	if stats.LastSessionDate != "" {
		rows = append(rows, []string{"Last session", stats.LastSessionDate})
	}
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, fields[key]))
	}
	return strings.Join(parts, " ")
}
