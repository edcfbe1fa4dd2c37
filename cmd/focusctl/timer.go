package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/output"
)

var (
	startMode       string
	startSaveActive bool
	stopDiscard     bool
	distractionURL  string
	distractionWhy  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		reply, err := newClient().State(ctx)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(reply)
		}
		printState(reply.State)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start [minutes]",
	Short: "Start a session",
	Long: `Start a focus session or break. Without minutes the configured length
for the mode is used. An active session is discarded unless --save-active
is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var minutes *float64
		if len(args) == 1 {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil || value <= 0 {
				return fmt.Errorf("minutes must be a positive number, got %q", args[0])
			}
			minutes = &value
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		reply, err := newClient().Start(ctx, minutes, model.Mode(startMode), startSaveActive)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(reply)
		}
		if reply.ReplacedSession != nil {
			ui.Info("Saved previous session %s", reply.ReplacedSession.ID)
		}
		ui.Success("Started %s for %s", output.ModeColor(string(reply.State.Mode)), output.Clock(reply.State.DurationSeconds))
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		state, err := newClient().Pause(ctx)
		if err != nil {
			return err
		}
		return showTransition("Paused", state)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		state, err := newClient().Resume(ctx)
		if err != nil {
			return err
		}
		return showTransition("Resumed", state)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the timer without recording a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		state, err := newClient().Reset(ctx)
		if err != nil {
			return err
		}
		return showTransition("Reset", state)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		reply, err := newClient().Stop(ctx, !stopDiscard)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(reply)
		}
		if reply.Session == nil {
			ui.Success("Stopped, session discarded")
			return nil
		}
		ui.Success("Stopped after %s with %d distraction(s)",
			output.Clock(reply.Session.ActualDurationSeconds), reply.Session.Distractions)
		return nil
	},
}

var distractionCmd = &cobra.Command{
	Use:   "distraction",
	Short: "Report a distraction for the running session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		reply, err := newClient().Distraction(ctx, distractionURL, distractionWhy)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(reply)
		}
		if reply.Ignored {
			ui.Warning("No running session, distraction ignored")
			return nil
		}
		ui.Success("Distractions this session: %d", reply.Distractions)
		return nil
	},
}

func init() {
	startCmd.Flags().StringVarP(&startMode, "mode", "m", string(model.ModeFocus), "Mode: focus, short-break or long-break")
	startCmd.Flags().BoolVar(&startSaveActive, "save-active", false, "Save the active session instead of discarding it")
	stopCmd.Flags().BoolVar(&stopDiscard, "discard", false, "Discard the session instead of saving it")
	distractionCmd.Flags().StringVar(&distractionURL, "url", "", "URL that caused the distraction")
	distractionCmd.Flags().StringVar(&distractionWhy, "reason", "manual", "Why the distraction was reported")

	rootCmd.AddCommand(statusCmd, startCmd, pauseCmd, resumeCmd, resetCmd, stopCmd, distractionCmd)
}

func showTransition(verb string, state *model.StateView) error {
	if ui.Structured() {
		return ui.Render(state)
	}
	ui.Success("%s at %s", verb, output.Clock(state.RemainingSeconds))
	return nil
}

func printState(state model.StateView) {
	fmt.Fprintf(ui.Out, "%s  %s  %s / %s  %.0f%%\n",
		output.StatusColor(string(state.Status)),
		output.ModeColor(string(state.Mode)),
		output.Clock(state.RemainingSeconds),
		output.Clock(state.DurationSeconds),
		state.Progress*100,
	)
	if state.Status != model.StatusIdle {
		fmt.Fprintf(ui.Out, "distractions  %d\n", state.DistractionCount)
	}
}
