package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"focusbubble/backend/internal/model"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		settings, err := newClient().Settings(ctx)
		if err != nil {
			return err
		}
		return showSettings(settings)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Update one or more settings",
	Example: `  focusctl settings set defaultDuration=50 autoStartBreaks=true
  focusctl settings set sessionsUntilLongBreak=3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := parseSettingsPatch(args)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		settings, err := newClient().UpdateSettings(ctx, patch)
		if err != nil {
			return err
		}
		if !ui.Structured() {
			ui.Success("Settings updated")
		}
		return showSettings(settings)
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// parseSettingsPatch turns key=value pairs into a patch. Keys use the wire
// names so they match what 'settings -o yaml' prints.
func parseSettingsPatch(pairs []string) (model.SettingsPatch, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return model.SettingsPatch{}, fmt.Errorf("expected key=value, got %q", pair)
		}
		fields[key] = settingValue(raw)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return model.SettingsPatch{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.DisallowUnknownFields()

	var patch model.SettingsPatch
	if err := dec.Decode(&patch); err != nil {
		return model.SettingsPatch{}, fmt.Errorf("invalid settings: %w", err)
	}
	return patch, nil
}

func settingValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func showSettings(settings *model.Settings) error {
	if ui.Structured() {
		return ui.Render(settings)
	}
	table := ui.Table([]string{"SETTING", "VALUE"})
	rows := [][]string{
		{"defaultDuration", formatMinutes(settings.DefaultDuration)},
		{"shortBreakDuration", formatMinutes(settings.ShortBreakDuration)},
		{"longBreakDuration", formatMinutes(settings.LongBreakDuration)},
		{"sessionsUntilLongBreak", strconv.Itoa(settings.SessionsUntilLongBreak)},
		{"notificationsEnabled", strconv.FormatBool(settings.NotificationsEnabled)},
		{"soundEnabled", strconv.FormatBool(settings.SoundEnabled)},
		{"autoStartBreaks", strconv.FormatBool(settings.AutoStartBreaks)},
		{"autoStartPomodoros", strconv.FormatBool(settings.AutoStartPomodoros)},
		{"floatingBubbleEnabled", strconv.FormatBool(settings.FloatingBubbleEnabled)},
	}
	for _, row := range rows {
		_ = table.Append(row)
	}
	return table.Render()
}

func formatMinutes(minutes float64) string {
	return strconv.FormatFloat(minutes, 'f', -1, 64) + " min"
}
