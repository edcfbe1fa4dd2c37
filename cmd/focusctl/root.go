package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focusbubble/backend/internal/client"
	"focusbubble/backend/internal/output"
)

const requestTimeout = 15 * time.Second

// Shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "focusctl",
	Short: "Control the FocusBubble timer from the terminal",
	Long: `focusctl talks to a running FocusBubble service. It starts, pauses and
stops focus sessions, shows history and statistics, and edits settings.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.String("config", "", "Config file (default ~/.config/focusbubble/focusctl.yaml)")
	flags.String("server", "http://127.0.0.1:8080", "FocusBubble service URL")
	flags.String("token", "", "Component token from 'focusctl connect'")
	flags.StringP("output", "o", output.FormatTable, "Output format: table, yaml or json")

	_ = viper.BindPFlag("server", flags.Lookup("server"))
	_ = viper.BindPFlag("token", flags.Lookup("token"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "focusbubble")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("focusctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FOCUSCTL")
	viper.AutomaticEnv()

	viper.SetDefault("server", "http://127.0.0.1:8080")
	viper.SetDefault("token", "")
	viper.SetDefault("output", output.FormatTable)

	// Config file is optional.
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.Format = viper.GetString("output")
}

func newClient() *client.Client {
	server := viper.GetString("server")
	ui.VerboseLog("server %s", server)
	return client.New(server, viper.GetString("token"))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}
