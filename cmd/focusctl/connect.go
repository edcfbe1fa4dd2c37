package main

import (
	"github.com/spf13/cobra"

	"focusbubble/backend/internal/model"
)

var connectPairingKey string

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Pair with the service and print a component token",
	Long: `Exchange the pairing key for a runtime component token. Store the token
in the config file or FOCUSCTL_TOKEN to use it for later commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		reply, err := newClient().Connect(ctx, connectPairingKey, model.ComponentRuntime, 0)
		if err != nil {
			return err
		}
		if ui.Structured() {
			return ui.Render(reply)
		}
		if reply.Token == "" {
			ui.Warning("Service has authentication disabled, no token needed")
			return nil
		}
		ui.Success("Connected as %s", reply.Component.ID)
		if reply.ExpiresAt != nil {
			ui.Info("Token expires %s", reply.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		ui.Info("token: %s", reply.Token)
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectPairingKey, "pairing-key", "", "Pairing key configured on the service")
	rootCmd.AddCommand(connectCmd)
}
