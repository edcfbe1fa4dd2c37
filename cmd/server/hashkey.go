package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <pairing-key>",
	Short: "Print the bcrypt hash to use as auth.pairing_key_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash pairing key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
