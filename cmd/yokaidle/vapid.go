package main

import (
	"fmt"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/webpush"
	"github.com/spf13/cobra"
)

func newVAPIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "Manage VAPID keys for push delivery",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a new VAPID key pair as environment assignments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, priv, err := webpush.GenerateKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "YOKAIDLE_PUSH_VAPID_PUBLIC_KEY=%s\n", pub)
			fmt.Fprintf(out, "YOKAIDLE_PUSH_VAPID_PRIVATE_KEY=%s\n", priv)
			return nil
		},
	})
	return cmd
}
