package main

import (
	"fmt"
	"strings"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/config"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the agent's offline cache (the agent must be stopped)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cache buckets and their entries",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				db, err := openAgentDB(cfg.Agent.DataPath)
				if err != nil {
					return err
				}
				defer db.Close()
				worker, err := newWorker(cfg, db, nil, nil)
				if err != nil {
					return err
				}
				names, err := worker.Storage().Keys()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, name := range names {
					keys, err := worker.Storage().Entries(name)
					if err != nil {
						return err
					}
					marker := ""
					if name == worker.Names().Current {
						marker = " (current)"
					}
					fmt.Fprintf(out, "%s%s: %d entries\n", name, marker, len(keys))
					for _, k := range keys {
						fmt.Fprintf(out, "  %s\n", k)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "reap",
			Short: "Delete every cache bucket except the current version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				db, err := openAgentDB(cfg.Agent.DataPath)
				if err != nil {
					return err
				}
				defer db.Close()
				worker, err := newWorker(cfg, db, nil, logging.New(cfg.LogLevel))
				if err != nil {
					return err
				}
				removed, err := worker.Activate(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "removed: %s\n", strings.Join(removed, ", "))
				return err
			},
		},
	)
	return cmd
}
