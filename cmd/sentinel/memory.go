package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMemoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and purge conversation memory",
	}

	var agentID string
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete every memory entry of an agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.s.Engine().PurgeMemory(cmd.Context(), agentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d memory entries of %s\n", n, agentID)
			return nil
		},
	}
	purge.Flags().StringVar(&agentID, "agent", "", "agent id")
	_ = purge.MarkFlagRequired("agent")

	cmd.AddCommand(purge)
	return cmd
}
