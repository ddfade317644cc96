package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sentinel/core"
)

func newAgentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the agent roster",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List agents, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents, err := a.s.Engine().RefreshRoster(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tRANK\tFACTION\tSTATUS\tTIER")
			for _, ag := range agents {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", ag.ID, ag.Name, ag.Rank.Abbrev(), ag.Faction, ag.Status, ag.AccessTier)
			}
			return tw.Flush()
		},
	}

	var (
		agent core.Agent
		rank  string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent.Rank = core.ParseRank(rank)
			if agent.Rank == core.RankUnknown {
				return fmt.Errorf("unknown rank %q", rank)
			}
			created, err := a.s.Store().CreateAgent(cmd.Context(), agent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) with id %s\n", created.Name, created.Rank, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&agent.Name, "name", "", "agent name")
	add.Flags().StringVar(&rank, "rank", core.RankSpecialist.String(), "rank name or abbreviation")
	add.Flags().StringVar(&agent.Faction, "faction", "", "faction")
	add.Flags().StringVar(&agent.Status, "status", core.StatusActive, "status")
	add.Flags().StringVar(&agent.AccessTier, "tier", core.TierDelta, "access tier")
	add.Flags().StringVar(&agent.PersonalityText, "personality", "", "personality and behavior description")
	add.Flags().StringVar(&agent.ProjectID, "project", "", "linked project id")
	add.Flags().StringVar(&agent.VoiceProfile, "voice", "", "voice profile for speech")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(list, add)
	return cmd
}
