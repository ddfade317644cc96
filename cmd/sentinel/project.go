package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sentinel/core"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects and their briefings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := a.s.Store().ListProjects(cmd.Context(), core.ListOptions{})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tAGENT\tBRIEFED")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Status, p.AgentID, p.Briefing != "")
			}
			return tw.Flush()
		},
	}

	var project core.Project
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := a.s.Store().CreateProject(cmd.Context(), project)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %q with id %s\n", created.Name, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&project.Name, "name", "", "project name")
	add.Flags().StringVar(&project.Objective, "objective", "", "core objective")
	add.Flags().StringVar(&project.PersonalityText, "doctrine", "", "guiding doctrine")
	add.Flags().StringSliceVar(&project.CorePrinciples, "principle", nil, "core principle (repeatable)")
	add.Flags().StringVar(&project.Status, "status", "active", "status")
	add.Flags().StringVar(&project.AgentID, "agent", "", "linked agent id")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("objective")

	var force bool
	brief := &cobra.Command{
		Use:   "brief <project-id>",
		Short: "Show the strategic briefing, generating it when missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.s.Engine().GenerateBriefing(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", p.Name, p.Briefing)
			return nil
		},
	}
	brief.Flags().BoolVar(&force, "force", false, "regenerate an existing briefing")

	cmd.AddCommand(list, add, brief)
	return cmd
}
