package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sentinel/core"
)

func newKnowledgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the global knowledge base",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List knowledge fragments, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			frags, err := a.s.Store().ListKnowledge(cmd.Context(), core.ListOptions{})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAUTHORITY")
			for _, k := range frags {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, k.Title, k.Category, k.AuthorityLevel)
			}
			return tw.Flush()
		},
	}

	var frag core.KnowledgeFragment
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a knowledge fragment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := a.s.Store().CreateKnowledge(cmd.Context(), frag)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q with id %s\n", created.Title, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&frag.Title, "title", "", "fragment title")
	add.Flags().StringVar(&frag.Content, "content", "", "fragment content")
	add.Flags().StringVar(&frag.Category, "category", "General", "category")
	add.Flags().StringVar(&frag.AuthorityLevel, "authority", "operator", "authority level")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("content")

	var title, category string
	promote := &cobra.Command{
		Use:   "promote <content>",
		Short: "Promote a reply to global knowledge with architect authority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				title = promoteTitle(args[0])
			}
			k, err := a.s.Engine().PromoteKnowledge(cmd.Context(), title, args[0], category)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Promoted %q (%s) with id %s\n", k.Title, k.Category, k.ID)
			return nil
		},
	}
	promote.Flags().StringVar(&title, "title", "", "fragment title (default: first 50 characters)")
	promote.Flags().StringVar(&category, "category", "", "category (default: General)")

	cmd.AddCommand(list, add, promote)
	return cmd
}
