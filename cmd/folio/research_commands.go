package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"folio/internal/services"
)

func newResearchCommand(ctx *commandContext) *cobra.Command {
	var catalogPath string

	researchCmd := &cobra.Command{
		Use:   "research",
		Short: "Find citations and media for a book",
	}
	researchCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "JSON catalog of media and sources")

	researchCmd.AddCommand(newResearchTopicCommand(ctx, &catalogPath))
	researchCmd.AddCommand(newResearchMediaCommand(ctx, &catalogPath))
	researchCmd.AddCommand(newResearchCitationsCommand(ctx))
	researchCmd.AddCommand(newResearchCaptionCommand(ctx))

	return researchCmd
}

func newResearchTopicCommand(ctx *commandContext, catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "topic <book-id> <topic>",
		Short: "Store credible sources for a topic as citations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				resolver, err := a.resolver(*catalogPath)
				if err != nil {
					return err
				}
				citations, err := resolver.ResearchTopic(cmd.Context(), caller, args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Stored %d citations\n", len(citations))
				for _, c := range citations {
					fmt.Fprintf(out, "[cite:%s] %s\n", c.ID, c.Title)
				}
				return nil
			})
		},
	}
}

func newResearchMediaCommand(ctx *commandContext, catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "media <chapter-id>",
		Short: "Resolve a chapter's open media placeholders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				resolver, err := a.resolver(*catalogPath)
				if err != nil {
					return err
				}
				resolved, err := resolver.ResolvePlaceholders(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d placeholders\n", resolved)
				return nil
			})
		},
	}
}

func newResearchCitationsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "citations <book-id>",
		Short: "List a book's citations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				resolver, err := a.resolver("")
				if err != nil {
					return err
				}
				citations, err := resolver.ListCitations(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, citations)
				}
				if len(citations) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No citations")
					return nil
				}
				rows := make([][]string, 0, len(citations))
				for _, c := range citations {
					rows = append(rows, []string{
						c.ID,
						c.Title,
						orDash(c.PublicationDate),
						strconv.FormatFloat(c.CredibilityScore, 'f', 2, 64),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Published", "Credibility"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newResearchCaptionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "caption <asset-id> <caption>",
		Short: "Replace a media asset's caption",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				resolver, err := a.resolver("")
				if err != nil {
					return err
				}
				asset, err := resolver.UpdateCaption(cmd.Context(), caller, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Caption for %s set to %q\n", asset.ID, asset.Caption)
				return nil
			})
		},
	}
}
