package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/content"
	"folio/internal/services"
)

func newQualityCommand(ctx *commandContext) *cobra.Command {
	qualityCmd := &cobra.Command{
		Use:   "quality",
		Short: "Assess manuscript quality",
	}
	qualityCmd.AddCommand(newQualityCheckCommand(ctx))
	qualityCmd.AddCommand(newQualityHistoryCommand(ctx))
	return qualityCmd
}

func newQualityCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check <book-id>",
		Short: "Run every analyzer and store a quality report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				report, err := a.quality.Assess(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				renderReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newQualityHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <book-id>",
		Short: "List stored quality reports, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				reports, err := a.quality.ListReports(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No quality reports")
					return nil
				}
				rows := make([][]string, 0, len(reports))
				for _, r := range reports {
					rows = append(rows, []string{
						formatTime(r.CreatedAt),
						strconv.FormatFloat(r.OverallScore, 'f', 1, 64),
						yesNo(r.Partial),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Created", "Overall", "Partial"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
}

func renderReport(cmd *cobra.Command, report *content.QualityReport) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Plagiarism", formatScore(report.Plagiarism.Available, report.Plagiarism.Score), strconv.Itoa(len(report.Plagiarism.Matches))},
		{"Grammar", formatScore(report.Grammar.Available, report.Grammar.Score), strconv.Itoa(len(report.Grammar.Issues))},
		{"Readability", formatScore(report.Readability.Available, report.Readability.Score), "-"},
		{"Accessibility", formatScore(report.Accessibility.Available, report.Accessibility.Score), strconv.Itoa(len(report.Accessibility.Issues))},
	}
	fmt.Fprint(out, renderTable(
		[]string{"Check", "Score", "Findings"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Overall: %.1f\n", report.OverallScore)
	if report.Partial {
		fmt.Fprintf(out, "Partial report; unavailable: %s\n", strings.Join(report.Unavailable, ", "))
	}
}

func formatScore(available bool, score *float64) string {
	if !available || score == nil {
		return "unavailable"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}
