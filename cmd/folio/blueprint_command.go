package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"folio/internal/blueprint"
	"folio/internal/content"
	"folio/internal/services"
)

func newBlueprintCommand(ctx *commandContext) *cobra.Command {
	blueprintCmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Expand book blueprints into chapters",
	}
	blueprintCmd.AddCommand(newBlueprintApplyCommand(ctx))
	return blueprintCmd
}

func newBlueprintApplyCommand(ctx *commandContext) *cobra.Command {
	var (
		bookID  string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "apply <file.json>",
		Short: "Create outline chapters from a blueprint file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) //nolint:gosec
			if err != nil {
				return fmt.Errorf("read blueprint: %w", err)
			}
			var bp content.BookBlueprint
			if err := json.Unmarshal(data, &bp); err != nil {
				return fmt.Errorf("parse blueprint: %w", err)
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				chapters, err := a.expander.Expand(cmd.Context(), caller, bookID, bp, blueprint.Options{Replace: replace})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created %d chapters\n", len(chapters))
				for _, ch := range chapters {
					fmt.Fprintf(out, "%d. %s (%s)\n", ch.OrderIndex+1, ch.Title, ch.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bookID, "book", "", "Book to expand into")
	cmd.Flags().BoolVar(&replace, "replace", false, "Discard existing chapters that have no words")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}
