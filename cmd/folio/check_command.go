package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, credentials and integrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				switch {
				case r.Passed:
				case r.Optional:
					kind = statusWarn
				default:
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			return preflight.Err(results)
		},
	}
}
