package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var tokenFlag string

	ctx := newCommandContext(&configFlag, &tokenFlag)

	rootCmd := &cobra.Command{
		Use:           "folio",
		Short:         "Folio book production CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (defaults to $FOLIO_TOKEN)")

	rootCmd.AddCommand(newBookCommand(ctx))
	rootCmd.AddCommand(newChapterCommand(ctx))
	rootCmd.AddCommand(newSectionCommand(ctx))
	rootCmd.AddCommand(newBlueprintCommand(ctx))
	rootCmd.AddCommand(newQualityCommand(ctx))
	rootCmd.AddCommand(newResearchCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newWorkerCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
