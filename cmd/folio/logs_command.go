package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/logging"
	"folio/internal/logs"
)

const followWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines    int
		follow   bool
		bookID   string
		exportID string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent folio log lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			if path == "" {
				return errors.New("file logging is disabled (set paths.log_dir)")
			}

			opts := logs.TailOptions{Offset: -1, Limit: lines}
			switch {
			case exportID != "":
				opts.Match = logs.FieldMatch(logging.FieldExportID, exportID)
			case bookID != "":
				opts.Match = logs.FieldMatch(logging.FieldBookID, bookID)
			}

			runCtx := cmd.Context()
			if follow {
				var stop context.CancelFunc
				runCtx, stop = signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				opts.Follow = true
				opts.Wait = followWait
			}

			out := cmd.OutOrStdout()
			for {
				result, err := logs.Tail(runCtx, path, opts)
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if !follow {
					return nil
				}
				opts.Offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&bookID, "book", "", "Only show lines for this book")
	cmd.Flags().StringVar(&exportID, "export", "", "Only show lines for this export")
	return cmd
}
