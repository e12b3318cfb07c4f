package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"folio/internal/content"
	"folio/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background export worker",
	}
	workerCmd.AddCommand(newWorkerRunCommand(ctx))
	workerCmd.AddCommand(newWorkerStatusCommand(ctx))
	return workerCmd
}

func newWorkerRunCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render queued exports until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				manager := worker.NewManager(a.cfg, a.store, a.exports, a.logger)
				if once {
					processed, err := manager.Drain(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %d exports\n", processed)
					return nil
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				if err := manager.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Worker running with %d goroutines; press Ctrl+C to stop\n", a.cfg.Export.Workers)
				<-runCtx.Done()
				manager.Stop()
				fmt.Fprintln(cmd.OutOrStdout(), "Worker stopped")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process the queue until empty, then exit")
	return cmd
}

func newWorkerStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show export counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				manager := worker.NewManager(a.cfg, a.store, a.exports, a.logger)
				summary := manager.Status(context.WithoutCancel(cmd.Context()))
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Lock: %s\n", summary.LockPath)
				rows := buildExportStatusRows(summary.ExportStats)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No exports")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func buildExportStatusRows(stats map[content.ExportStatus]int) [][]string {
	statuses := make([]string, 0, len(stats))
	for status, count := range stats {
		if count > 0 {
			statuses = append(statuses, string(status))
		}
	}
	sort.Strings(statuses)
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, strconv.Itoa(stats[content.ExportStatus(status)])})
	}
	return rows
}
