package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/content"
	"folio/internal/services"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Request and manage book exports",
	}

	exportCmd.AddCommand(newExportRequestCommand(ctx))
	exportCmd.AddCommand(newExportListCommand(ctx))
	exportCmd.AddCommand(newExportCancelCommand(ctx))
	exportCmd.AddCommand(newExportRenderCommand(ctx))

	return exportCmd
}

func newExportRequestCommand(ctx *commandContext) *cobra.Command {
	var (
		format   string
		noCover  bool
		noTOC    bool
		pageSize string
		fontSize int
		voiceID  string
	)

	cmd := &cobra.Command{
		Use:   "request <book-id>",
		Short: "Queue an export of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := content.ParseExportFormat(format)
			if !ok {
				return fmt.Errorf("unknown export format %q", format)
			}
			flags := cmd.Flags()
			custom := flags.Changed("no-cover") || flags.Changed("no-toc") || flags.Changed("page-size") ||
				flags.Changed("font-size") || flags.Changed("voice")
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				var settings *content.ExportSettings
				if custom {
					book, err := a.lifecycle.GetBook(cmd.Context(), caller, args[0])
					if err != nil {
						return err
					}
					s := content.DefaultExportSettings(book.Settings)
					if noCover {
						s.IncludeCover = false
					}
					if noTOC {
						s.IncludeTOC = false
					}
					if pageSize != "" {
						s.PageSize = content.PageSize(pageSize)
					}
					if fontSize > 0 {
						s.FontSize = fontSize
					}
					s.VoiceID = voiceID
					settings = &s
				}
				exp, err := a.exports.RequestExport(cmd.Context(), caller, args[0], parsed, settings)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s export %s\n", exp.Format, exp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", string(content.FormatEPUB), "Export format (epub, pdf, pdf_print, audiobook, html, kdp, ingram)")
	cmd.Flags().BoolVar(&noCover, "no-cover", false, "Omit the cover page")
	cmd.Flags().BoolVar(&noTOC, "no-toc", false, "Omit the table of contents")
	cmd.Flags().StringVar(&pageSize, "page-size", "", "Page size (letter, a4, 6x9, 5x8)")
	cmd.Flags().IntVar(&fontSize, "font-size", 0, "Body font size in points")
	cmd.Flags().StringVar(&voiceID, "voice", "", "Narration voice for audiobook exports")
	return cmd
}

func newExportListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <book-id>",
		Short: "List a book's exports, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				exports, err := a.exports.ListExports(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, exports)
				}
				if len(exports) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No exports")
					return nil
				}
				rows := make([][]string, 0, len(exports))
				for _, e := range exports {
					detail := e.FileURL
					if e.Status == content.ExportFailed {
						detail = e.ErrorMessage
					}
					rows = append(rows, []string{
						e.ID,
						string(e.Format),
						string(e.Status),
						formatTime(e.CreatedAt),
						formatTimePtr(e.CompletedAt),
						orDash(detail),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Format", "Status", "Requested", "Completed", "Result"},
					rows,
					nil,
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newExportCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <export-id>",
		Short: "Cancel an export that has not produced its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				exp, err := a.exports.Cancel(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Export %s is %s (%s)\n", exp.ID, exp.Status, exp.ErrorMessage)
				return nil
			})
		},
	}
}

func newExportRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <export-id>",
		Short: "Render a queued export in this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				if _, err := a.exports.GetExport(cmd.Context(), caller, args[0]); err != nil {
					return err
				}
				if err := a.exports.Render(cmd.Context(), args[0]); err != nil {
					return err
				}
				exp, err := a.exports.GetExport(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch exp.Status {
				case content.ExportComplete:
					fmt.Fprintf(out, "Export %s complete: %s\n", exp.ID, exp.FileURL)
				default:
					fmt.Fprintf(out, "Export %s %s: %s\n", exp.ID, exp.Status, exp.ErrorMessage)
				}
				return nil
			})
		},
	}
}
