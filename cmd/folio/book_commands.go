package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/content"
	"folio/internal/lifecycle"
	"folio/internal/services"
)

func newBookCommand(ctx *commandContext) *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Create, inspect, and advance books",
	}

	bookCmd.AddCommand(newBookCreateCommand(ctx))
	bookCmd.AddCommand(newBookListCommand(ctx))
	bookCmd.AddCommand(newBookShowCommand(ctx))
	bookCmd.AddCommand(newBookUpdateCommand(ctx))
	bookCmd.AddCommand(newBookDeleteCommand(ctx))
	bookCmd.AddCommand(newBookReviewCommand(ctx))
	bookCmd.AddCommand(newBookPublishCommand(ctx))

	return bookCmd
}

func newBookCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		in            content.BookInput
		bookType      string
		citationStyle string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book in the interview stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bookType != "" {
				parsed, ok := content.ParseBookType(bookType)
				if !ok {
					return fmt.Errorf("unknown book type %q", bookType)
				}
				in.BookType = parsed
			}
			if citationStyle != "" {
				style, ok := content.ParseCitationStyle(citationStyle)
				if !ok {
					return fmt.Errorf("unknown citation style %q", citationStyle)
				}
				settings := content.DefaultBookSettings()
				settings.CitationStyle = style
				in.Settings = &settings
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				book, err := a.lifecycle.CreateBook(cmd.Context(), caller, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created book %s (%s)\n", book.ID, book.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Book title")
	cmd.Flags().StringVar(&in.Subtitle, "subtitle", "", "Book subtitle")
	cmd.Flags().StringVar(&in.Description, "description", "", "Book description")
	cmd.Flags().StringVar(&in.TargetAudience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&bookType, "type", "", "Book type (fiction, nonfiction, guide, memoir, academic, children, other)")
	cmd.Flags().IntVar(&in.TargetWordCount, "target-words", 0, "Target word count")
	cmd.Flags().StringVar(&citationStyle, "citation-style", "", "Citation style (apa, mla, chicago_notes, chicago_author, harvard, ieee, vancouver)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newBookListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your books",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				books, err := a.lifecycle.ListBooks(cmd.Context(), caller)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, books)
				}
				if len(books) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No books")
					return nil
				}
				rows := make([][]string, 0, len(books))
				for _, b := range books {
					rows = append(rows, []string{
						b.ID,
						b.Title,
						string(b.Status),
						strconv.Itoa(b.CurrentWordCount),
						strconv.Itoa(b.TargetWordCount),
						formatTime(b.UpdatedAt),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Words", "Target", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newBookShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book and its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				book, err := a.lifecycle.GetBook(cmd.Context(), caller, args[0])
				if err != nil {
					return err
				}
				chapters, err := a.lifecycle.ListChapters(cmd.Context(), caller, book.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Book     content.Book      `json:"book"`
						Chapters []content.Chapter `json:"chapters"`
					}{book, chapters})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n", book.Title)
				if book.Subtitle != "" {
					fmt.Fprintf(out, "%s\n", book.Subtitle)
				}
				fmt.Fprintf(out, "ID:        %s\n", book.ID)
				fmt.Fprintf(out, "Status:    %s\n", book.Status)
				fmt.Fprintf(out, "Words:     %d / %d\n", book.CurrentWordCount, book.TargetWordCount)
				fmt.Fprintf(out, "Citations: %s\n", book.Settings.CitationStyle)
				fmt.Fprintf(out, "TOC:       %s\n", yesNo(book.Settings.IncludeTOC))
				if len(chapters) == 0 {
					fmt.Fprintln(out, "No chapters")
					return nil
				}
				rows := make([][]string, 0, len(chapters))
				for _, ch := range chapters {
					unresolved := len(ch.UnresolvedPlaceholders())
					rows = append(rows, []string{
						strconv.Itoa(ch.OrderIndex + 1),
						ch.ID,
						ch.Title,
						string(ch.Status),
						strconv.Itoa(ch.WordCount),
						strconv.Itoa(unresolved),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"#", "ID", "Title", "Status", "Words", "Open media"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newBookUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		title         string
		subtitle      string
		description   string
		citationStyle string
		includeTOC    bool
		numbering     bool
		images        bool
	)

	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Update book details and settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var details lifecycle.BookDetails
			if flags.Changed("title") {
				details.Title = &title
			}
			if flags.Changed("subtitle") {
				details.Subtitle = &subtitle
			}
			if flags.Changed("description") {
				details.Description = &description
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				if flags.Changed("citation-style") || flags.Changed("toc") || flags.Changed("numbering") || flags.Changed("images") {
					book, err := a.lifecycle.GetBook(cmd.Context(), caller, args[0])
					if err != nil {
						return err
					}
					settings := book.Settings
					if flags.Changed("citation-style") {
						style, ok := content.ParseCitationStyle(citationStyle)
						if !ok {
							return fmt.Errorf("unknown citation style %q", citationStyle)
						}
						settings.CitationStyle = style
					}
					if flags.Changed("toc") {
						settings.IncludeTOC = includeTOC
					}
					if flags.Changed("numbering") {
						settings.ChapterNumbering = numbering
					}
					if flags.Changed("images") {
						settings.IncludeImages = images
					}
					details.Settings = &settings
				}
				book, err := a.lifecycle.UpdateBookDetails(cmd.Context(), caller, args[0], details)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated book %s (version %d)\n", book.ID, book.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "New subtitle")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&citationStyle, "citation-style", "", "Citation style")
	cmd.Flags().BoolVar(&includeTOC, "toc", true, "Include a table of contents in exports")
	cmd.Flags().BoolVar(&numbering, "numbering", true, "Number chapters in exports")
	cmd.Flags().BoolVar(&images, "images", true, "Render media in exports")
	return cmd
}

func newBookDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				if err := a.lifecycle.DeleteBook(cmd.Context(), caller, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %s\n", args[0])
				return nil
			})
		},
	}
}

func newBookReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <book-id>",
		Short: "Move an editing book to review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				book, err := a.lifecycle.RequestReview(cmd.Context(), caller, args[0])
				if err != nil {
					return explainPrecondition(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Book %s is now %s\n", book.ID, book.Status)
				return nil
			})
		},
	}
}

func newBookPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <book-id>",
		Short: "Publish a reviewed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				book, err := a.lifecycle.Publish(cmd.Context(), caller, args[0])
				if err != nil {
					return explainPrecondition(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Book %s is now %s\n", book.ID, book.Status)
				return nil
			})
		},
	}
}

// explainPrecondition lists unmet conditions before returning err.
func explainPrecondition(cmd *cobra.Command, err error) error {
	var precondition *services.PreconditionError
	if !errors.As(err, &precondition) || len(precondition.Conditions) < 2 {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Unmet conditions:")
	for _, c := range precondition.Conditions {
		fmt.Fprintf(out, "  - %s\n", strings.TrimSpace(c))
	}
	return err
}
