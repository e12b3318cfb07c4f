package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/content"
	"folio/internal/lifecycle"
	"folio/internal/services"
)

func newChapterCommand(ctx *commandContext) *cobra.Command {
	chapterCmd := &cobra.Command{
		Use:   "chapter",
		Short: "Write and arrange chapters",
	}

	chapterCmd.AddCommand(newChapterAddCommand(ctx))
	chapterCmd.AddCommand(newChapterWriteCommand(ctx))
	chapterCmd.AddCommand(newChapterAdvanceCommand(ctx))
	chapterCmd.AddCommand(newChapterRemoveCommand(ctx))
	chapterCmd.AddCommand(newChapterReorderCommand(ctx))
	chapterCmd.AddCommand(newChapterPlaceholderCommand(ctx))

	return chapterCmd
}

func newChapterAddCommand(ctx *commandContext) *cobra.Command {
	var (
		in       content.ChapterInput
		position int
	)

	cmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add a chapter to a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if position > 0 {
				position--
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				ch, err := a.lifecycle.AddChapter(cmd.Context(), caller, args[0], in, position)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s\n", ch.Label(), ch.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Chapter title")
	cmd.Flags().StringVar(&in.Summary, "summary", "", "Chapter summary")
	cmd.Flags().IntVar(&in.TargetWordCount, "target-words", 0, "Target word count")
	cmd.Flags().StringSliceVar(&in.ResearchTopics, "topic", nil, "Research topic (repeatable)")
	cmd.Flags().IntVar(&position, "position", lifecycle.Append, "1-based position (default: append)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newChapterWriteCommand(ctx *commandContext) *cobra.Command {
	var text, file string

	cmd := &cobra.Command{
		Use:   "write <chapter-id>",
		Short: "Replace a chapter's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readText(cmd, text, file)
			if err != nil {
				return err
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				ch, err := a.lifecycle.UpdateChapterContent(cmd.Context(), caller, args[0], body)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %d words (%s)\n", ch.Label(), ch.WordCount, ch.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Chapter text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read chapter text from a file (- for stdin)")
	return cmd
}

func newChapterAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <chapter-id>",
		Short: "Move a chapter to its next status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				ch, err := a.lifecycle.AdvanceChapter(cmd.Context(), caller, args[0])
				if err != nil {
					return explainPrecondition(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", ch.Label(), ch.Status)
				return nil
			})
		},
	}
}

func newChapterRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <chapter-id>",
		Short: "Remove a chapter and its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				if err := a.lifecycle.RemoveChapter(cmd.Context(), caller, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed chapter %s\n", args[0])
				return nil
			})
		},
	}
}

func newChapterReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <book-id> <chapter-id>...",
		Short: "Set the order of every chapter in a book",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				chapters, err := a.lifecycle.ReorderChapters(cmd.Context(), caller, args[0], args[1:])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, ch := range chapters {
					fmt.Fprintf(out, "%d. %s\n", ch.OrderIndex+1, ch.Title)
				}
				return nil
			})
		},
	}
}

func newChapterPlaceholderCommand(ctx *commandContext) *cobra.Command {
	var (
		kind string
		in   lifecycle.PlaceholderInput
	)

	cmd := &cobra.Command{
		Use:   "placeholder <chapter-id>",
		Short: "Reserve a media slot in a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := content.ParsePlaceholderType(kind)
			if !ok {
				return fmt.Errorf("unknown placeholder type %q", kind)
			}
			in.Type = parsed
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				p, err := a.lifecycle.AddPlaceholder(cmd.Context(), caller, args[0], in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s placeholder %s; reference it with [media:%s]\n", p.Type, p.ID, p.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(content.PlaceholderImage), "Placeholder type")
	cmd.Flags().StringVar(&in.Description, "description", "", "What the media should show")
	cmd.Flags().IntVar(&in.Position, "position", 0, "Position within the chapter")
	cmd.Flags().BoolVar(&in.Required, "required", false, "Block review until resolved")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newSectionCommand(ctx *commandContext) *cobra.Command {
	sectionCmd := &cobra.Command{
		Use:   "section",
		Short: "Write chapter sections",
	}

	sectionCmd.AddCommand(newSectionAddCommand(ctx))
	sectionCmd.AddCommand(newSectionWriteCommand(ctx))

	return sectionCmd
}

func newSectionAddCommand(ctx *commandContext) *cobra.Command {
	var (
		title    string
		text     string
		file     string
		position int
	)

	cmd := &cobra.Command{
		Use:   "add <chapter-id>",
		Short: "Add a section to a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := ""
			if file != "" || cmd.Flags().Changed("text") {
				var err error
				if body, err = readText(cmd, text, file); err != nil {
					return err
				}
			}
			if position > 0 {
				position--
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				sec, err := a.lifecycle.AddSection(cmd.Context(), caller, args[0], title, body, position)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added section %q as %s\n", sec.Title, sec.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Section title")
	cmd.Flags().StringVar(&text, "text", "", "Section text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read section text from a file (- for stdin)")
	cmd.Flags().IntVar(&position, "position", lifecycle.Append, "1-based position (default: append)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newSectionWriteCommand(ctx *commandContext) *cobra.Command {
	var title, text, file string

	cmd := &cobra.Command{
		Use:   "write <section-id>",
		Short: "Replace a section's title or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readText(cmd, text, file)
			if err != nil {
				return err
			}
			return ctx.withCaller(cmd, func(a *app, caller services.Identity) error {
				sec, err := a.lifecycle.UpdateSectionContent(cmd.Context(), caller, args[0], title, body)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved section %q: %d words\n", sec.Title, sec.WordCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Section title (empty keeps the current title)")
	cmd.Flags().StringVar(&text, "text", "", "Section text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read section text from a file (- for stdin)")
	return cmd
}
