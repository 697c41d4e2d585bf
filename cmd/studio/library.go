package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/viewmodel"
)

const previewLen = 60

func newPromptsCmd(a *app) *cobra.Command {
	var saved, favorites bool
	var search string
	var limit int

	filter := func() viewmodel.PromptFilter {
		switch {
		case favorites:
			return viewmodel.Favorites
		case saved:
			return viewmodel.Saved
		default:
			return viewmodel.History
		}
	}
	// loaded returns the list for the current filter, fetched for the
	// signed-in user.
	loaded := func(ctx context.Context) (*viewmodel.PromptList, error) {
		id, err := a.identity()
		if err != nil {
			return nil, err
		}
		l := viewmodel.NewPromptList(a.api, filter(), a.notify)
		l.Limit = limit
		if err := l.Load(ctx, id.UserID()); err != nil {
			return nil, err
		}
		return l, nil
	}

	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List prompt history, saved prompts or favorites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := loaded(cmd.Context())
			if err != nil {
				return err
			}
			items := l.Search(search)
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s prompts.\n", l.Filter())
				return nil
			}
			printPrompts(cmd.OutOrStdout(), items)
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.BoolVar(&saved, "saved", false, "Only saved prompts")
	pf.BoolVar(&favorites, "favorites", false, "Only favorite prompts")
	pf.IntVar(&limit, "limit", 0, "Fetch at most this many prompts")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by text")
	cmd.MarkFlagsMutuallyExclusive("saved", "favorites")

	mutate := func(use, short string, args cobra.PositionalArgs, do func(context.Context, *viewmodel.PromptList, []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := loaded(cmd.Context())
				if err != nil {
					return err
				}
				if err := do(cmd.Context(), l, args); err != nil {
					return err
				}
				if p, ok := l.Get(args[0]); ok {
					printPrompts(cmd.OutOrStdout(), []domain.Prompt{p})
				}
				return nil
			},
		}
	}
	cmd.AddCommand(
		mutate("favorite <id>", "Toggle the favorite flag", cobra.ExactArgs(1),
			func(ctx context.Context, l *viewmodel.PromptList, args []string) error {
				return l.ToggleFavorite(ctx, args[0])
			}),
		mutate("save <id>", "Toggle the saved flag", cobra.ExactArgs(1),
			func(ctx context.Context, l *viewmodel.PromptList, args []string) error {
				return l.ToggleSaved(ctx, args[0])
			}),
		mutate("rename <id> <title>", "Set a prompt's title", cobra.ExactArgs(2),
			func(ctx context.Context, l *viewmodel.PromptList, args []string) error {
				return l.Rename(ctx, args[0], args[1])
			}),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a prompt and its attachments",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := loaded(cmd.Context())
				if err != nil {
					return err
				}
				if err := l.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func printPrompts(w io.Writer, items []domain.Prompt) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFLAGS\tTITLE\tPROMPT\tCREATED")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, flags(p), orDash(p.Title), preview(p.InitialPrompt), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func flags(p domain.Prompt) string {
	f := []byte("--")
	if p.IsSaved {
		f[0] = 'S'
	}
	if p.IsFavorited {
		f[1] = '*'
	}
	return string(f)
}

func newTemplatesCmd(a *app) *cobra.Command {
	var category, search string

	newLibrary := func() *viewmodel.TemplateLibrary {
		l := viewmodel.NewTemplateLibrary(a.api, a.api, a.notify)
		if id, ok := a.session.Current(); ok {
			l.SetOwner(id.UserID())
		}
		l.SetCategory(category)
		return l
	}
	library := func(ctx context.Context) (*viewmodel.TemplateLibrary, error) {
		l := newLibrary()
		if err := l.Load(ctx); err != nil {
			return nil, err
		}
		return l, nil
	}

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse the template library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Search spans every category; --category only narrows a plain listing.
			items, err := newLibrary().Search(cmd.Context(), search)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tUSES\tTITLE\tTAGS")
			for _, t := range items {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.ID, t.Category, t.UsageCount, t.Title, strings.Join(t.Tags, ","))
			}
			return tw.Flush()
		},
	}
	cmd.PersistentFlags().StringVarP(&category, "category", "c", viewmodel.AllCategories, "Category filter")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search titles and descriptions in every category")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "categories",
			Short: "List template categories",
			RunE: func(cmd *cobra.Command, _ []string) error {
				l, err := library(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(l.Categories(), "\n"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "use <id>",
			Short: "Print a template's prompt and count the use",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := library(cmd.Context())
				if err != nil {
					return err
				}
				t, err := l.Use(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.TemplatePrompt)
				return nil
			},
		},
		newTemplateCreateCmd(a),
	)
	return cmd
}

func newTemplateCreateCmd(a *app) *cobra.Command {
	var in domain.NewTemplate
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a template to your library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.identity(); err != nil {
				return err
			}
			if description != "" {
				in.Description = &description
			}
			l := viewmodel.NewTemplateLibrary(a.api, a.api, a.notify)
			t, err := l.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template created: %s - %s\n", t.ID, t.Title)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "Title (required)")
	f.StringVar(&in.Category, "category", "", "Category (required)")
	f.StringVar(&in.TemplatePrompt, "prompt", "", "Template text (required)")
	f.StringVar(&description, "description", "", "Description")
	f.StringSliceVar(&in.Tags, "tags", nil, "Comma separated tags")
	f.BoolVar(&in.IsPublic, "public", false, "Share with every user")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}

// preview shortens s to one line of at most previewLen runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	r := []rune(s)
	return string(r[:previewLen-3]) + "..."
}
