package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/viewmodel"
)

type workspaceFlags struct {
	open, prompt, link, title string
	config                    viewmodel.PromptConfig
	files                     []string
	refine, save              bool
	chat                      []string
	rating                    int
	feedback                  string
}

func newWorkspaceCmd(a *app) *cobra.Command {
	var f workspaceFlags

	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Refine a prompt, attach files, save it and chat about it",
		Example: `  studio workspace --prompt "Write a product announcement" --tone formal --save
  studio workspace --link "studio://workspace?prompt=Summarize%20this" --file notes.pdf --save
  studio workspace --open <id> --chat "Make it shorter"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := viewmodel.NewWorkspace(a.api, a.refiner, a.session, a.notify)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if f.open != "" {
				if _, err := a.identity(); err != nil {
					return err
				}
				if err := w.Open(ctx, f.open); err != nil {
					return err
				}
			}
			switch {
			case f.link != "":
				if err := w.Prefill(f.link); err != nil {
					return err
				}
			case f.prompt != "":
				w.SetPrompt(f.prompt)
			}
			if f.title != "" {
				w.SetTitle(f.title)
			}
			w.SetConfig(mergeConfig(w.Draft().Config, f.config))
			if id, ok := a.session.Current(); ok {
				w.ApplyProfileDefaults(id.Profile)
			}

			for _, path := range f.files {
				file, closer, err := client.OpenFile(path)
				if err != nil {
					return err
				}
				defer closer.Close()
				if errs := w.AddFiles(file); len(errs) > 0 {
					return errs[0]
				}
			}

			// An opened prompt keeps its stored refinement unless new text is given.
			fresh := f.open == "" || f.prompt != "" || f.link != ""
			if f.refine && fresh && strings.TrimSpace(w.Draft().InitialPrompt) != "" {
				refined, err := w.Refine(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, refined)
			}

			if f.save {
				p, err := w.Save(ctx)
				if p != nil {
					fmt.Fprintf(out, "\nSaved prompt %s with %d attachment(s).\n", p.ID, len(w.Attachments()))
				}
				if err != nil {
					return err
				}
			}

			for _, msg := range f.chat {
				reply, err := w.SendChat(ctx, msg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n> %s\n%s\n", msg, reply.Content)
			}

			if f.rating > 0 || f.feedback != "" {
				if err := w.Rate(ctx, feedback(f.rating, f.feedback)); err != nil {
					return err
				}
				fmt.Fprintln(out, "Feedback recorded.")
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.open, "open", "", "Open a stored prompt by id")
	fl.StringVarP(&f.prompt, "prompt", "p", "", "Initial prompt text")
	fl.StringVar(&f.link, "link", "", "Deep link carrying a prompt parameter")
	fl.StringVar(&f.title, "title", "", "Title used when saving")
	fl.StringVar(&f.config.TargetModel, "model", "", "Target model label")
	fl.StringVar(&f.config.Tone, "tone", "", "Tone label")
	fl.StringVar(&f.config.Persona, "persona", "", "Persona label")
	fl.StringVar(&f.config.OutputFormat, "format", "", "Output format label")
	fl.StringArrayVarP(&f.files, "file", "f", nil, "Attach a file (repeatable)")
	fl.BoolVar(&f.refine, "refine", true, "Refine new prompt text")
	fl.BoolVar(&f.save, "save", false, "Save the prompt and upload attachments")
	fl.StringArrayVar(&f.chat, "chat", nil, "Send a refinement chat message (repeatable)")
	fl.IntVar(&f.rating, "rate", 0, "Rate the saved prompt from 1 to 5")
	fl.StringVar(&f.feedback, "feedback", "", "Feedback text for the saved prompt")
	cmd.MarkFlagsMutuallyExclusive("prompt", "link")
	return cmd
}

// mergeConfig overlays the non-empty labels of flags onto base.
func mergeConfig(base, flags viewmodel.PromptConfig) viewmodel.PromptConfig {
	pick := func(b, f string) string {
		if f != "" {
			return f
		}
		return b
	}
	return viewmodel.PromptConfig{
		TargetModel:  pick(base.TargetModel, flags.TargetModel),
		Tone:         pick(base.Tone, flags.Tone),
		Persona:      pick(base.Persona, flags.Persona),
		OutputFormat: pick(base.OutputFormat, flags.OutputFormat),
	}
}

func feedback(rating int, text string) domain.NewFeedback {
	var fb domain.NewFeedback
	if rating > 0 {
		fb.Rating = &rating
	}
	if text != "" {
		fb.FeedbackText = &text
	}
	return fb
}

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Print a stored prompt's refined text, or its initial text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.identity(); err != nil {
				return err
			}
			w := viewmodel.NewWorkspace(a.api, a.refiner, a.session, a.notify)
			if err := w.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			text, err := w.CopyText(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text+"\n")
			return err
		},
	}
}
