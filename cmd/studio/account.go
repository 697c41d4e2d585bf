package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/viewmodel"
)

func newSettingsCmd(a *app) *cobra.Command {
	loaded := func(ctx context.Context) (*viewmodel.Settings, error) {
		s := viewmodel.NewSettings(a.session, a.api, a.notify)
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show profile, appearance, workspace defaults and notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loaded(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s.Profile(), s.Notifications())
			return nil
		},
	}

	var profile profileFlags
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile, appearance or workspace defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch := profile.patch(cmd.Flags())
			if patch == (domain.ProfilePatch{}) {
				return fmt.Errorf("nothing to update; see --help")
			}
			s, err := loaded(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.UpdateProfile(cmd.Context(), patch); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s.Profile(), s.Notifications())
			return nil
		},
	}
	profile.register(update.Flags())

	notify := &cobra.Command{
		Use:       "notify <key> <on|off>",
		Short:     "Switch a notification toggle",
		Long:      "Keys: " + strings.Join(viewmodel.NotificationKeys, ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: viewmodel.NotificationKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			s, err := loaded(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetNotification(cmd.Context(), args[0], on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], onOff(on))
			return nil
		},
	}

	cmd.AddCommand(update, notify)
	return cmd
}

type profileFlags struct {
	name, profession, avatar, theme, fontSize string
	animations, compact                       bool
	model, tone, persona, format              string
}

func (p *profileFlags) register(f *pflag.FlagSet) {
	f.StringVar(&p.name, "name", "", "Display name")
	f.StringVar(&p.profession, "profession", "", "Profession, used as the default persona")
	f.StringVar(&p.avatar, "avatar", "", "Avatar URL")
	f.StringVar(&p.theme, "theme", "", "Theme: "+strings.Join(viewmodel.Themes, ", "))
	f.StringVar(&p.fontSize, "font-size", "", "Font size: "+strings.Join(viewmodel.FontSizes, ", "))
	f.BoolVar(&p.animations, "animations", true, "Enable animations")
	f.BoolVar(&p.compact, "compact", false, "Compact mode")
	f.StringVar(&p.model, "default-model", "", "Default target model")
	f.StringVar(&p.tone, "default-tone", "", "Default tone")
	f.StringVar(&p.persona, "default-persona", "", "Default persona")
	f.StringVar(&p.format, "default-format", "", "Default output format")
}

// patch sets only the fields whose flags were given.
func (p *profileFlags) patch(f *pflag.FlagSet) domain.ProfilePatch {
	str := func(name string, v *string) *string {
		if f.Changed(name) {
			return v
		}
		return nil
	}
	boolean := func(name string, v *bool) *bool {
		if f.Changed(name) {
			return v
		}
		return nil
	}
	return domain.ProfilePatch{
		DisplayName:       str("name", &p.name),
		Profession:        str("profession", &p.profession),
		AvatarURL:         str("avatar", &p.avatar),
		Theme:             str("theme", &p.theme),
		FontSize:          str("font-size", &p.fontSize),
		AnimationsEnabled: boolean("animations", &p.animations),
		CompactMode:       boolean("compact", &p.compact),
		DefaultModel:      str("default-model", &p.model),
		DefaultTone:       str("default-tone", &p.tone),
		DefaultPersona:    str("default-persona", &p.persona),
		DefaultFormat:     str("default-format", &p.format),
	}
}

func printSettings(w io.Writer, p domain.Profile, n domain.NotificationSettings) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) { fmt.Fprintf(tw, "%s\t%s\n", k, v) }
	row("Display name", orDash(p.DisplayName))
	row("Profession", orDash(p.Profession))
	row("Avatar", orDash(p.AvatarURL))
	row("Theme", orDash(p.Theme))
	row("Font size", orDash(p.FontSize))
	row("Animations", boolOr(p.AnimationsEnabled, true))
	row("Compact mode", boolOr(p.CompactMode, false))
	row("Default model", orDash(p.DefaultModel))
	row("Default tone", orDash(p.DefaultTone))
	row("Default persona", orDash(p.DefaultPersona))
	row("Default format", orDash(p.DefaultFormat))
	for _, k := range viewmodel.NotificationKeys {
		on, _ := viewmodel.Toggle(n, k)
		row(k, onOff(on))
	}
	_ = tw.Flush()
}

func boolOr(b *bool, def bool) string {
	if b == nil {
		return onOff(def)
	}
	return onOff(*b)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize your prompts, templates and recent activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			s, err := viewmodel.NewDashboard(a.api, a.notify).Load(cmd.Context(), id.UserID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hello, %s.\n\n", id.DisplayName())
			fmt.Fprintf(out, "Prompts: %d (saved %d, favorites %d, refined %d)\n",
				s.TotalPrompts, s.SavedPrompts, s.FavoritePrompts, s.RefinedPrompts)
			fmt.Fprintf(out, "Templates: %d, used %d times\n", s.OwnTemplates, s.TemplateUses)

			if len(s.ActionsByKind) > 0 {
				fmt.Fprintln(out, "\nLast 30 days:")
				kinds := make([]string, 0, len(s.ActionsByKind))
				for k := range s.ActionsByKind {
					kinds = append(kinds, k)
				}
				sort.Strings(kinds)
				for _, k := range kinds {
					fmt.Fprintf(out, "  %-20s %d\n", k, s.ActionsByKind[k])
				}
			}
			if len(s.RecentPrompts) > 0 {
				fmt.Fprintln(out, "\nRecent prompts:")
				printPrompts(out, s.RecentPrompts)
			}
			if len(s.Popular) > 0 {
				fmt.Fprintln(out, "\nPopular templates:")
				for _, t := range s.Popular {
					fmt.Fprintf(out, "  %s (%d uses)\n", t.Title, t.UsageCount)
				}
			}
			return nil
		},
	}
}
