package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSignUpCmd(a *app) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.session.SignUp(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.VerificationRequired || res.Session == nil {
				fmt.Fprintf(out, "Check %s for a verification link, then run `studio verify <token>`.\n", email)
				return nil
			}
			id, err := a.session.AcceptLease(cmd.Context(), res.Session)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Welcome, %s.\n", id.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Confirm an account with the emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.session.VerifyEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Email verified. Signed in as %s.\n", id.User.Email)
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.session.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", id.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newOAuthCmd(a *app) *cobra.Command {
	var callback string

	cmd := &cobra.Command{
		Use:   "oauth <provider>",
		Short: "Sign in with an OAuth provider",
		Long: "Without --callback, prints the provider URL to open in a browser. " +
			"After consent, pass the URL the browser landed on with --callback.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if strings.TrimSpace(callback) != "" {
				id, err := a.session.CompleteOAuth(cmd.Context(), callback)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Signed in as %s.\n", id.DisplayName())
				return nil
			}
			u, err := a.session.SignInWithOAuth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&callback, "callback", "", "Redirect URL reached after consent")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.SignOut(cmd.Context()); err != nil {
				// The local session is already gone.
				a.log.Warn().Err(err).Msg("remote sign-out failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", id.DisplayName(), id.User.Email)
			if p := id.Profession(); p != "" {
				fmt.Fprintf(out, "Profession: %s\n", p)
			}
			return nil
		},
	}
}
