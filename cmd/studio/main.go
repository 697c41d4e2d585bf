// Command studio is the terminal front end of Prompt Studio: sign in, refine
// and save prompts, browse the history and template library, and manage
// account settings against a studio-server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/refine"
	"github.com/tbourn/go-prompt-studio/internal/session"
	"github.com/tbourn/go-prompt-studio/internal/sysutil"
	"github.com/tbourn/go-prompt-studio/internal/viewmodel"
)

// errSignedOut is returned by commands that need an account.
var errSignedOut = errors.New("not signed in; run `studio login` first")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(client.LoadConfig).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

// app carries what every command shares. It is filled by the root command's
// pre-run and torn down by its post-run.
type app struct {
	loadConfig func() (client.Config, error)
	clientOpts []client.Option

	cfg     client.Config
	log     zerolog.Logger
	api     *client.Client
	session *session.Store
	refiner refine.Refiner
	notify  viewmodel.Notifier
	closers []func() error
}

func newRootCmd(loadConfig func() (client.Config, error), opts ...client.Option) *cobra.Command {
	a := &app{loadConfig: loadConfig, clientOpts: opts}
	var debug, pretty bool

	root := &cobra.Command{
		Use:           "studio",
		Short:         "Compose, refine and organize AI prompts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), debug, pretty)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging and HTTP tracing")
	root.PersistentFlags().BoolVar(&pretty, "pretty", true, "Human-friendly log output")

	root.AddCommand(
		newSignUpCmd(a),
		newVerifyCmd(a),
		newLoginCmd(a),
		newOAuthCmd(a),
		newLogoutCmd(a),
		newWhoAmICmd(a),
		newPromptsCmd(a),
		newTemplatesCmd(a),
		newWorkspaceCmd(a),
		newCopyCmd(a),
		newSettingsCmd(a),
		newDashboardCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context, debug, pretty bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.LogLevel, cfg.Debug = "debug", true
	}
	a.cfg = cfg

	sysutil.SetLogLevel(cfg.LogLevel)
	a.log = sysutil.NewLogger(os.Stderr, pretty, "studio")
	log.Logger = a.log
	a.notify = viewmodel.LogNotifier{Log: a.log}

	a.api = client.New(cfg, append([]client.Option{client.WithLogger(a.log)}, a.clientOpts...)...)
	a.session = session.New(a.api, session.Options{
		TokenFile:   cfg.TokenFile,
		InitTimeout: cfg.SessionInitTimeout,
		RedirectURL: cfg.RedirectURL,
		Logger:      a.log,
	})
	a.closers = append(a.closers, func() error { a.session.Close(); return nil })

	a.refiner = refine.TemplateRefiner{}
	if cfg.GeminiAPIKey != "" {
		g, err := refine.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, a.log)
		if err != nil {
			a.log.Warn().Err(err).Msg("gemini unavailable; using the built-in refiner")
		} else {
			a.refiner = g
			a.closers = append(a.closers, g.Close)
		}
	}

	a.session.Start(ctx)
	snap, err := a.session.WaitReady(ctx)
	if err != nil {
		return err
	}
	a.log.Debug().Stringer("state", snap.State).Msg("session ready")
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("shutdown")
		}
	}
	a.closers = nil
}

// identity returns the signed-in user or errSignedOut.
func (a *app) identity() (*session.Identity, error) {
	id, ok := a.session.Current()
	if !ok {
		return nil, errSignedOut
	}
	return id, nil
}
