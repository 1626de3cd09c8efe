package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/notify"
	"github.com/campushub/campushub-go/rest"
	"github.com/campushub/campushub-go/session"
	"github.com/campushub/campushub-go/tokenstore"
	"github.com/campushub/campushub-go/transport"
	"github.com/spf13/cobra"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    config
	logger *slog.Logger
	ctrl   *session.Controller
	api    *rest.Client
	feed   *notify.Poller
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "campusctl",
		Short:         "Campushub terminal client",
		Long:          "campusctl signs in to a Campushub backend and manages the session, profile, and notifications from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPasswdCmd(a),
		newProfileCmd(a),
		newNotificationsCmd(a),
	)
	return cmd
}

// init builds the SDK wiring: file token store → rest adapter → session
// controller → refresh transport → poller.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("no backend configured: set base_url in ~/.campushub/config.yaml or CAMPUSHUB_BASE_URL")
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.LogLevel)

	store := tokenstore.NewFile(cfg.CredentialsPath)
	a.api = rest.New(cfg.BaseURL, rest.WithLogger(a.logger))
	a.ctrl = session.New(store, a.api,
		session.WithLogger(a.logger),
		session.WithNotifier(termNotifier{out: cmd.OutOrStdout()}),
	)
	a.api.SetAuthHTTPClient(&http.Client{
		Transport: transport.New(nil, a.ctrl, a.ctrl, transport.WithLogger(a.logger)),
		Timeout:   cfg.Timeout,
	})
	a.feed = notify.New(a.api,
		notify.WithInterval(cfg.PollInterval),
		notify.WithLogger(a.logger),
	)
	return nil
}

// requireSession fails the command early when nobody is signed in.
func (a *app) requireSession() (campushub.Session, error) {
	s := a.ctrl.Current()
	if !s.Authenticated() {
		return s, fmt.Errorf("not signed in: run 'campusctl login' first")
	}
	return s, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
