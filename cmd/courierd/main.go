package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lmoreira/courier/internal/config"
	"github.com/lmoreira/courier/internal/daemon"
	"github.com/lmoreira/courier/internal/session"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	userFlag := flag.String("user", "", "authenticated user id (overrides config)")
	remoteFlag := flag.String("remote", "", "remote backend base URL (overrides config)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	userID := *userFlag
	remoteURL := *remoteFlag
	if cfg, err := config.Load(session.ConfigPath()); err == nil {
		if userID == "" {
			userID = cfg.UserID
		}
		if remoteURL == "" {
			remoteURL = cfg.RemoteBaseURL
		}
	}
	if err := session.ValidateUserID(userID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if remoteURL == "" {
		fmt.Fprintln(os.Stderr, "error: no remote backend configured")
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Session:       session.Session{Name: sessionName, UserID: userID},
			RemoteBaseURL: remoteURL,
		}),
	)

	app.Run()
}
