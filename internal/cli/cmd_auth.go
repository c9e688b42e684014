package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/authgate"
	"github.com/Makepad-fr/tada/internal/credstore"
	"github.com/Makepad-fr/tada/internal/todosync"
	"github.com/Makepad-fr/tada/internal/token"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newAuthCmd(stdio IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign up, sign out and inspect the stored session",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &exitError{code: ExitUsage}
		},
	}
	cmd.AddCommand(
		newCredentialsCmd(stdio, "signin", "Sign in with email and password", false),
		newCredentialsCmd(stdio, "signup", "Create an account with email and password", true),
		newSignOutCmd(stdio),
		newStatusCmd(stdio),
		newWhoAmICmd(stdio),
	)
	return cmd
}

func newCredentialsCmd(stdio IO, use, short string, signUp bool) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				if !isTerminal(stdio.In) {
					return usageErr("%s: --email and --password are required when stdin is not a terminal", use)
				}
				if err := promptCredentials(&email, &password); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return &exitError{code: ExitError}
					}
					return err
				}
			}

			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			gate := authgate.New(rt.backend, rt.log)
			var v authgate.View
			if signUp {
				v = gate.SignUp(cmd.Context(), strings.TrimSpace(email), password)
			} else {
				v = gate.SignIn(cmd.Context(), strings.TrimSpace(email), password)
			}
			if v.Failed {
				return failErr("%s", v.Message)
			}
			ui.OK(stdio.Out, v.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func promptCredentials(email, password *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(email).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("email is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	).Run()
}

func newSignOutCmd(stdio IO) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.creds.FromEnv() {
				ui.OK(stdio.Out, "token is provided by "+credstore.EnvToken+" env var (nothing to delete)")
				return nil
			}
			d := rt.synced(cmd.Context())
			defer d.Close()
			if !d.State().Session.Present() {
				ui.OK(stdio.Out, "not signed in")
				return nil
			}
			d.Dispatch(todosync.SignOutRequested{})
			if s := d.State(); s.Err != "" {
				return failErr("%s", s.Err)
			}
			ui.OK(stdio.Out, "signed out")
			return nil
		},
	}
}

func newStatusCmd(stdio IO) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are signed in",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			w := stdio.Out
			muted := ui.Current().Muted
			sess, err := rt.backend.GetSession(cmd.Context())
			if err != nil {
				return failErr("status: %v", err)
			}
			if !sess.Present() {
				fmt.Fprintln(w, ui.C(w, muted, "not signed in"))
				fmt.Fprintln(w, "Run: tada auth signin")
				return nil
			}
			source := credstore.SourceFile
			if rt.creds.FromEnv() {
				source = credstore.SourceEnv
			}
			fmt.Fprintf(w, "signed in as: %s\n", sess.User.Email)
			fmt.Fprintf(w, "user id: %s\n", sess.User.ID)
			fmt.Fprintf(w, "backend: %s\n", rt.cfg.Backend)
			fmt.Fprintf(w, "source: %s\n", source)
			if sess.ExpiresAt != nil {
				fmt.Fprintf(w, "expires: %s\n", sess.ExpiresAt.UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintln(w, "expires: (unknown)")
			}
			fmt.Fprintln(w, ui.C(w, muted, "env override: "+credstore.EnvToken))
			return nil
		},
	}
}

// whoami decodes the stored token locally; nothing is verified.
func newWhoAmICmd(stdio IO) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the claims of the stored access token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			creds, err := rt.creds.Load()
			if err != nil {
				return failErr("load credentials: %v", err)
			}
			if creds == nil {
				return errNotSignedIn
			}
			claims, err := token.Decode(creds.Token)
			if err != nil {
				fmt.Fprintln(stdio.Out, "Opaque token (cannot introspect locally).")
				fmt.Fprintln(stdio.Out, "source:", creds.Source)
				return nil
			}
			payload, err := json.MarshalIndent(claims, "", "  ")
			if err != nil {
				return failErr("encode claims: %v", err)
			}
			fmt.Fprintln(stdio.Out, "JWT payload:")
			fmt.Fprintln(stdio.Out, string(payload))
			return nil
		},
	}
}
