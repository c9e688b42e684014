// Package cli is the tada command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// exitError carries an exit code and the line printed with ui.Fail.
type exitError struct {
	code int
	msg  string
	hint string
}

func (e *exitError) Error() string { return e.msg }

func usageErr(format string, args ...any) error {
	return &exitError{code: ExitUsage, msg: fmt.Sprintf(format, args...)}
}

func failErr(format string, args ...any) error {
	return &exitError{code: ExitError, msg: fmt.Sprintf(format, args...)}
}

var errNotSignedIn = &exitError{code: ExitUsage, msg: "not signed in", hint: "Run: tada auth signin"}

// usageArgs turns cobra's argument errors into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &exitError{code: ExitUsage, msg: err.Error(), hint: "usage: " + cmd.UseLine()}
		}
		return nil
	}
}

// IO is where commands read and write.
type IO struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Run executes args and returns the process exit code.
func Run(ctx context.Context, args []string, stdio IO) int {
	root := newRootCmd(stdio)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		ee = &exitError{code: ExitError, msg: err.Error()}
	}
	if ee.msg != "" {
		ui.Fail(stdio.ErrOut, ee.msg)
	}
	if ee.hint != "" {
		fmt.Fprintln(stdio.ErrOut, ui.C(stdio.ErrOut, ui.Current().Muted, ee.hint))
	}
	return ee.code
}

type rootFlags struct {
	theme   string
	color   bool
	noColor bool
}

func newRootCmd(stdio IO) *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   "tada",
		Short: "A to-do list that follows your account",
		Long: `tada keeps your to-do list in sync with the account you are signed in
to. Sign in to see and add your to-dos; sign out and they are gone.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetTheme(flags.theme)
			ui.SetColorForcing(flags.color, flags.noColor)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &exitError{code: ExitUsage}
		},
	}
	root.SetIn(stdio.In)
	root.SetOut(stdio.Out)
	root.SetErr(stdio.ErrOut)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &exitError{code: ExitUsage, msg: err.Error(), hint: "usage: " + cmd.UseLine()}
	})

	root.PersistentFlags().StringVar(&flags.theme, "theme", "classic", "output theme (classic, neon, mono)")
	root.PersistentFlags().BoolVar(&flags.color, "color", false, "force colored output")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newListCmd(stdio),
		newAddCmd(stdio),
		newRemoveCmd(stdio),
		newAuthCmd(stdio),
		newServeCmd(stdio),
		newAboutCmd(stdio),
	)
	return root
}
