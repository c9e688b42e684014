package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/authgate"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/todosync"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newListCmd(stdio IO) *cobra.Command {
	var plain, group bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "Show your to-dos (interactive on a terminal)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := !plain && !group && isTerminal(stdio.Out) && isTerminal(stdio.In)
			rt, err := start(startOptions{logToFile: interactive, stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			if interactive {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				rt.watch(ctx)
				store := session.New(rt.backend, rt.log)
				return tui.Run(ctx, tui.Deps{
					Session: store,
					Exec:    todosync.Executor{Todos: rt.backend, Auth: store, Log: rt.log},
					Gate:    authgate.New(rt.backend, rt.log),
					Log:     rt.log,
				})
			}

			d := rt.synced(ctx)
			defer d.Close()
			s := d.State()
			if !s.Session.Present() {
				fmt.Fprintln(stdio.Out, ui.C(stdio.Out, ui.Current().Muted, "Sign in to view and add your to-dos."))
				return errNotSignedIn
			}
			if s.Err != "" {
				return failErr("%s", s.Err)
			}
			if group {
				ui.GroupedList(stdio.Out, s.Items)
				return nil
			}
			ui.ListPanel(stdio.Out, s.Session.User.Email, s.Items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the list instead of opening the interactive view")
	cmd.Flags().BoolVar(&group, "group", false, "print pending and done to-dos separately (implies --plain)")
	return cmd
}

func newAddCmd(stdio IO) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task...>",
		Short: "Add a to-do (the task can be several words)",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				return usageErr("add: empty task")
			}
			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			d := rt.synced(cmd.Context())
			defer d.Close()
			if !d.State().Session.Present() {
				return errNotSignedIn
			}
			d.Dispatch(todosync.InputChanged{Text: task})
			d.Dispatch(todosync.AddRequested{})

			s := d.State()
			if s.Err != "" {
				return failErr("%s", s.Err)
			}
			ui.OK(stdio.Out, "added")
			return nil
		},
	}
}

func newRemoveCmd(stdio IO) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Delete the to-do at a 1-based index (see tada ls)",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return usageErr("rm: not a number: %s", args[0])
			}
			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			d := rt.synced(cmd.Context())
			defer d.Close()
			s := d.State()
			if !s.Session.Present() {
				return errNotSignedIn
			}
			if s.Err != "" {
				return failErr("%s", s.Err)
			}
			if n < 1 || n > len(s.Items) {
				return &exitError{
					code: ExitUsage,
					msg:  fmt.Sprintf("index out of range: have %d, got %d", len(s.Items), n),
					hint: "Hint: run `tada ls` to see valid indexes",
				}
			}
			d.Dispatch(todosync.DeleteRequested{ID: s.Items[n-1].ID})
			if s = d.State(); s.Err != "" {
				return failErr("%s", s.Err)
			}
			ui.OK(stdio.Out, "removed")
			return nil
		},
	}
}
