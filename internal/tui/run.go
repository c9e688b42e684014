package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/todosync"
)

// Run shows the shell until the user quits. Auth notifications are forwarded
// into the program for as long as it runs and released on return.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := deps.Session.Subscribe(func(ev todosync.Event) {
		p.Send(EventMsg(ev))
	})
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
