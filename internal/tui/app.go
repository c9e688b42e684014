// Package tui is the interactive shell: the sign-in form while signed out,
// the synchronized list while signed in.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/authgate"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/todosync"
)

// Deps are the collaborators the shell drives.
type Deps struct {
	Session *session.Store
	Exec    todosync.Executor
	Gate    *authgate.Gate
	Log     zerolog.Logger
}

// eventMsg carries a synchronizer event into the update loop.
type eventMsg struct{ ev todosync.Event }

type gateDoneMsg struct{ view authgate.View }

// EventMsg wraps ev for tea.Program.Send.
func EventMsg(ev todosync.Event) tea.Msg { return eventMsg{ev} }

type field int

const (
	fieldEmail field = iota
	fieldPassword
	fieldSignIn
	fieldSignUp
	fieldCount
)

type App struct {
	ctx  context.Context
	deps Deps

	state todosync.State
	gate  authgate.View
	focus field

	email    textinput.Model
	password textinput.Model
	task     textinput.Model
	adding   bool
	list     list.Model

	keys    keyMap
	help    help.Model
	width   int
	maxRows int
	closed  bool
}

func New(ctx context.Context, deps Deps) App {
	email := textinput.New()
	email.Prompt = ""
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Prompt = ""
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	task := textinput.New()
	task.Prompt = "> "
	task.Placeholder = "New to-do..."
	task.CharLimit = 200

	return App{
		ctx:      ctx,
		deps:     deps,
		state:    todosync.NewState(),
		email:    email,
		password: password,
		task:     task,
		list:     newTodoList(80),
		keys:     defaultKeys(),
		help:     help.New(),
		width:    80,
		maxRows:  defaultListRows,
	}
}

// State is the synchronizer state the shell currently shows.
func (m App) State() todosync.State { return m.state }

func (m App) Init() tea.Cmd {
	store, ctx := m.deps.Session, m.ctx
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return eventMsg{store.GetInitialSession(ctx)}
	})
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		// title, greeting, add form, headers and help around the list
		m.maxRows = max(msg.Height-14, 3)
		m.list.SetWidth(max(msg.Width-6, 10))
		return m, syncList(&m.list, m.state.Items, m.maxRows)

	case eventMsg:
		if m.closed {
			return m, nil
		}
		return m.apply(msg.ev)

	case gateDoneMsg:
		m.gate = msg.view
		if !msg.view.Failed {
			m.password.SetValue("")
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Abort) {
			return m.quit()
		}
		if m.state.Loading {
			// controls are disabled until the current request settles
			return m, nil
		}
		switch {
		case !m.state.Session.Present():
			return m.updateGate(msg)
		case m.adding:
			return m.updateAdd(msg)
		default:
			return m.updateList(msg)
		}
	}

	var cmd tea.Cmd
	switch {
	case !m.state.Session.Present():
		cmd = m.updateFocused(msg)
	case m.adding:
		m.task, cmd = m.task.Update(msg)
	}
	return m, cmd
}

func (m App) quit() (tea.Model, tea.Cmd) {
	m.closed = true
	m.deps.Log.Debug().Msg("shell closed")
	return m, tea.Quit
}

// apply runs one event through the state machine and turns its effects into
// commands whose results come back as eventMsg.
func (m App) apply(ev todosync.Event) (tea.Model, tea.Cmd) {
	wasPresent := m.state.Session.Present()
	var effects []todosync.Effect
	m.state, effects = todosync.Transition(m.state, ev)

	if m.task.Value() != m.state.Input {
		m.task.SetValue(m.state.Input)
	}
	if wasPresent && !m.state.Session.Present() {
		m.adding = false
		m.task.Blur()
		m.setFocus(fieldEmail)
	}
	if !wasPresent && m.state.Session.Present() {
		m.email.Blur()
		m.password.Blur()
	}

	cmds := make([]tea.Cmd, 0, len(effects)+1)
	cmds = append(cmds, syncList(&m.list, m.state.Items, m.maxRows))
	for _, eff := range effects {
		cmds = append(cmds, m.execute(eff))
	}
	return m, tea.Batch(cmds...)
}

func (m App) execute(eff todosync.Effect) tea.Cmd {
	exec, ctx := m.deps.Exec, m.ctx
	return func() tea.Msg {
		return eventMsg{exec.Execute(ctx, eff)}
	}
}

func (m App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.task.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.list.SelectedItem().(todoItem); ok {
			return m.apply(todosync.DeleteRequested{ID: it.ID})
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m.apply(todosync.Refresh{})
	case key.Matches(msg, m.keys.SignOut):
		return m.apply(todosync.SignOutRequested{})
	}
	return m, nil
}

func (m App) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.adding = false
		m.task.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.apply(todosync.AddRequested{})
	}
	var cmd tea.Cmd
	m.task, cmd = m.task.Update(msg)
	m.state, _ = todosync.Transition(m.state, todosync.InputChanged{Text: m.task.Value()})
	return m, cmd
}

func (m App) updateGate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m.quit()
	case key.Matches(msg, m.keys.Next):
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		switch m.focus {
		case fieldEmail:
			m.setFocus(fieldPassword)
			return m, nil
		case fieldSignUp:
			return m.submit(true)
		default:
			return m.submit(false)
		}
	}
	return m, m.updateFocused(msg)
}

func (m *App) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return cmd
}

func (m *App) setFocus(f field) {
	m.focus = f
	m.email.Blur()
	m.password.Blur()
	switch f {
	case fieldEmail:
		m.email.Focus()
	case fieldPassword:
		m.password.Focus()
	}
}

// submit starts sign-in or sign-up. The session itself arrives later as an
// auth notification.
func (m App) submit(signUp bool) (tea.Model, tea.Cmd) {
	if m.gate.Busy {
		return m, nil
	}
	m.gate = authgate.View{Busy: true}
	gate, ctx := m.deps.Gate, m.ctx
	email, password := strings.TrimSpace(m.email.Value()), m.password.Value()
	return m, func() tea.Msg {
		if signUp {
			return gateDoneMsg{gate.SignUp(ctx, email, password)}
		}
		return gateDoneMsg{gate.SignIn(ctx, email, password)}
	}
}

func (m App) View() string {
	f := frame{
		State:  m.state,
		Gate:   m.gate,
		Focus:  m.focus,
		Adding: m.adding,
		Width:  m.width,
	}
	if !m.state.Loading {
		f.Email = m.email.View()
		f.Password = m.password.View()
		f.Task = m.task.View()
		if len(m.state.Items) > 0 {
			f.List = m.list.View()
		}
		switch {
		case !m.state.Session.Present():
			f.Help = m.help.View(gateHelp(m.keys))
		case m.adding:
			f.Help = m.help.View(addHelp(m.keys))
		default:
			f.Help = m.help.View(listHelp(m.keys))
		}
	}
	return render(f)
}
