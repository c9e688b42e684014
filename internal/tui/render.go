package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/authgate"
	"github.com/Makepad-fr/tada/internal/todosync"
)

const (
	textLoading    = "Loading application..."
	textSignInHint = "Sign in to view and add your to-dos."
	textEmpty      = "No to-dos yet."
	textBusy       = "Processing..."
)

// frame is everything one screen depends on. Input fields arrive already
// rendered by their bubbles so render stays a plain function.
type frame struct {
	State  todosync.State
	Gate   authgate.View
	Focus  field
	Adding bool
	Width  int

	Email    string
	Password string
	Task     string
	List     string
	Help     string
}

func render(f frame) string {
	if f.State.Loading {
		return textLoading + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("tada") + "\n\n")

	if f.State.Session.Present() {
		b.WriteString(renderGreeting(f))
	} else {
		b.WriteString(renderGate(f))
	}

	b.WriteString("\n" + titleStyle.Render("My to-dos") + "\n")
	if f.State.Err != "" {
		b.WriteString(errorStyle.Render("Error: "+f.State.Err) + "\n")
	}
	b.WriteString(renderItems(f))

	out := b.String()
	if f.Width > 4 {
		out = panelStyle.Width(f.Width - 2).Render(strings.TrimRight(out, "\n"))
	} else {
		out = panelStyle.Render(strings.TrimRight(out, "\n"))
	}
	if f.Help != "" {
		out += "\n" + f.Help
	}
	return out + "\n"
}

func renderGreeting(f frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello, %s!  %s\n", accentStyle.Render(f.State.Session.User.Email), mutedStyle.Render("[s] sign out"))
	if f.Adding {
		b.WriteString(panelStyle.Render("Add a to-do\n"+f.Task) + "\n")
	} else {
		b.WriteString(mutedStyle.Render("[a] add a to-do") + "\n")
	}
	return b.String()
}

func renderGate(f frame) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in / Sign up") + "\n")
	b.WriteString(label("Email:    ", f.Focus == fieldEmail) + f.Email + "\n")
	b.WriteString(label("Password: ", f.Focus == fieldPassword) + f.Password + "\n")

	if f.Gate.Message != "" {
		style := successStyle
		if f.Gate.Failed {
			style = errorStyle
		}
		b.WriteString(style.Render(f.Gate.Message) + "\n")
	}

	signIn, signUp := "Sign in", "Sign up"
	if f.Gate.Busy {
		signIn, signUp = textBusy, textBusy
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		button(signIn, f.Focus == fieldSignIn), " ", button(signUp, f.Focus == fieldSignUp)) + "\n")
	return b.String()
}

func renderItems(f frame) string {
	switch {
	case !f.State.Session.Present():
		return mutedStyle.Render(textSignInHint) + "\n"
	case len(f.State.Items) == 0:
		return mutedStyle.Render(textEmpty) + "\n"
	}
	return strings.TrimRight(f.List, " \n") + "\n"
}

func label(s string, focused bool) string {
	if focused {
		return accentStyle.Render(s)
	}
	return s
}

func button(s string, focused bool) string {
	if focused {
		return buttonStyle.Inherit(selectedStyle).Render(s)
	}
	return buttonStyle.Render(s)
}
