package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders content for a terminal of the given width, falling
// back to the raw text if glamour fails.
func RenderMarkdown(content string, width int, color bool) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// About is the text of `tada about`.
const About = `# tada

A to-do list that follows your account.

Sign in with an email and password and your to-dos appear; sign out and they
are gone from the screen. Every row belongs to the user who created it.

## Commands

- ` + "`tada ls`" + ` opens the interactive list (` + "`--plain`" + ` prints it)
- ` + "`tada add <task>`" + ` adds a to-do
- ` + "`tada rm <n>`" + ` deletes the n-th to-do
- ` + "`tada auth signin | signup | signout | status | whoami`" + `
- ` + "`tada serve`" + ` exposes the list over HTTP

## Backends

- **supabase** (default): set ` + "`SUPABASE_URL`" + ` and ` + "`SUPABASE_ANON_KEY`" + `
- **local**: ` + "`TADA_BACKEND=local`" + ` keeps users and rows in a SQLite file
`
