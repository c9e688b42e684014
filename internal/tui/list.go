package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
)

const defaultListRows = 10

// todoItem adapts model.Todo to list.Item.
type todoItem struct{ model.Todo }

func (i todoItem) Title() string       { return i.Task }
func (i todoItem) Description() string { return "" }
func (i todoItem) FilterValue() string { return i.Task }

// itemDelegate draws one line per to-do.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render(">") + " "
	}
	fmt.Fprint(w, prefix+itemLine(it.Todo))
}

func itemLine(it model.Todo) string {
	if it.IsCompleted {
		return successStyle.Render(boxChecked) + " " + doneStyle.Render(it.Task) + " " + mutedStyle.Render("(done)")
	}
	return mutedStyle.Render(boxUnchecked) + " " + it.Task
}

func newTodoList(width int) list.Model {
	l := list.New(nil, itemDelegate{}, width, 1)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()
	l.Styles.PaginationStyle = mutedStyle
	return l
}

// syncList replaces the list rows with items, keeping the selection in range.
func syncList(l *list.Model, items []model.Todo, maxRows int) tea.Cmd {
	rows := make([]list.Item, 0, len(items))
	for _, it := range items {
		rows = append(rows, todoItem{it})
	}
	cmd := l.SetItems(rows)
	l.SetHeight(listHeight(len(items), maxRows))
	if n := len(items); n > 0 && l.Index() >= n {
		l.Select(n - 1)
	}
	return cmd
}

// listHeight fits at most maxRows rows plus the pagination line.
func listHeight(n, maxRows int) int {
	return min(max(n, 1), max(maxRows, 1)) + 1
}
