package ui

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Makepad-fr/tada/internal/model"
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func visibleWidth(s string) int { return utf8.RuneCountInString(ansiRegexp.ReplaceAllString(s, "")) }

// ProgressBar renders a bar with the percentage of done items.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	if done > total {
		done = total
	}
	filled := done * width / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3d%%", bar, done*100/total)
}

// Panel draws a framed box using the current theme.
func Panel(w io.Writer, lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if n := visibleWidth(ln); n > maxw {
			maxw = n
		}
	}
	fmt.Fprintln(w, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(w, t.V+" "+ln+strings.Repeat(" ", maxw-visibleWidth(ln))+" "+t.V)
	}
	fmt.Fprintln(w, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// ItemLine is one numbered row of the plain list. Completed rows are struck
// through and marked "(done)".
func ItemLine(w io.Writer, n int, it model.Todo) string {
	t := Current()
	if it.IsCompleted {
		return fmt.Sprintf("%2d. %s %s %s", n, C(w, t.Success, t.BoxChecked), C(w, t.Done, it.Task), C(w, t.Muted, "(done)"))
	}
	return fmt.Sprintf("%2d. %s %s", n, C(w, t.Muted, t.BoxUnchecked), it.Task)
}

// ListPanel prints the signed-in list with a header of counts.
func ListPanel(w io.Writer, email string, items []model.Todo) {
	t := Current()
	done, pending := model.Stats(items)
	lines := []string{
		C(w, t.Title, "To-dos") + C(w, t.Muted, "  "+email),
		fmt.Sprintf("%s %d  %s %d  %s",
			C(w, t.Success, t.SymDone), done,
			C(w, t.Pending, t.SymPending), pending,
			ProgressBar(done, len(items), 20)),
		"",
	}
	if len(items) == 0 {
		lines = append(lines, C(w, t.Muted, "No to-dos yet."))
	}
	for i, it := range items {
		lines = append(lines, ItemLine(w, i+1, it))
	}
	Panel(w, lines)
}

// GroupedList prints pending rows first, then completed ones, keeping the
// list numbering so indexes still work with rm.
func GroupedList(w io.Writer, items []model.Todo) {
	t := Current()
	if len(items) == 0 {
		fmt.Fprintln(w, C(w, t.Muted, "No to-dos yet."))
		return
	}
	for _, group := range []struct {
		title string
		color string
		done  bool
	}{
		{"Pending", t.Pending, false},
		{"Done", t.Success, true},
	} {
		fmt.Fprintln(w, C(w, group.color, group.title))
		found := false
		for i, it := range items {
			if it.IsCompleted == group.done {
				fmt.Fprintln(w, "  "+ItemLine(w, i+1, it))
				found = true
			}
		}
		if !found {
			fmt.Fprintln(w, "  "+C(w, t.Muted, "(none)"))
		}
	}
}
