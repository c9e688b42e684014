package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
)

func useMono(t *testing.T) {
	t.Helper()
	SetTheme("mono")
	t.Cleanup(func() {
		SetTheme("classic")
		SetColorForcing(false, false)
	})
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░  50%", ProgressBar(1, 2, 10))
	assert.Equal(t, "░░░░░   0%", ProgressBar(0, 0, 1))
	assert.Equal(t, "█████ 100%", ProgressBar(9, 3, 5))
}

func TestC_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, "x", C(&buf, fgRed, "x"))

	SetColorForcing(true, false)
	t.Cleanup(func() { SetColorForcing(false, false) })
	assert.Equal(t, fgRed+"x"+reset, C(&buf, fgRed, "x"))
	assert.True(t, Colorful(&buf))
}

func TestOKFail(t *testing.T) {
	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "nope")
	assert.Equal(t, "✔ added\n✖ nope\n", buf.String())
}

func TestPanel(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	Panel(&buf, []string{"ab", "abcd"})
	assert.Equal(t, "+------+\n| ab   |\n| abcd |\n+------+\n", buf.String())
}

func TestListPanel(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	ListPanel(&buf, "a@example.com", []model.Todo{
		{ID: 1, Task: "Buy milk"},
		{ID: 2, Task: "Walk dog", IsCompleted: true},
	})
	out := buf.String()
	assert.Contains(t, out, "a@example.com")
	assert.Contains(t, out, " 1. [ ] Buy milk")
	assert.Contains(t, out, " 2. [x] Walk dog (done)")

	buf.Reset()
	ListPanel(&buf, "a@example.com", nil)
	assert.Contains(t, buf.String(), "No to-dos yet.")
}

func TestGroupedList(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	GroupedList(&buf, []model.Todo{
		{ID: 1, Task: "done one", IsCompleted: true},
		{ID: 2, Task: "open one"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Pending", lines[0])
	assert.Contains(t, lines[1], "2. [ ] open one")
	assert.Equal(t, "Done", lines[2])
	assert.Contains(t, lines[3], "1. [x] done one (done)")
}

func TestRenderMarkdown(t *testing.T) {
	assert.Empty(t, RenderMarkdown("  ", 80, false))
	out := RenderMarkdown(About, 60, false)
	assert.Contains(t, out, "tada")
	assert.Contains(t, out, "SUPABASE_URL")
}
