package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runsettings/internal/session"
	"runsettings/internal/settings"
)

func newTestDrawer(t *testing.T, allowCustom bool) (*Drawer, *session.Session) {
	t.Helper()
	sess := session.New("tui", "", session.Config{
		Catalog:     settings.DefaultCatalog(),
		Defaults:    settings.BuiltinDefaults(),
		AllowCustom: allowCustom,
	})
	t.Cleanup(sess.Close)
	d := NewDrawer(sess)
	t.Cleanup(d.Close)
	return d, sess
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(d *Drawer, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = d.Update(key(k))
	}
	return cmd
}

func TestDrawerTogglesToolUnderCursor(t *testing.T) {
	d, sess := newTestDrawer(t, false)

	press(d, "down", "enter")
	assert.True(t, sess.State().ToolSettings.DeepResearch)

	press(d, "down", " ")
	assert.False(t, sess.State().ToolSettings.PDF)
	assert.Contains(t, d.View(), "Deep Research")
}

func TestDrawerCursorWraps(t *testing.T) {
	d, sess := newTestDrawer(t, false)
	require.True(t, sess.View().Reasoning.Visible)

	press(d, "up")
	assert.Equal(t, len(settings.Tools)+1, d.cursor, "effort row is last for reasoning models")

	press(d, "down")
	assert.Equal(t, 0, d.cursor)
}

func TestDrawerEffortRow(t *testing.T) {
	d, sess := newTestDrawer(t, false)

	press(d, "up", "enter")
	assert.Equal(t, settings.HighEffortTokens, sess.State().ToolSettings.ThinkingTokens)
	assert.Contains(t, d.View(), "Reasoning effort  high")

	press(d, "enter")
	assert.Equal(t, 0, sess.State().ToolSettings.ThinkingTokens)
}

func TestDrawerPickerSelectsModel(t *testing.T) {
	d, sess := newTestDrawer(t, false)
	press(d, "up", "enter")
	require.Equal(t, settings.HighEffortTokens, sess.State().ToolSettings.ThinkingTokens)

	press(d, "down", "enter")
	require.Equal(t, modePicker, d.mode)
	assert.Contains(t, d.View(), "anthropic/claude-sonnet-4 ✓")

	models := sess.View().Models
	target := -1
	for i, option := range models {
		if option.ID == "openai/o4-mini" {
			target = i
		}
	}
	require.GreaterOrEqual(t, target, 0)
	for i := 0; i < target; i++ {
		press(d, "down")
	}
	press(d, "enter")

	assert.Equal(t, modeDrawer, d.mode)
	state := sess.State()
	assert.Equal(t, "openai/o4-mini", state.SelectedModel)
	assert.Equal(t, 0, state.ToolSettings.ThinkingTokens)
	assert.NotContains(t, d.View(), "Reasoning effort")
}

func TestDrawerCustomModelOnlyWhenAllowed(t *testing.T) {
	strict, _ := newTestDrawer(t, false)
	press(strict, "enter", "c")
	assert.Equal(t, modePicker, strict.mode)

	d, sess := newTestDrawer(t, true)
	press(d, "enter", "c")
	require.Equal(t, modeCustom, d.mode)

	d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("lab/model-x")})
	press(d, "enter")

	assert.Equal(t, modeDrawer, d.mode)
	assert.Equal(t, "lab/model-x", sess.State().SelectedModel)
	assert.NoError(t, d.err)
}

func TestDrawerResetAndQuit(t *testing.T) {
	d, sess := newTestDrawer(t, false)
	press(d, "down", "enter")
	require.True(t, sess.State().ToolSettings.DeepResearch)

	press(d, "r")
	assert.Equal(t, settings.Baseline(), sess.State().ToolSettings)
	assert.Equal(t, 0, d.cursor)

	cmd := press(d, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDrawerReportsChanges(t *testing.T) {
	d, sess := newTestDrawer(t, false)
	_, err := sess.SelectModel("openai/o3")
	require.NoError(t, err)

	msg := d.listen()()
	_, cmd := d.Update(msg)
	assert.NotNil(t, cmd)
	assert.Equal(t, "model: openai/o3", d.status)
}

func TestDrawerCloseReleasesListen(t *testing.T) {
	d, _ := newTestDrawer(t, false)
	listen := d.listen()

	result := make(chan tea.Msg, 1)
	go func() { result <- listen() }()
	d.Close()

	select {
	case msg := <-result:
		assert.Nil(t, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("listen still blocked after Close")
	}
	assert.Nil(t, d.listen()())
}
