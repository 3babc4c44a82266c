// Package tui is the terminal rendition of the run-settings drawer.
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"runsettings/internal/settings"
)

// Controller is the session surface the drawer drives.
type Controller interface {
	View() settings.View
	SelectModel(id string) (settings.State, error)
	Toggle(name string) (settings.State, error)
	SetEffort(effort settings.Effort) (settings.State, error)
	Reset() settings.State
	Subscribe(listener settings.Listener) func()
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	onStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	offStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

type mode int

const (
	modeDrawer mode = iota
	modePicker
	modeCustom
)

// changeMsg carries a store change into the update loop.
type changeMsg settings.Change

// Drawer is a bubbletea model over one settings session.
type Drawer struct {
	ctl     Controller
	changes chan settings.Change
	unsub   func()
	done    chan struct{}
	once    sync.Once

	mode         mode
	cursor       int
	pickerCursor int
	custom       textinput.Model

	status string
	err    error
	width  int
}

// NewDrawer subscribes to ctl; call Close when the program exits.
func NewDrawer(ctl Controller) *Drawer {
	input := textinput.New()
	input.Placeholder = "provider/model-id"
	input.CharLimit = 200

	d := &Drawer{
		ctl:     ctl,
		changes: make(chan settings.Change, 64),
		done:    make(chan struct{}),
		custom:  input,
	}
	d.unsub = ctl.Subscribe(func(change settings.Change) {
		select {
		case d.changes <- change:
		default:
		}
	})
	return d
}

// Close stops listening to the session and releases a pending listen.
func (d *Drawer) Close() {
	d.once.Do(func() {
		if d.unsub != nil {
			d.unsub()
		}
		close(d.done)
	})
}

func (d *Drawer) Init() tea.Cmd {
	return d.listen()
}

func (d *Drawer) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case change := <-d.changes:
			return changeMsg(change)
		case <-d.done:
			return nil
		}
	}
}

// rows: model, one per tool, then effort when the model reasons.
func (d *Drawer) rowCount(view settings.View) int {
	rows := 1 + len(view.Switches)
	if view.Reasoning.Visible {
		rows++
	}
	return rows
}

func (d *Drawer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.custom.Width = max(msg.Width-6, 10)
		return d, nil
	case changeMsg:
		d.describe(settings.Change(msg))
		return d, d.listen()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return d, tea.Quit
		}
		switch d.mode {
		case modePicker:
			return d.updatePicker(msg)
		case modeCustom:
			return d.updateCustom(msg)
		}
		return d.updateDrawer(msg)
	}
	return d, nil
}

func (d *Drawer) updateDrawer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := d.ctl.View()
	rows := d.rowCount(view)
	d.err = nil

	switch msg.String() {
	case "q", "esc":
		return d, tea.Quit
	case "up", "k":
		d.cursor = (d.cursor - 1 + rows) % rows
	case "down", "j":
		d.cursor = (d.cursor + 1) % rows
	case "r":
		d.ctl.Reset()
		d.cursor = 0
	case "enter", " ":
		switch {
		case d.cursor == 0:
			d.openPicker(view)
		case d.cursor <= len(view.Switches):
			_, d.err = d.ctl.Toggle(string(view.Switches[d.cursor-1].Name))
		default:
			next := settings.EffortHigh
			if view.Reasoning.Effort == settings.EffortHigh {
				next = settings.EffortStandard
			}
			_, d.err = d.ctl.SetEffort(next)
		}
	}

	if after := d.rowCount(d.ctl.View()); d.cursor >= after {
		d.cursor = after - 1
	}
	return d, nil
}

func (d *Drawer) openPicker(view settings.View) {
	d.mode = modePicker
	d.pickerCursor = 0
	for i, option := range view.Models {
		if option.Selected {
			d.pickerCursor = i
		}
	}
}

func (d *Drawer) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := d.ctl.View()
	count := len(view.Models)

	switch msg.String() {
	case "esc", "q":
		d.mode = modeDrawer
	case "up", "k":
		if count > 0 {
			d.pickerCursor = (d.pickerCursor - 1 + count) % count
		}
	case "down", "j":
		if count > 0 {
			d.pickerCursor = (d.pickerCursor + 1) % count
		}
	case "c", "/":
		if view.AllowCustom {
			d.mode = modeCustom
			d.custom.SetValue(view.CustomModel)
			return d, d.custom.Focus()
		}
	case "enter":
		if count > 0 {
			_, d.err = d.ctl.SelectModel(view.Models[d.pickerCursor].ID)
		}
		d.mode = modeDrawer
	}
	return d, nil
}

func (d *Drawer) updateCustom(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		d.custom.Blur()
		d.mode = modePicker
		return d, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(d.custom.Value())
		if value == "" {
			return d, nil
		}
		_, d.err = d.ctl.SelectModel(value)
		d.custom.Blur()
		d.custom.Reset()
		d.mode = modeDrawer
		return d, nil
	}
	var cmd tea.Cmd
	d.custom, cmd = d.custom.Update(msg)
	return d, cmd
}

// describe turns a change into the status line.
func (d *Drawer) describe(change settings.Change) {
	switch {
	case change.ModelSelected():
		d.status = "model: " + change.Next.SelectedModel
	case change.ToolSettingsChanged():
		d.status = "tools updated"
	}
}

func (d *Drawer) View() string {
	view := d.ctl.View()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Run settings"))
	b.WriteString("\n\n")

	switch d.mode {
	case modePicker:
		d.renderPicker(&b, view)
	case modeCustom:
		b.WriteString("Custom model id:\n")
		b.WriteString(d.custom.View())
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter select • esc back"))
	default:
		d.renderDrawer(&b, view)
	}

	if d.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("error: " + d.err.Error()))
	}
	if d.status != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(d.status))
	}
	return b.String()
}

func (d *Drawer) renderDrawer(b *strings.Builder, view settings.View) {
	model := view.SelectedModel
	if model == "" {
		model = dimStyle.Render("(none)")
	}
	d.row(b, 0, fmt.Sprintf("Model   %s", model))
	b.WriteString("\n")

	for i, sw := range view.Switches {
		state := offStyle.Render("off")
		if sw.Enabled {
			state = onStyle.Render("on ")
		}
		d.row(b, i+1, fmt.Sprintf("[%s] %s", state, sw.Label))
	}

	if view.Reasoning.Visible {
		b.WriteString("\n")
		d.row(b, len(view.Switches)+1,
			fmt.Sprintf("Reasoning effort  %s (%d tokens)", view.Reasoning.Effort, view.Reasoning.ThinkingTokens))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ move • enter toggle • r reset • q quit"))
}

func (d *Drawer) row(b *strings.Builder, index int, text string) {
	if index == d.cursor {
		b.WriteString(cursorStyle.Render("> " + text))
	} else {
		b.WriteString("  " + text)
	}
	b.WriteString("\n")
}

func (d *Drawer) renderPicker(b *strings.Builder, view settings.View) {
	for i, option := range view.Models {
		label := option.Label
		if label != option.ID {
			label = fmt.Sprintf("%s (%s)", option.Label, option.ID)
		}
		if option.Selected {
			label = selectedStyle.Render(label + " ✓")
		}
		if i == d.pickerCursor {
			b.WriteString(cursorStyle.Render("> ") + label)
		} else {
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}
	if view.CustomModel != "" {
		b.WriteString(dimStyle.Render("custom: " + view.CustomModel))
		b.WriteString("\n")
	}
	hint := "enter select • esc back"
	if view.AllowCustom {
		hint += " • c custom id"
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(hint))
}

// Run shows the drawer until the user quits.
func Run(ctl Controller, opts ...tea.ProgramOption) error {
	drawer := NewDrawer(ctl)
	defer drawer.Close()

	if _, err := tea.NewProgram(drawer, opts...).Run(); err != nil {
		return fmt.Errorf("run drawer: %w", err)
	}
	return nil
}
