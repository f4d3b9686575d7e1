// Package tui is an interactive terminal front-end over the controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/controller"
)

// Controller is the part of *controller.Controller the UI drives.
type Controller interface {
	Snapshot() controller.View
	Changes() <-chan struct{}
	AddTask(title string)
	UpdateTask(id int64, title string)
	ToggleTask(id int64, completed bool)
	DeleteTask(id int64)
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("243"))
	pendingStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

type Model struct {
	ctrl    Controller
	view    controller.View
	cursor  int
	mode    mode
	input   textinput.Model
	editing int64
	status  string
}

type changedMsg struct{}

type closedMsg struct{}

func New(ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = 256
	ti.Width = 48

	return Model{
		ctrl:  ctrl,
		view:  ctrl.Snapshot(),
		input: ti,
	}
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller) error {
	program := tea.NewProgram(New(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return changedMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.ctrl.Changes())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m = m.refresh()
		return m, waitForChange(m.ctrl.Changes())
	case closedMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		if msg.Width > 10 {
			m.input.Width = msg.Width - 10
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeEdit:
			return m.updateEdit(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) refresh() Model {
	m.view = m.ctrl.Snapshot()
	m.cursor = clampCursor(m.cursor, len(m.view.Todos))
	if m.mode == modeEdit {
		i := m.indexOf(m.editing)
		if i < 0 {
			m = m.leaveInput()
			m.status = "Todo was removed while editing"
			return m
		}
		m.cursor = i
	}
	return m
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor = clampCursor(m.cursor-1, len(m.view.Todos))
	case "down", "j":
		m.cursor = clampCursor(m.cursor+1, len(m.view.Todos))
	case "a":
		m.mode = modeAdd
		m.input.SetValue("")
		m.status = ""
		cmd := m.input.Focus()
		return m, cmd
	case "e", "enter":
		todo, ok := m.current()
		if !ok {
			return m, nil
		}
		if todo.IsTemporary() {
			m.status = "Still saving, try again in a moment"
			return m, nil
		}
		m.mode = modeEdit
		m.editing = todo.ID
		m.input.SetValue(todo.Title)
		m.input.CursorEnd()
		m.status = ""
		cmd := m.input.Focus()
		return m, cmd
	case " ", "x":
		if todo, ok := m.current(); ok {
			m.ctrl.ToggleTask(todo.ID, !todo.Completed)
		}
	case "d", "delete":
		if todo, ok := m.current(); ok {
			m.ctrl.DeleteTask(todo.ID)
		}
	}
	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		return m.leaveInput(), nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.status = "Title must not be empty"
			return m, nil
		}
		m.ctrl.AddTask(title)
		m.cursor = 0
		return m.leaveInput(), nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateEdit handles the single inline editor. Moving the cursor away
// commits like a blur does.
func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		return m.leaveInput(), nil
	case "enter":
		return m.commitEdit(), nil
	case "up", "down", "tab":
		// rows may have shifted under the editor, e.g. a prepended add
		if i := m.indexOf(m.editing); i >= 0 {
			m.cursor = i
		}
		m = m.commitEdit()
		delta := 1
		if msg.String() == "up" {
			delta = -1
		}
		m.cursor = clampCursor(m.cursor+delta, len(m.view.Todos))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// commitEdit sends a changed, non-blank title; anything else just closes
// the editor.
func (m Model) commitEdit() Model {
	title := strings.TrimSpace(m.input.Value())
	if i := m.indexOf(m.editing); i >= 0 && title != "" && title != m.view.Todos[i].Title {
		m.ctrl.UpdateTask(m.editing, title)
	}
	return m.leaveInput()
}

func (m Model) leaveInput() Model {
	m.mode = modeList
	m.editing = 0
	m.input.SetValue("")
	m.input.Blur()
	return m
}

func (m Model) current() (domain.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Todos) {
		return domain.Todo{}, false
	}
	return m.view.Todos[m.cursor], true
}

func (m Model) indexOf(id int64) int {
	for i, t := range m.view.Todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("todos"))
	b.WriteString("\n\n")

	if m.mode == modeAdd {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	if len(m.view.Todos) == 0 && !m.view.Loading {
		b.WriteString(helpStyle.Render("Nothing to do. Press a to add a todo."))
		b.WriteString("\n")
	}
	for i, t := range m.view.Todos {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		if m.mode == modeEdit && t.ID == m.editing {
			b.WriteString(pointer + m.input.View() + "\n")
			continue
		}
		b.WriteString(pointer + renderTodo(t) + "\n")
	}

	b.WriteString("\n")
	if line := m.statusLine(); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.status != "":
		return m.status
	case m.view.LastError != "":
		return errorStyle.Render(m.view.LastError)
	case m.view.Loading:
		return "loading…"
	case m.view.Busy:
		return "saving…"
	}
	return ""
}

func (m Model) help() string {
	switch m.mode {
	case modeAdd:
		return "enter: add • esc: cancel"
	case modeEdit:
		return "enter: save • esc: cancel • ↑/↓: save and move"
	}
	return "a: add • e: edit • space: toggle • d: delete • q: quit"
}

func renderTodo(t domain.Todo) string {
	box := "[ ]"
	title := t.Title
	if t.Completed {
		box = "[x]"
		title = doneStyle.Render(title)
	}
	line := fmt.Sprintf("%s %s", box, title)
	if t.IsTemporary() {
		line = pendingStyle.Render(line + " (saving)")
	}
	return line
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}
