package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zroster/internal/student"
)

const (
	fieldName = iota
	fieldAddress
	fieldPhone
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"name",
	"address",
	"phone",
}

// formModel adds a new student or edits an existing one.
type formModel struct {
	inputs   [fieldCount]textinput.Model
	focus    int
	editing  bool
	existing student.Student
	flash    string
}

// saveStudentMsg asks the root model to persist a student.
type saveStudentMsg struct {
	student student.Student
	editing bool
}

func newFormModel(existing *student.Student) formModel {
	var inputs [fieldCount]textinput.Model
	for i := range fieldCount {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 50
		ti.Prompt = ""
		inputs[i] = ti
	}
	inputs[fieldPhone].CharLimit = 32

	m := formModel{inputs: inputs}

	if existing != nil {
		m.editing = true
		m.existing = *existing
		m.inputs[fieldName].SetValue(existing.Name)
		m.inputs[fieldAddress].SetValue(existing.Address)
		m.inputs[fieldPhone].SetValue(existing.Phone)
	}

	m.inputs[m.focus].Focus()
	return m
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m.updateInput(msg)
}

func (m formModel) handleKey(msg tea.KeyMsg) (formModel, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		if m.editing {
			id := m.existing.ID
			return m, func() tea.Msg { return viewStudentMsg{id: id} }
		}
		return m, func() tea.Msg { return navigateMsg{view: viewList} }
	}

	switch msg.String() {
	case "tab", "down":
		return m.setFocus((m.focus + 1) % fieldCount), textinput.Blink

	case "shift+tab", "up":
		return m.setFocus((m.focus - 1 + fieldCount) % fieldCount), textinput.Blink
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.submit()
	}

	return m.updateInput(msg)
}

func (m formModel) setFocus(i int) formModel {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
	return m
}

func (m formModel) updateInput(msg tea.Msg) (formModel, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit validates the form. On a missing field the focus jumps to it.
func (m formModel) submit() (formModel, tea.Cmd) {
	s := student.Student{
		Name:    m.inputs[fieldName].Value(),
		Address: m.inputs[fieldAddress].Value(),
		Phone:   m.inputs[fieldPhone].Value(),
	}
	if m.editing {
		s.ID = m.existing.ID
	}
	s = s.Normalize()

	if err := s.Validate(); err != nil {
		m.flash = strings.TrimPrefix(err.Error(), student.ErrInvalid.Error()+": ")
		for i, v := range []string{s.Name, s.Address, s.Phone} {
			if v == "" {
				m = m.setFocus(i)
				break
			}
		}
		return m, clearFlashAfter()
	}

	editing := m.editing
	return m, func() tea.Msg { return saveStudentMsg{student: s, editing: editing} }
}

func (m formModel) View() string {
	action := "add student"
	if m.editing {
		action = "edit student"
	}
	s := fmt.Sprintf("\n  %s\n", zstyle.Title.Render(action))
	if m.editing {
		s += "  " + zstyle.MutedText.Render(fmt.Sprintf("#%d", m.existing.ID)) + "\n"
	}
	s += "\n"

	for i := range fieldCount {
		label := zstyle.MutedText.Render(fmt.Sprintf("  %-10s", fieldLabels[i]))
		cursor := "  "
		if i == m.focus {
			cursor = "> "
		}
		s += fmt.Sprintf("  %s%s %s\n", cursor, label, m.inputs[i].View())
	}

	s += "\n"

	if m.flash != "" {
		s += "  " + zstyle.StatusErr.Render(m.flash) + "\n"
	} else {
		s += "\n"
	}

	return s
}
