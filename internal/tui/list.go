package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zroster/internal/student"
)

// listModel displays all students in a scrollable list.
type listModel struct {
	students []student.Student
	cursor   int
	flash    string
}

// listStateMsg carries a new student list from the home controller.
type listStateMsg struct {
	students []student.Student
	ch       <-chan []student.Student
}

// viewStudentMsg requests the detail screen for a student.
type viewStudentMsg struct {
	id int64
}

// addStudentMsg requests the entry form.
type addStudentMsg struct{}

// waitList waits for the next list from ch. It returns nil once ch is
// closed by a detach.
func waitList(ch <-chan []student.Student) tea.Cmd {
	return func() tea.Msg {
		list, ok := <-ch
		if !ok {
			return nil
		}
		return listStateMsg{students: list, ch: ch}
	}
}

func newListModel(students []student.Student) listModel {
	return listModel{students: students}
}

func (m listModel) Init() tea.Cmd {
	return nil
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case listStateMsg:
		m.students = msg.students
		if m.cursor >= len(m.students) {
			m.cursor = max(len(m.students)-1, 0)
		}
		return m, nil

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m listModel) handleKey(msg tea.KeyMsg) (listModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if msg.String() == "a" {
		return m, func() tea.Msg { return addStudentMsg{} }
	}

	if len(m.students) == 0 {
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.students)-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		id := m.students[m.cursor].ID
		return m, func() tea.Msg { return viewStudentMsg{id: id} }
	}

	return m, nil
}

func (m listModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n"

	if len(m.students) == 0 {
		s += "  " + zstyle.MutedText.Render("no students yet  a to add") + "\n"
		s += "\n"
		s += "\n"
		return s
	}

	for i, st := range m.students {
		line := fmt.Sprintf("%-24s %-30s %s",
			truncate(st.Name, 24),
			truncate(st.Address, 30),
			zstyle.MutedText.Render(st.Phone),
		)

		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	s += "\n"

	// always reserve a line for flash to prevent layout shift
	if m.flash != "" {
		s += "  " + zstyle.StatusOK.Render(m.flash) + "\n"
	} else {
		s += "\n"
	}

	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
