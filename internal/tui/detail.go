package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zroster/internal/roster"
	"github.com/zarlcorp/zroster/internal/student"
)

// detailStateMsg carries new state from the detail controller.
type detailStateMsg struct {
	state roster.DetailState
	ch    <-chan roster.DetailState
}

// editStudentMsg asks the root model to open the edit form.
type editStudentMsg struct {
	id int64
}

// deleteStudentMsg asks the root model to delete the student on screen.
type deleteStudentMsg struct{}

// studentDeletedMsg reports the outcome of a delete.
type studentDeletedMsg struct {
	id  int64
	err error
}

func waitDetail(ch <-chan roster.DetailState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return detailStateMsg{state: st, ch: ch}
	}
}

// deleteConfirm is the delete prompt. Once shown it only closes on an
// explicit yes or no.
type deleteConfirm struct {
	shown bool
	yes   bool // focused button
}

type studentField struct {
	label string
	value string
}

// detailModel shows one student and guards delete behind a confirmation.
type detailModel struct {
	student student.Student
	cursor  int
	flash   string
	confirm deleteConfirm

	// a delete is in flight; d stays closed until it reports back
	deleting bool
}

func newDetailModel(st roster.DetailState) detailModel {
	return detailModel{student: st.Student}
}

func (m detailModel) fields() []studentField {
	return []studentField{
		{"name", m.student.Name},
		{"address", m.student.Address},
		{"phone", m.student.Phone},
	}
}

func (m detailModel) Init() tea.Cmd {
	return nil
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case detailStateMsg:
		m.student = msg.state.Student
		return m, nil

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m detailModel) handleKey(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	if m.confirm.shown {
		return m.handleConfirm(msg)
	}

	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewList} }
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.fields())-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		f := m.fields()[m.cursor]
		if err := copyToClipboard(f.value); err != nil {
			m.flash = "copy: " + err.Error()
			return m, clearFlashAfter()
		}
		m.flash = f.label + " copied"
		return m, clearFlashAfter()
	}

	switch msg.String() {
	case "e":
		id := m.student.ID
		return m, func() tea.Msg { return editStudentMsg{id: id} }

	case "d":
		if m.deleting {
			return m, nil
		}
		m.confirm = deleteConfirm{shown: true}
		return m, nil
	}

	return m, nil
}

func (m detailModel) handleConfirm(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch msg.String() {
	case "y", "Y":
		return m.resolve(true)
	case "n", "N":
		return m.resolve(false)
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirm.yes = !m.confirm.yes
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.resolve(m.confirm.yes)
	}

	return m, nil
}

func (m detailModel) resolve(confirmed bool) (detailModel, tea.Cmd) {
	m.confirm = deleteConfirm{}
	if !confirmed {
		return m, nil
	}
	return m, func() tea.Msg { return deleteStudentMsg{} }
}

func (m detailModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	var s string
	if m.student.IsZero() {
		s = "\n  " + zstyle.MutedText.Render("loading…") + "\n\n"
	} else {
		s = "\n  " + zstyle.Subtitle.Render(m.student.Name) +
			"  " + zstyle.MutedText.Render(fmt.Sprintf("#%d", m.student.ID)) + "\n\n"
	}

	for i, f := range m.fields() {
		label := zstyle.MutedText.Render(fmt.Sprintf("%-10s", f.label))
		if i == m.cursor && !m.confirm.shown {
			s += "  " + accentStyle.Render("▸") + " " + label + " " + f.value + "\n"
		} else {
			s += "    " + label + " " + f.value + "\n"
		}
	}

	s += "\n"

	switch {
	case m.confirm.shown:
		s += "  " + zstyle.StatusWarn.Render(fmt.Sprintf("delete student %q? this cannot be undone.", m.student.Name)) + "\n"
		s += "  " + m.button("yes", m.confirm.yes) + " " + m.button("no", !m.confirm.yes) + "\n"
	case m.deleting:
		s += "  " + zstyle.MutedText.Render("deleting…") + "\n\n"
	case m.flash != "":
		s += "  " + zstyle.StatusOK.Render(m.flash) + "\n\n"
	default:
		s += "\n\n"
	}

	return s
}

func (m detailModel) button(label string, focused bool) string {
	if focused {
		return zstyle.Highlight.Render("[ " + label + " ]")
	}
	return zstyle.MutedText.Render("  " + label + "  ")
}
