package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// passwordModel unlocks the encrypted vault, or creates it on first run.
type passwordModel struct {
	password textinput.Model
	confirm  textinput.Model
	firstRun bool
	focus    int
	errMsg   string
}

// passwordSubmitMsg is sent when the user submits a password.
type passwordSubmitMsg struct {
	password string
}

// passwordErrMsg is sent when the vault cannot be opened.
type passwordErrMsg struct {
	err error
}

func newPasswordInput() textinput.Model {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 128
	ti.Width = 40
	ti.Prompt = ""
	return ti
}

func newPasswordModel(firstRun bool) passwordModel {
	m := passwordModel{
		password: newPasswordInput(),
		confirm:  newPasswordInput(),
		firstRun: firstRun,
	}
	m.password.Focus()
	return m
}

func (m passwordModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m passwordModel) Update(msg tea.Msg) (passwordModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		if m.firstRun && (msg.String() == "tab" || msg.String() == "shift+tab") {
			return m.setFocus(1 - m.focus), textinput.Blink
		}

		if key.Matches(msg, zstyle.KeyEnter) {
			return m.handleSubmit()
		}

	case passwordErrMsg:
		m.errMsg = msg.err.Error()
		m.password.SetValue("")
		m.confirm.SetValue("")
		return m.setFocus(0), nil
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.password, cmd = m.password.Update(msg)
	} else {
		m.confirm, cmd = m.confirm.Update(msg)
	}
	return m, cmd
}

func (m passwordModel) setFocus(i int) passwordModel {
	m.focus = i
	if i == 0 {
		m.confirm.Blur()
		m.password.Focus()
	} else {
		m.password.Blur()
		m.confirm.Focus()
	}
	return m
}

func (m passwordModel) handleSubmit() (passwordModel, tea.Cmd) {
	val := m.password.Value()
	if val == "" {
		return m, nil
	}

	if m.firstRun {
		if m.focus == 0 {
			return m.setFocus(1), textinput.Blink
		}
		if m.confirm.Value() != val {
			m.errMsg = "passwords do not match"
			m.confirm.SetValue("")
			return m, nil
		}
	}

	m.errMsg = ""
	return m, func() tea.Msg {
		return passwordSubmitMsg{password: val}
	}
}

func (m passwordModel) View() string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	logo := indent.Render(
		zstyle.StyledLogo(lipgloss.NewStyle().Foreground(accent)),
	)
	toolName := indent.Render(zstyle.MutedText.Render("zroster"))

	s := fmt.Sprintf("\n%s\n%s\n\n", logo, toolName)

	if m.firstRun {
		s += "  " + zstyle.Title.Render("create new store") + "\n"
		s += "  " + zstyle.MutedText.Render("choose a master password for your student records") + "\n\n"
		s += m.fieldLine("password", m.password, m.focus == 0)
		s += m.fieldLine("confirm", m.confirm, m.focus == 1)
	} else {
		s += "  " + zstyle.Title.Render("unlock store") + "\n"
		s += "  " + zstyle.MutedText.Render("enter your master password") + "\n\n"
		s += m.fieldLine("password", m.password, true)
	}

	if m.errMsg != "" {
		s += "\n  " + zstyle.StatusErr.Render(m.errMsg)
	}

	s += "\n"
	return s
}

func (m passwordModel) fieldLine(label string, in textinput.Model, focused bool) string {
	cursor := "  "
	if focused {
		cursor = "> "
	}
	l := zstyle.MutedText.Render(fmt.Sprintf("%-10s", label))
	return fmt.Sprintf("  %s%s %s\n", cursor, l, in.View())
}
