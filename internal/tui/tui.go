// Package tui implements the root Bubble Tea model for zroster.
package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zroster/internal/roster"
	"github.com/zarlcorp/zroster/internal/student"
)

type viewID int

const (
	viewPassword viewID = iota
	viewList
	viewDetail
	viewForm
)

var accent = zstyle.ZburnAccent

// Store is what the screens need from storage.
type Store interface {
	roster.DetailStore
	roster.ListStore
	Get(ctx context.Context, id int64) (student.Student, error)
	Insert(ctx context.Context, s student.Student) (student.Student, error)
	Update(ctx context.Context, s student.Student) error
	Close() error
}

// Config configures the root model.
type Config struct {
	Version string

	// Locked starts at the unlock screen and passes the password to Open.
	// FirstRun asks for the password twice.
	Locked   bool
	FirstRun bool
	Open     func(password []byte) (Store, error)

	// Roster options are passed to every screen controller.
	Roster []roster.Option
	Log    zerolog.Logger
}

// session holds what outlives a single screen: the open store and the
// controllers. Copies of Model share it.
type session struct {
	store Store
	home  *roster.Home

	// kept across visits to the same student so returning within the
	// grace period does not reload it
	detail *roster.Detail
}

// Model is the root TUI model.
type Model struct {
	cfg Config
	ctx context.Context
	s   *session

	active   viewID
	password passwordModel
	list     listModel
	detail   detailModel
	form     formModel

	homeCh     <-chan []student.Student
	homeDetach func()

	detailCh     <-chan roster.DetailState
	detailDetach func()
	detailCancel context.CancelFunc

	// set from dispatch until the outcome arrives, even if the screen is
	// left in between
	deleting bool

	width  int
	height int

	err error
}

// New creates the root TUI model. ctx bounds every store call made from
// the UI.
func New(ctx context.Context, cfg Config) Model {
	m := Model{
		cfg:    cfg,
		ctx:    ctx,
		s:      &session{},
		active: viewPassword,
	}
	if cfg.Locked {
		m.password = newPasswordModel(cfg.FirstRun)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.cfg.Locked {
		return m.password.Init()
	}
	return func() tea.Msg { return passwordSubmitMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case passwordSubmitMsg:
		return m.openStore(msg.password)

	case navigateMsg:
		return m.navigate(msg.view)

	case listStateMsg:
		if msg.ch != m.homeCh {
			return m, nil
		}
		m.list, _ = m.list.Update(msg)
		return m, waitList(msg.ch)

	case detailStateMsg:
		if msg.ch != m.detailCh {
			return m, nil
		}
		m.detail, _ = m.detail.Update(msg)
		return m, waitDetail(msg.ch)

	case viewStudentMsg:
		return m.showDetail(msg.id)

	case addStudentMsg:
		m = m.leave()
		m.form = newFormModel(nil)
		m.active = viewForm
		return m, tea.Batch(m.form.Init(), tea.ClearScreen)

	case editStudentMsg:
		return m.handleEdit(msg.id)

	case saveStudentMsg:
		return m.handleSave(msg)

	case deleteStudentMsg:
		return m.handleDelete()

	case studentDeletedMsg:
		return m.handleDeleted(msg)
	}

	return m.updateActive(msg)
}

func (m Model) View() string {
	if m.active == viewPassword {
		if !m.cfg.Locked {
			return ""
		}
		return m.password.View()
	}

	var content string
	switch m.active {
	case viewList:
		content = m.list.View()
	case viewDetail:
		content = m.detail.View()
	case viewForm:
		content = m.form.View()
	}

	header := zstyle.RenderHeader("zroster", m.viewTitle(), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(m.helpFor())

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

func (m Model) viewTitle() string {
	switch m.active {
	case viewList:
		return "Students"
	case viewDetail:
		return "Student Details"
	case viewForm:
		if m.form.editing {
			return "Edit Student"
		}
		return "Add Student"
	}
	return ""
}

func (m Model) helpFor() []zstyle.HelpPair {
	switch m.active {
	case viewList:
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "navigate"},
			{Key: "enter", Desc: "view"},
			{Key: "a", Desc: "add"},
			{Key: "q", Desc: "quit"},
		}
	case viewDetail:
		if m.detail.confirm.shown {
			return []zstyle.HelpPair{
				{Key: "y", Desc: "delete"},
				{Key: "n", Desc: "cancel"},
				{Key: "tab", Desc: "switch"},
			}
		}
		return []zstyle.HelpPair{
			{Key: "enter", Desc: "copy field"},
			{Key: "e", Desc: "edit"},
			{Key: "d", Desc: "delete"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewForm:
		return []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "shift+tab", Desc: "prev"},
			{Key: "enter", Desc: "save"},
			{Key: "esc", Desc: "cancel"},
		}
	}
	return nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewPassword:
		m.password, cmd = m.password.Update(msg)
	case viewList:
		m.list, cmd = m.list.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case viewForm:
		m.form, cmd = m.form.Update(msg)
	}

	return m, cmd
}

func (m Model) openStore(password string) (tea.Model, tea.Cmd) {
	if m.s.store != nil {
		return m, nil
	}

	s, err := m.cfg.Open([]byte(password))
	if err != nil {
		m.cfg.Log.Warn().Err(err).Msg("open store")
		if !m.cfg.Locked {
			m.err = err
			return m, tea.Quit
		}
		m.password, _ = m.password.Update(passwordErrMsg{err: err})
		return m, nil
	}

	m.cfg.Log.Info().Str("version", m.cfg.Version).Msg("store open")
	m.s.store = s
	m.s.home = roster.NewHome(s, m.cfg.Roster...)
	return m.navigate(viewList)
}

func (m Model) navigate(view viewID) (tea.Model, tea.Cmd) {
	if m.s.store == nil {
		return m, nil
	}

	switch view {
	case viewList:
		m = m.leave()
		m.list = newListModel(m.s.home.Students())
		m.homeCh, m.homeDetach = m.s.home.Observe()
		m.active = viewList
		return m, tea.Batch(waitList(m.homeCh), tea.ClearScreen)

	case viewDetail:
		if m.s.detail == nil {
			return m.navigate(viewList)
		}
		return m.showDetail(m.s.detail.ID())
	}

	return m, nil
}

// leave detaches the active screen from its controller. The controller
// keeps its subscription for the grace period.
func (m Model) leave() Model {
	if m.homeDetach != nil {
		m.homeDetach()
		m.homeDetach = nil
		m.homeCh = nil
	}
	if m.detailDetach != nil {
		m.detailDetach()
		m.detailDetach = nil
		m.detailCh = nil
	}
	if m.detailCancel != nil {
		m.detailCancel()
		m.detailCancel = nil
	}
	return m
}

func (m Model) showDetail(id int64) (tea.Model, tea.Cmd) {
	if m.s.store == nil {
		return m, nil
	}
	m = m.leave()

	if m.s.detail != nil && m.s.detail.ID() != id {
		m.s.detail.Close()
		m.s.detail = nil
	}
	if m.s.detail == nil {
		m.s.detail = roster.NewDetail(m.s.store, id, m.cfg.Roster...)
	}

	m.detail = newDetailModel(m.s.detail.State())
	m.detail.deleting = m.deleting
	m.detailCh, m.detailDetach = m.s.detail.Observe()
	m.active = viewDetail
	return m, tea.Batch(waitDetail(m.detailCh), tea.ClearScreen)
}

func (m Model) handleEdit(id int64) (tea.Model, tea.Cmd) {
	s, err := m.s.store.Get(m.ctx, id)
	if err != nil {
		m.detail.flash = "edit: " + err.Error()
		return m, clearFlashAfter()
	}

	m = m.leave()
	m.form = newFormModel(&s)
	m.active = viewForm
	return m, tea.Batch(m.form.Init(), tea.ClearScreen)
}

func (m Model) handleSave(msg saveStudentMsg) (tea.Model, tea.Cmd) {
	if msg.editing {
		if err := m.s.store.Update(m.ctx, msg.student); err != nil {
			m.form.flash = "save: " + err.Error()
			return m, clearFlashAfter()
		}
		return m.showDetail(msg.student.ID)
	}

	if _, err := m.s.store.Insert(m.ctx, msg.student); err != nil {
		m.form.flash = "save: " + err.Error()
		return m, clearFlashAfter()
	}
	return m.navigate(viewList)
}

// handleDelete runs the delete off the update loop. Leaving the detail
// screen cancels it.
func (m Model) handleDelete() (tea.Model, tea.Cmd) {
	if m.s.detail == nil || m.deleting {
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.detailCancel = cancel
	m.deleting = true
	m.detail.deleting = true

	ctl := m.s.detail
	return m, func() tea.Msg {
		err := ctl.Delete(ctx)
		return studentDeletedMsg{id: ctl.ID(), err: err}
	}
}

func (m Model) handleDeleted(msg studentDeletedMsg) (tea.Model, tea.Cmd) {
	m.deleting = false
	m.detail.deleting = false

	if m.active != viewDetail || m.s.detail == nil || m.s.detail.ID() != msg.id {
		return m, nil
	}

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.detail.flash = "delete: " + msg.err.Error()
		return m, clearFlashAfter()
	}

	m.cfg.Log.Info().Int64("student", msg.id).Msg("deleted from tui")
	return m, func() tea.Msg { return navigateMsg{view: viewList} }
}

// Err returns the error that ended the program early, if any.
func (m Model) Err() error {
	return m.err
}

// Close releases controllers and the store. Call after the program exits.
func (m Model) Close() {
	m = m.leave()
	m.s.close(m.cfg.Log)
}

func (s *session) close(log zerolog.Logger) {
	if s.detail != nil {
		s.detail.Close()
		s.detail = nil
	}
	if s.home != nil {
		s.home.Close()
		s.home = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
		s.store = nil
	}
}

// navigateMsg tells the root model to switch views.
type navigateMsg struct {
	view viewID
}

// flashMsg clears the flash after a timeout.
type flashMsg struct{}

func clearFlashAfter() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return flashMsg{}
	})
}
