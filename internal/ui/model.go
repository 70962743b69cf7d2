package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// VerdictMsg delivers one finished check to the UI.
type VerdictMsg struct {
	Status *status.Status
}

// BatchDoneMsg signals that every subject has been checked.
type BatchDoneMsg struct{}

// Model is the bubbletea program wrapping a View. Verdicts arrive as
// messages from the worker pool goroutines via Program.Send.
type Model struct {
	view *View

	// Quit is closed when the user quits before the batch finishes, so
	// the caller can cancel the workers.
	Quit chan struct{}

	quitOnce bool
}

// NewModel creates the UI model for a batch of the given size.
func NewModel(total int, version string) *Model {
	view := NewView(total)
	view.Version = version
	return &Model{
		view: view,
		Quit: make(chan struct{}),
	}
}

// View returns the underlying render state.
func (m *Model) ViewState() *View {
	return m.view
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.signalQuit()
			return m, tea.Quit
		}

	case VerdictMsg:
		m.view.Record(msg.Status)
		if m.view.Done() {
			return m, tea.Quit
		}

	case BatchDoneMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) View() string {
	return m.view.Render()
}

func (m *Model) signalQuit() {
	if !m.quitOnce {
		m.quitOnce = true
		close(m.Quit)
	}
}
