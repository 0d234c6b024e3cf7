// Package display renders the offered instrument and both progress gauges in the terminal.
package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"PresenceTrader/internal/controller"
)

const (
	defaultWidth   = 60
	defaultRefresh = 100 * time.Millisecond
)

var (
	symbolStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("2")).
			Background(lipgloss.Color("1")).
			Padding(1, 4)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	filledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// StatusSource reports the controller's display state.
type StatusSource interface {
	Status() controller.Status
}

type tickMsg time.Time

// Model is the bubbletea model polling a StatusSource.
type Model struct {
	src     StatusSource
	refresh time.Duration
	width   int
	status  controller.Status
}

// NewModel creates a model refreshing every refresh interval (100ms when zero).
func NewModel(src StatusSource, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	return Model{src: src, refresh: refresh, width: defaultWidth, status: src.Status()}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.status = m.src.Status()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	barWidth := m.width - 16
	if barWidth < 10 {
		barWidth = 10
	}
	st := m.status

	var b strings.Builder
	b.WriteString(labelStyle.Render("Trigger ") + Bar(st.TriggerProgress, barWidth) + fmt.Sprintf(" %3d%%", st.TriggerProgress))
	b.WriteString("\n\n")
	b.WriteString(symbolStyle.Render(strings.ToUpper(st.Symbol)))
	b.WriteString("\n")
	detail := st.Description
	if st.Sector != "" {
		detail += " · " + st.Sector
	}
	b.WriteString(detailStyle.Render(detail))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Rotate  ") + Bar(st.RotationProgress, barWidth) + fmt.Sprintf(" %3d%%", st.RotationProgress))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("#%d · %s · q to quit", st.Index, st.State)))
	b.WriteString("\n")
	return b.String()
}

// Bar renders percent (clamped to [0,100]) as a width-cell bar.
func Bar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return filledStyle.Render(strings.Repeat("█", filled)) + emptyStyle.Render(strings.Repeat("░", width-filled))
}

// Run shows the display until the user quits or ctx is cancelled.
func Run(ctx context.Context, src StatusSource) error {
	p := tea.NewProgram(NewModel(src, 0), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
