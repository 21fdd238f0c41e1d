package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ctrlpanel/internal/config"
	"github.com/muurk/ctrlpanel/internal/transport"
)

// connectingPollInterval is how often the connecting screen checks the link
const connectingPollInterval = 50 * time.Millisecond

type connectingTickMsg struct{}

func connectingTick() tea.Cmd {
	return tea.Tick(connectingPollInterval, func(time.Time) tea.Msg { return connectingTickMsg{} })
}

// connectingKeyMap defines key bindings while dialing
type connectingKeyMap struct {
	Cancel key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k connectingKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Cancel} }

// FullHelp returns keybindings for the expanded help view
func (k connectingKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Cancel}} }

// ConnectingModel shows a spinner until the transport reports an outcome.
type ConnectingModel struct {
	Remote  *config.Remote
	Link    *transport.Session
	Started time.Time
	// Timeout is the connect timeout the progress bar runs against
	Timeout time.Duration

	// Cancelled is set when the user gave up
	Cancelled bool

	Width    int
	Height   int
	Spinner  spinner.Model
	Progress progress.Model
	Help     help.Model
	Keys     connectingKeyMap
}

// NewConnectingModel wraps a session that is already dialing
func NewConnectingModel(r *config.Remote, link *transport.Session, timeout time.Duration) ConnectingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return ConnectingModel{
		Remote:   r,
		Link:     link,
		Started:  time.Now(),
		Timeout:  timeout,
		Spinner:  s,
		Progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		Help:     help.New(),
		Keys: connectingKeyMap{
			Cancel: key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Init starts the spinner and the signal polling
func (m ConnectingModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, connectingTick())
}

// Update handles messages and updates the model
func (m ConnectingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.Keys.Cancel) {
			m.Cancelled = true
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the connecting screen
func (m ConnectingModel) View() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Connecting"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s (%s)\n\n", m.Spinner.View(), m.Remote.Name, m.Remote.Address))
	elapsed := time.Since(m.Started)
	if m.Timeout > 0 {
		b.WriteString(m.Progress.ViewAs(min(1, float64(elapsed)/float64(m.Timeout))))
		b.WriteString("\n")
	}
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("waiting %s", elapsed.Truncate(100*time.Millisecond))))
	b.WriteString("\n")

	return RenderApplicationContainer(m.Remote.Name, b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}
