package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/ctrlpanel/internal/config"
	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/page"
	"github.com/muurk/ctrlpanel/internal/pagecache"
	"github.com/muurk/ctrlpanel/internal/session"
	"github.com/muurk/ctrlpanel/internal/transport"
)

// Screen represents the current screen in the application
type Screen int

const (
	ScreenDevices Screen = iota
	ScreenConnecting
	ScreenControl
)

// Options configures the application
type Options struct {
	Registry     *config.Registry
	Cache        *pagecache.Cache
	Transport    transport.Options
	TickInterval time.Duration
	// Connect dials this remote straight away instead of showing the list
	Connect      *config.Remote
}

// AppModel is the main application model
type AppModel struct {
	CurrentScreen Screen
	opts          Options

	Devices    DevicesModel
	Connecting ConnectingModel
	Control    ControlModel

	// link is the session of the connecting or control screen
	link *transport.Session

	Width  int
	Height int
}

// NewAppModel creates the application model
func NewAppModel(opts Options) AppModel {
	width, height := GetTerminalSize()
	m := AppModel{
		CurrentScreen: ScreenDevices,
		opts:          opts,
		Devices:       NewDevicesModel(opts.Registry),
		Width:         width,
		Height:        height,
	}
	m.Devices.SetSize(width, height)

	if opts.Connect != nil {
		m = m.connect(opts.Connect)
	}
	return m
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenConnecting:
		return m.Connecting.Init()
	default:
		return m.Devices.Init()
	}
}

// connect starts dialing r and switches to the connecting screen
func (m AppModel) connect(r *config.Remote) AppModel {
	addr, err := r.RemoteAddress()
	if err != nil {
		m.Devices.Err = fmt.Errorf("%s: %w", r.Name, err)
		return m
	}

	logging.Info("Connecting to device",
		zap.String("name", r.Name),
		zap.String("address", addr.String()))

	m.link = transport.New(addr, m.opts.Transport)
	m.link.Connect()

	m.Connecting = NewConnectingModel(r, m.link, m.opts.Transport.ConnectTimeout)
	m.Connecting.Width, m.Connecting.Height = m.Width, m.Height
	m.CurrentScreen = ScreenConnecting
	return m
}

// disconnect closes the active link and returns to the device list
func (m AppModel) disconnect(err error, notice string) AppModel {
	if m.link != nil {
		m.link.Close()
		m.link = nil
	}
	m.Devices.Err = err
	m.Devices.Notice = notice
	m.Devices.Selected = nil
	m.CurrentScreen = ScreenDevices
	return m
}

// shutdown releases the link when the program exits
func (m AppModel) shutdown() {
	if m.link != nil {
		m.link.Close()
	}
}

// Update handles messages and updates the model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Devices.SetSize(msg.Width, msg.Height)
		m.Connecting.Width, m.Connecting.Height = msg.Width, msg.Height
		m.Control.Width, m.Control.Height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			m.link = nil
			return m, tea.Quit
		}
	}

	switch m.CurrentScreen {
	case ScreenConnecting:
		return m.updateConnecting(msg)
	case ScreenControl:
		return m.updateControl(msg)
	default:
		return m.updateDevices(msg)
	}
}

func (m AppModel) updateDevices(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.Devices.Update(msg)
	m.Devices = model.(DevicesModel)

	if r := m.Devices.Selected; r != nil {
		m.Devices.Selected = nil
		m = m.connect(r)
		if m.CurrentScreen == ScreenConnecting {
			return m, m.Connecting.Init()
		}
	}
	return m, cmd
}

func (m AppModel) updateConnecting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(connectingTickMsg); ok {
		return m.checkLink()
	}

	model, cmd := m.Connecting.Update(msg)
	m.Connecting = model.(ConnectingModel)
	if m.Connecting.Cancelled {
		return m.disconnect(nil, "Connection cancelled"), nil
	}
	return m, cmd
}

// checkLink moves on once the transport reported an outcome
func (m AppModel) checkLink() (tea.Model, tea.Cmd) {
	r := m.Connecting.Remote
	switch {
	case m.link == nil:
		return m, nil

	case m.link.ConnectionFailed().IsSet():
		err := fmt.Errorf("connection to %s failed: %w", r.Name, m.link.Err())
		logging.Warn("Connection failed", zap.String("name", r.Name), zap.Error(m.link.Err()))
		return m.disconnect(err, ""), nil

	case m.link.Closed().IsSet():
		return m.disconnect(nil, fmt.Sprintf("%s closed the connection", r.Name)), nil

	case m.link.Connected().IsSet():
		m.opts.Registry.MarkConnected(r.Name)
		if err := m.opts.Registry.Save(); err != nil {
			logging.Warn("Failed to save registry", zap.Error(err))
		}

		ctrl := session.New(m.link, page.NewManager(m.opts.Cache, m.link.Addr()))
		m.Control = NewControlModel(r, ctrl, m.opts.TickInterval)
		m.Control.Width, m.Control.Height = m.Width, m.Height
		m.CurrentScreen = ScreenControl
		return m, m.Control.Init()
	}
	return m, connectingTick()
}

func (m AppModel) updateControl(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.Control.Update(msg)
	m.Control = model.(ControlModel)
	name := m.Control.Remote.Name

	if m.Control.Disconnect {
		m.Control.Ctrl.Terminate()
		return m.disconnect(nil, fmt.Sprintf("Disconnected from %s", name)), nil
	}

	switch m.Control.Status {
	case session.StatusFailed:
		err := fmt.Errorf("connection to %s lost: %w", name, m.link.Err())
		return m.disconnect(err, ""), nil
	case session.StatusClosed:
		return m.disconnect(nil, fmt.Sprintf("%s closed the connection", name)), nil
	}
	return m, cmd
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenConnecting:
		return m.Connecting.View()
	case ScreenControl:
		return m.Control.View()
	default:
		return m.Devices.View()
	}
}

// Run starts the interactive client and blocks until the user quits.
func Run(opts Options) error {
	if opts.Registry == nil {
		return fmt.Errorf("tui: registry is required")
	}
	if opts.Cache == nil {
		return fmt.Errorf("tui: page cache is required")
	}

	p := tea.NewProgram(NewAppModel(opts), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(AppModel); ok {
		m.shutdown()
	}
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
