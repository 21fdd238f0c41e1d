package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ctrlpanel/internal/config"
	"github.com/muurk/ctrlpanel/internal/session"
	"github.com/muurk/ctrlpanel/internal/widget"
)

type controlTickMsg struct{}

func controlTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return controlTickMsg{} })
}

// controlKeyMap defines key bindings on the control screen
type controlKeyMap struct {
	Next       key.Binding
	Prev       key.Binding
	Left       key.Binding
	Right      key.Binding
	Activate   key.Binding
	Disconnect key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k controlKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Left, k.Right, k.Activate, k.Disconnect}
}

// FullHelp returns keybindings for the expanded help view
func (k controlKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev}, {k.Left, k.Right, k.Activate, k.Disconnect}}
}

// editKeyMap defines key bindings while an entry is edited
type editKeyMap struct {
	Submit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k editKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Submit} }

// FullHelp returns keybindings for the expanded help view
func (k editKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Submit}} }

// deviceErrors collects ERR reports from the controller callback
type deviceErrors struct {
	last  string
	count int
}

// ControlModel renders the active page and turns key presses into widget
// interactions. The controller is ticked from the bubbletea loop, so all
// page and widget access stays on one goroutine.
type ControlModel struct {
	Remote   *config.Remote
	Ctrl     *session.Controller
	Interval time.Duration

	Status     session.Status
	// Disconnect is set when the user leaves the device
	Disconnect bool

	// Focus indexes the interactive widgets of the active page
	Focus   int
	Editing bool
	Input   textinput.Model

	page       int
	pageActive bool
	errors     *deviceErrors
	Notice     string

	Width    int
	Height   int
	Help     help.Model
	Keys     controlKeyMap
	EditKeys editKeyMap
}

// NewControlModel creates the control screen for a connected controller
func NewControlModel(r *config.Remote, ctrl *session.Controller, interval time.Duration) ControlModel {
	if interval <= 0 {
		interval = session.DefaultTickInterval
	}

	errs := &deviceErrors{}
	ctrl.OnError(func(msg string) {
		errs.last = msg
		errs.count++
	})

	input := textinput.New()
	input.CharLimit = 128
	input.Width = 24
	input.Prompt = ""

	return ControlModel{
		Remote:   r,
		Ctrl:     ctrl,
		Interval: interval,
		Status:   ctrl.Status(),
		Input:    input,
		errors:   errs,
		Help:     help.New(),
		Keys: controlKeyMap{
			Next:       key.NewBinding(key.WithKeys("down", "tab", "j"), key.WithHelp("↓/tab", "next")),
			Prev:       key.NewBinding(key.WithKeys("up", "shift+tab", "k"), key.WithHelp("↑", "previous")),
			Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "option left")),
			Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "option right")),
			Activate:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "press/edit")),
			Disconnect: key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("q", "disconnect")),
		},
		EditKeys: editKeyMap{
			Submit: key.NewBinding(key.WithKeys("enter", "esc", "tab"), key.WithHelp("enter", "send")),
		},
	}
}

// Init starts the tick loop
func (m ControlModel) Init() tea.Cmd {
	return controlTick(m.Interval)
}

// interactive returns the widgets that take focus, in declared order
func (m ControlModel) interactive() []widget.Widget {
	var out []widget.Widget
	for _, w := range m.Ctrl.Pages().Widgets() {
		if w.Kind().Interactive() {
			out = append(out, w)
		}
	}
	return out
}

// Focused returns the widget receiving key presses, or nil
func (m ControlModel) Focused() widget.Widget {
	ws := m.interactive()
	if m.Focus < 0 || m.Focus >= len(ws) {
		return nil
	}
	return ws[m.Focus]
}

// Update handles messages and updates the model
func (m ControlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case controlTickMsg:
		m.Status = m.Ctrl.Tick()
		m.trackPage()
		if m.Status.Terminal() {
			return m, nil
		}
		return m, controlTick(m.Interval)

	case tea.KeyMsg:
		if m.Editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

// trackPage resets focus when the device switched pages
func (m *ControlModel) trackPage() {
	id, ok := m.Ctrl.Pages().ActivePage()
	if ok == m.pageActive && id == m.page {
		return
	}
	m.page, m.pageActive = id, ok
	m.Focus = 0
	m.Notice = ""
	if m.Editing {
		m.Editing = false
		m.Input.Blur()
	}
}

func (m ControlModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.interactive())

	switch {
	case key.Matches(msg, m.Keys.Disconnect):
		m.Disconnect = true

	case key.Matches(msg, m.Keys.Next):
		if n > 0 {
			m.Focus = (m.Focus + 1) % n
		}

	case key.Matches(msg, m.Keys.Prev):
		if n > 0 {
			m.Focus = (m.Focus - 1 + n) % n
		}

	case key.Matches(msg, m.Keys.Left), key.Matches(msg, m.Keys.Right):
		sw, ok := m.Focused().(*widget.Switch)
		if !ok {
			break
		}
		delta := 1
		if key.Matches(msg, m.Keys.Left) {
			delta = -1
		}
		m.Notice = ""
		if err := sw.Step(delta); err != nil {
			m.Notice = err.Error()
		}

	case key.Matches(msg, m.Keys.Activate):
		switch w := m.Focused().(type) {
		case *widget.Button:
			if !w.Click() {
				m.Notice = "button is disabled"
			}
		case *widget.Entry:
			if !w.Enabled() {
				m.Notice = "field is disabled"
				break
			}
			w.Focus()
			m.Editing = true
			m.Input.SetValue(w.Text())
			m.Input.EchoMode = textinput.EchoNormal
			if w.Spec().Pass {
				m.Input.EchoMode = textinput.EchoPassword
			}
			m.Input.Placeholder = w.Spec().Hint
			cmd := m.Input.Focus()
			return m, cmd
		}
	}
	return m, nil
}

// updateEditing forwards keys to the text input; leaving the field sends it.
func (m ControlModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e, ok := m.Focused().(*widget.Entry)
	if !ok {
		m.Editing = false
		m.Input.Blur()
		return m, nil
	}

	if key.Matches(msg, m.EditKeys.Submit) {
		e.SetText(m.Input.Value())
		e.Blur()
		m.Editing = false
		m.Input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	e.SetText(m.Input.Value())
	return m, cmd
}

// View renders the control screen
func (m ControlModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderPage())
	b.WriteString("\n\n")

	status := m.Status.String()
	if v, ok := m.Ctrl.Version(); ok {
		status += fmt.Sprintf(" • protocol %v", v)
	}
	b.WriteString(StatusStyle.Render(status))
	if m.Notice != "" {
		b.WriteString("  ")
		b.WriteString(InvalidStyle.Render(m.Notice))
	}
	b.WriteString("\n")
	if m.errors.count > 0 {
		b.WriteString(RenderError(fmt.Sprintf("device: %s (%d)", m.errors.last, m.errors.count)))
		b.WriteString("\n")
	}

	context := m.Remote.Name
	if m.pageActive {
		context += fmt.Sprintf(" • page %d", m.page)
	}

	helpText := m.Help.View(m.Keys)
	if m.Editing {
		helpText = m.Help.View(m.EditKeys)
	}
	return RenderApplicationContainer(context, b.String(), helpText, m.Width, m.Height)
}

// renderPage lays the active widgets out on the page grid
func (m ControlModel) renderPage() string {
	pages := m.Ctrl.Pages()
	if _, ok := pages.ActivePage(); !ok {
		return RenderTitle("Connected") + "\n" + SubtitleStyle.Render("Waiting for data...")
	}

	size := pages.Size()
	if size.Rows <= 0 || size.Cols <= 0 {
		return SubtitleStyle.Render("Empty page")
	}

	cells := make([][][]string, size.Rows)
	for r := range cells {
		cells[r] = make([][]string, size.Cols)
	}

	focused := m.Focused()
	layout := pages.Layout()
	for i, w := range pages.Widgets() {
		p := layout[i]
		if p.Row < 0 || p.Row >= size.Rows || p.Col < 0 || p.Col >= size.Cols {
			continue
		}
		cells[p.Row][p.Col] = append(cells[p.Row][p.Col], m.renderWidget(w, w == focused))
	}

	cellWidth := (m.Width - 8) / size.Cols
	if cellWidth < MinCellWidth {
		cellWidth = MinCellWidth
	}
	cellStyle := lipgloss.NewStyle().Width(cellWidth).MarginBottom(1)

	rows := make([]string, size.Rows)
	for r, row := range cells {
		parts := make([]string, size.Cols)
		for c, cell := range row {
			parts[c] = cellStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cell...))
		}
		rows[r] = lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m ControlModel) renderWidget(w widget.Widget, focused bool) string {
	var out string

	switch w := w.(type) {
	case *widget.Button:
		style := ButtonStyle
		switch {
		case !w.Enabled():
			style = style.Foreground(SubtleColor)
		case w.Pressed():
			style = PressedButtonStyle
		}
		out = style.Render(w.Display())

	case *widget.Switch:
		out = renderSwitch(w)

	case *widget.Entry:
		text := w.Display()
		switch {
		case focused && m.Editing:
			text = m.Input.View()
		case text == "":
			text = DisabledStyle.Render(w.Spec().Hint)
		}
		caption := LabelStyle.Render(w.Spec().Text)
		if !w.Enabled() {
			caption = DisabledStyle.Render(w.Spec().Text)
		}
		out = caption + " " + text

	case *widget.Value:
		out = LabelStyle.Render(w.Spec().Text) + " " + ValueStyle.Render(w.Display())

	default:
		out = LabelStyle.Render(w.Display())
	}

	if focused {
		return FocusStyle.Render(out)
	}
	return UnfocusedStyle.Render(out)
}

// renderSwitch shows every option with the selected one highlighted
func renderSwitch(sw *widget.Switch) string {
	selected := -1
	if _, ok := sw.Selected(); ok {
		selected = int(sw.Index())
		if !sw.Spec().ShowZero {
			selected--
		}
	}

	opts := make([]string, len(sw.Options()))
	for i, label := range sw.Options() {
		switch {
		case i == selected:
			opts[i] = SelectedOptionStyle.Render("● " + label)
		case !sw.Enabled():
			opts[i] = DisabledStyle.Render("○ " + label)
		default:
			opts[i] = LabelStyle.Render("○ " + label)
		}
	}

	var out string
	if sw.Spec().Vertical {
		out = lipgloss.JoinVertical(lipgloss.Left, opts...)
	} else {
		out = strings.Join(opts, "  ")
	}
	if sw.OutOfRange() {
		out += "\n" + InvalidStyle.Render(sw.Display())
	}
	return out
}
