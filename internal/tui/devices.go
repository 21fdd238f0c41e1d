package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ctrlpanel/internal/config"
)

// devicesKeyMap defines key bindings for the device list
type devicesKeyMap struct {
	Connect key.Binding
	Add     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k devicesKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Add, k.Edit, k.Delete, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k devicesKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Connect, k.Add, k.Edit, k.Delete, k.Quit}}
}

// formKeyMap defines key bindings while adding or editing a device
type formKeyMap struct {
	Next    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Confirm, k.Cancel}}
}

// remoteItem wraps a saved device for bubbles/list
type remoteItem struct {
	remote *config.Remote
}

func (i remoteItem) FilterValue() string { return i.remote.Name + " " + i.remote.Address }

func (i remoteItem) Title() string { return i.remote.Name }

func (i remoteItem) Description() string {
	if i.remote.LastConnected.IsZero() {
		return i.remote.Address + " • never connected"
	}
	return fmt.Sprintf("%s • last connected %s", i.remote.Address,
		i.remote.LastConnected.Local().Format(time.DateTime))
}

// DevicesModel is the saved device list with add, edit and delete.
type DevicesModel struct {
	Registry *config.Registry
	List     list.Model

	// Form state. editing holds the name of the edited remote, empty when adding.
	FormMode  bool
	editing   string
	NameInput textinput.Model
	AddrInput textinput.Model

	// Selected is set when the user asked to connect
	Selected *config.Remote

	Err    error
	Notice string

	Width    int
	Height   int
	Help     help.Model
	Keys     devicesKeyMap
	FormKeys formKeyMap
}

// NewDevicesModel creates the device list for registry
func NewDevicesModel(registry *config.Registry) DevicesModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(SecondaryColor).
		BorderForeground(SecondaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		BorderForeground(SecondaryColor)

	deviceList := list.New(nil, delegate, 0, 0)
	deviceList.Title = "Saved devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = TitleStyle

	name := textinput.New()
	name.Placeholder = "leave empty for a generated name"
	name.CharLimit = 40
	name.Width = 40
	name.Prompt = "Name:    "

	addr := textinput.New()
	addr.Placeholder = "192.168.1.10:9874"
	addr.CharLimit = 21
	addr.Width = 40
	addr.Prompt = "Address: "

	m := DevicesModel{
		Registry:  registry,
		List:      deviceList,
		NameInput: name,
		AddrInput: addr,
		Help:      help.New(),
		Keys: devicesKeyMap{
			Connect: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
			Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
			Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
			Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
			Quit:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		FormKeys: formKeyMap{
			Next:    key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down"), key.WithHelp("tab", "next field")),
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
	m.refresh()
	return m
}

// refresh reloads the list items from the registry
func (m *DevicesModel) refresh() {
	items := make([]list.Item, len(m.Registry.Remotes))
	for i, r := range m.Registry.Remotes {
		items[i] = remoteItem{remote: r}
	}
	m.List.SetItems(items)
}

// SetSize resizes the list to the content area
func (m *DevicesModel) SetSize(width, height int) {
	m.Width = width
	m.Height = height
	m.List.SetSize(width-6, height-12)
}

// SelectedRemote returns the highlighted device, or nil
func (m DevicesModel) SelectedRemote() *config.Remote {
	if item, ok := m.List.SelectedItem().(remoteItem); ok {
		return item.remote
	}
	return nil
}

// Init initializes the device list
func (m DevicesModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m DevicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.FormMode {
			return m.updateForm(keyMsg)
		}
		if m.List.FilterState() != list.Filtering {
			if model, cmd, handled := m.updateList(keyMsg); handled {
				return model, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

// updateList handles the list shortcuts. It reports false for keys the
// list itself should see.
func (m DevicesModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit, true

	case key.Matches(msg, m.Keys.Connect):
		if r := m.SelectedRemote(); r != nil {
			m.Selected = r
		}
		return m, nil, true

	case key.Matches(msg, m.Keys.Add):
		return m.startForm(nil), textinput.Blink, true

	case key.Matches(msg, m.Keys.Edit):
		if r := m.SelectedRemote(); r != nil {
			return m.startForm(r), textinput.Blink, true
		}
		return m, nil, true

	case key.Matches(msg, m.Keys.Delete):
		r := m.SelectedRemote()
		if r == nil {
			return m, nil, true
		}
		m.Registry.Remove(r.Name)
		m.Err = m.Registry.Save()
		m.Notice = ""
		if m.Err == nil {
			m.Notice = fmt.Sprintf("Removed %s", r.Name)
		}
		m.refresh()
		return m, nil, true
	}
	return m, nil, false
}

func (m DevicesModel) startForm(r *config.Remote) DevicesModel {
	m.FormMode = true
	m.Err = nil
	m.Notice = ""
	m.editing = ""
	m.NameInput.SetValue("")
	m.AddrInput.SetValue("")
	if r != nil {
		m.editing = r.Name
		m.NameInput.SetValue(r.Name)
		m.AddrInput.SetValue(r.Address)
	}
	m.NameInput.Focus()
	m.AddrInput.Blur()
	return m
}

func (m DevicesModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.FormKeys.Cancel):
		m.FormMode = false
		m.Err = nil
		return m, nil

	case key.Matches(msg, m.FormKeys.Next):
		if m.NameInput.Focused() {
			m.NameInput.Blur()
			m.AddrInput.Focus()
		} else {
			m.AddrInput.Blur()
			m.NameInput.Focus()
		}
		return m, textinput.Blink

	case key.Matches(msg, m.FormKeys.Confirm):
		return m.submitForm(), nil
	}

	var cmd tea.Cmd
	if m.NameInput.Focused() {
		m.NameInput, cmd = m.NameInput.Update(msg)
	} else {
		m.AddrInput, cmd = m.AddrInput.Update(msg)
	}
	return m, cmd
}

// submitForm validates and persists the form. Errors keep the form open.
func (m DevicesModel) submitForm() DevicesModel {
	name := strings.TrimSpace(m.NameInput.Value())
	address := strings.TrimSpace(m.AddrInput.Value())

	var err error
	if m.editing == "" {
		var r *config.Remote
		if r, err = m.Registry.Add(name, address); err == nil {
			name = r.Name
		}
	} else {
		err = m.Registry.Update(m.editing, name, address)
		if name == "" {
			name = m.editing
		}
	}
	if err != nil {
		m.Err = err
		return m
	}
	if err := m.Registry.Save(); err != nil {
		m.Err = err
		return m
	}

	m.FormMode = false
	m.Err = nil
	m.Notice = fmt.Sprintf("Saved %s", name)
	m.refresh()
	return m
}

// View renders the device list or the form
func (m DevicesModel) View() string {
	var b strings.Builder

	if m.FormMode {
		title := "Add device"
		if m.editing != "" {
			title = "Edit " + m.editing
		}
		b.WriteString(RenderTitle(title))
		b.WriteString("\n")
		b.WriteString(renderInput(m.NameInput))
		b.WriteString("\n")
		b.WriteString(renderInput(m.AddrInput))
		b.WriteString("\n")
	} else if len(m.Registry.Remotes) == 0 {
		b.WriteString(RenderTitle("Saved devices"))
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render("No devices yet. Press a to add one."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.List.View())
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n")
	} else if m.Notice != "" {
		b.WriteString("\n")
		b.WriteString(StatusStyle.Render(m.Notice))
		b.WriteString("\n")
	}

	helpText := m.Help.View(m.Keys)
	if m.FormMode {
		helpText = m.Help.View(m.FormKeys)
	}
	return RenderApplicationContainer("devices", b.String(), helpText, m.Width, m.Height)
}

func renderInput(in textinput.Model) string {
	if in.Focused() {
		return FocusedInputStyle.Render("› ") + in.View()
	}
	return BlurredInputStyle.Render("  ") + in.View()
}
