// Package page manages the active page of a connected device: loading its
// description from the page cache, laying out and numbering its widgets,
// and feeding value blobs through them.
package page

import (
	"fmt"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/queue"
	"github.com/muurk/ctrlpanel/internal/remote"
	"github.com/muurk/ctrlpanel/internal/widget"
	"go.uber.org/zap"
)

// Store is the page cache as seen by the manager.
type Store interface {
	Load(addr remote.Address, id int) ([]byte, bool, error)
	Store(addr remote.Address, id int, raw []byte) error
	Invalidate(addr remote.Address, id int) error
}

// Placement is the grid cell of one widget.
type Placement struct {
	Row int
	Col int
}

// Manager owns the active widget sequence for one device.
// It is not safe for concurrent use; the session tick loop owns it.
type Manager struct {
	store Store
	addr  remote.Address

	active     bool
	activeID   int
	descriptor *widget.Descriptor
	widgets    []widget.Widget
	layout     []Placement
	size       widget.Size

	events *widget.Events
	nextID int
}

// NewManager creates a manager with no active page.
func NewManager(store Store, addr remote.Address) *Manager {
	return &Manager{
		store:  store,
		addr:   addr,
		events: queue.New[widget.Event](),
	}
}

// Addr returns the device whose pages are managed.
func (m *Manager) Addr() remote.Address { return m.addr }

// ActivePage returns the active page id.
func (m *Manager) ActivePage() (int, bool) { return m.activeID, m.active }

// Widgets returns the active widgets in declared order.
func (m *Manager) Widgets() []widget.Widget { return m.widgets }

// Layout returns the grid cell of each widget, parallel to Widgets.
func (m *Manager) Layout() []Placement { return m.layout }

// Size returns the grid size of the active page, grown to fit every
// explicit position.
func (m *Manager) Size() widget.Size { return m.size }

// ElementCount is the number of numbered widgets on the active page.
func (m *Manager) ElementCount() int { return m.nextID }

// Descriptor returns the active page description.
func (m *Manager) Descriptor() *widget.Descriptor { return m.descriptor }

// Events is the FIFO widget interactions are pushed to.
func (m *Manager) Events() *widget.Events { return m.events }

// PopEvent removes the oldest pending interaction.
func (m *Manager) PopEvent() (widget.Event, bool) { return m.events.TryPop() }

// Element returns the widget with element id id.
func (m *Manager) Element(id int) (widget.Widget, bool) {
	for _, w := range m.widgets {
		if w.ElementID() == id {
			return w, true
		}
	}
	return nil, false
}

// ChangePage activates page id from the cache. It reports false, leaving
// the current page untouched, when the cache does not hold the page; the
// caller must then fetch it.
func (m *Manager) ChangePage(id int) (bool, error) {
	m.events.Clear()

	raw, ok, err := m.store.Load(m.addr, id)
	if err != nil {
		return false, fmt.Errorf("failed to load page %d: %w", id, err)
	}
	if !ok {
		return false, nil
	}

	d, err := widget.ParseDescriptor(raw)
	if err != nil {
		logging.Warn("Cached page description cannot be decoded, dropping it",
			zap.String("remote_addr", m.addr.String()),
			zap.Int("page_id", id),
			zap.Error(err),
		)
		if err := m.store.Invalidate(m.addr, id); err != nil {
			return false, err
		}
		return false, nil
	}

	m.activate(id, d)
	return true, nil
}

// activate tears down the current widgets and instantiates d.
func (m *Manager) activate(id int, d *widget.Descriptor) {
	m.widgets = nil
	m.layout = nil
	m.events.Clear()

	m.size = widget.Size{Rows: len(d.Widgets), Cols: 1}
	if d.Size != nil {
		m.size = *d.Size
	}

	m.nextID = 0
	m.widgets = make([]widget.Widget, 0, len(d.Widgets))
	for _, spec := range d.Widgets {
		elemID := widget.NoElementID
		if spec.Kind.HasElementID() {
			elemID = m.nextID
			m.nextID++
		}
		m.widgets = append(m.widgets, widget.New(spec, elemID, m.events))
	}
	m.layout, m.size = resolveLayout(d.Widgets, m.size)

	m.active = true
	m.activeID = id
	m.descriptor = d

	logging.Debug("Page activated",
		zap.String("remote_addr", m.addr.String()),
		zap.Int("page_id", id),
		zap.Int("widgets", len(m.widgets)),
		zap.Int("elements", m.nextID),
	)
}

// resolveLayout assigns a cell to every widget. A cursor starts at the top
// left; each widget goes to its explicit position or the cursor, and the
// cursor then moves one column past that cell, wrapping at size.Cols.
// The returned size covers every assigned cell.
func resolveLayout(specs []widget.Spec, size widget.Size) ([]Placement, widget.Size) {
	cols := size.Cols
	if cols < 1 {
		cols = 1
	}

	layout := make([]Placement, len(specs))
	row, col := 0, 0
	for i, spec := range specs {
		if spec.Position != nil {
			row, col = spec.Position.Row, spec.Position.Col
		}
		layout[i] = Placement{Row: row, Col: col}

		if row+1 > size.Rows {
			size.Rows = row + 1
		}
		if col+1 > size.Cols {
			size.Cols = col + 1
		}

		col++
		if col >= cols {
			col = 0
			row++
		}
	}
	return layout, size
}

// Update feeds a value blob through the active widgets in order. Bytes left
// over, or a widget running out of bytes, is a Layout error.
func (m *Manager) Update(buf []byte) error {
	if !m.active {
		return protocol.NewLayoutError("value update with no active page")
	}

	rest := buf
	for _, w := range m.widgets {
		var err error
		if rest, err = w.Consume(rest); err != nil {
			return fmt.Errorf("page %d: %w", m.activeID, err)
		}
	}

	if len(rest) != 0 {
		return protocol.NewLayoutError(fmt.Sprintf("page %d: %d bytes left after %d elements",
			m.activeID, len(rest), m.nextID))
	}
	return nil
}

// SetPageDescription stores a page description fetched from the device and
// activates it. The description is decoded first so nothing undecodable is
// cached, and it is cached before activation.
func (m *Manager) SetPageDescription(id int, raw []byte) error {
	if _, err := widget.ParseDescriptor(raw); err != nil {
		return err
	}
	if err := m.store.Store(m.addr, id, raw); err != nil {
		return err
	}

	ok, err := m.ChangePage(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("page %d missing from cache right after storing it", id)
	}
	return nil
}

// InvalidateActive drops the active page from the cache so it is fetched
// again. The widgets stay on screen until the new description arrives.
func (m *Manager) InvalidateActive() (int, error) {
	if !m.active {
		return 0, fmt.Errorf("no active page")
	}
	if err := m.store.Invalidate(m.addr, m.activeID); err != nil {
		return m.activeID, err
	}
	return m.activeID, nil
}
