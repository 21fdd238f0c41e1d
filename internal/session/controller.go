package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/page"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/queue"
	"github.com/muurk/ctrlpanel/internal/transport"
	"go.uber.org/zap"
)

// DefaultTickInterval is the period of Run's tick loop
const DefaultTickInterval = 50 * time.Millisecond

// ErrClosed is returned by Run when the device closed the connection
var ErrClosed = errors.New("device closed the connection")

// Link is the transport session as seen by the controller.
type Link interface {
	Inbound() *queue.Queue[protocol.Message]
	Outbound() *queue.Queue[*protocol.Command]
	Connected() *transport.Signal
	ConnectionFailed() *transport.Signal
	Closed() *transport.Signal
	Err() error
}

// State is the protocol phase
type State int

const (
	// StateHandshake is before the device reported its VERSION.
	StateHandshake State = iota
	// StateSteady is the POLL/GET/SET cycle.
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateSteady:
		return "steady"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status combines the link signals and the protocol state for the UI shell.
type Status int

const (
	StatusConnecting Status = iota
	StatusHandshake
	StatusSteady
	StatusFailed
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusHandshake:
		return "handshake"
	case StatusSteady:
		return "steady"
	case StatusFailed:
		return "connection failed"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether the link is gone.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusClosed
}

// Controller runs the protocol state machine for one link.
// All methods must be called from the same goroutine.
type Controller struct {
	link  Link
	pages *page.Manager
	log   *zap.Logger

	state   State
	version any

	pending   int
	isPending bool

	onVersion func(version any)
	onError   func(message string)
	onValues  func()
}

// New creates a controller in the handshake state.
func New(link Link, pages *page.Manager) *Controller {
	return &Controller{
		link:  link,
		pages: pages,
		log:   logging.GetLogger().With(zap.String("remote_addr", pages.Addr().String())),
	}
}

// OnVersion sets the observer called once when the handshake completes.
func (c *Controller) OnVersion(fn func(version any)) { c.onVersion = fn }

// OnError sets the observer called for every ERR the device reports.
func (c *Controller) OnError(fn func(message string)) { c.onError = fn }

// OnValues sets the observer called after a value blob was applied to the
// active page.
func (c *Controller) OnValues(fn func()) { c.onValues = fn }

// Pages returns the page manager.
func (c *Controller) Pages() *page.Manager { return c.pages }

// State returns the protocol phase.
func (c *Controller) State() State { return c.state }

// Version returns the device protocol version once known.
func (c *Controller) Version() (any, bool) {
	return c.version, c.state == StateSteady
}

// PendingFetch returns the page id of an outstanding GET.
func (c *Controller) PendingFetch() (int, bool) { return c.pending, c.isPending }

// Status derives the shell-facing status from the link signals.
func (c *Controller) Status() Status {
	switch {
	case c.link.ConnectionFailed().IsSet():
		return StatusFailed
	case c.link.Closed().IsSet():
		return StatusClosed
	case !c.link.Connected().IsSet():
		return StatusConnecting
	case c.state == StateHandshake:
		return StatusHandshake
	default:
		return StatusSteady
	}
}

// Tick processes at most one inbound record and queues one command for it.
// It never blocks.
func (c *Controller) Tick() Status {
	msg, ok := c.link.Inbound().TryPop()
	if !ok {
		return c.Status()
	}

	switch m := msg.(type) {
	case *protocol.Record:
		cmd := c.handleRecord(m)
		c.log.Debug("Queueing command", zap.Stringer("command", cmd))
		c.link.Outbound().Push(cmd)
	case protocol.RawBytes:
		logging.LogRawBytes("Dropping value blob without VAL record", m)
	}

	return c.Status()
}

// Terminate asks the transport to stop after the current frame.
func (c *Controller) Terminate() {
	c.link.Outbound().Push(nil)
}

func (c *Controller) handleRecord(rec *protocol.Record) *protocol.Command {
	var cmd *protocol.Command

	if v, ok := rec.Get(protocol.FieldErr); ok {
		msg, isString := v.(string)
		if !isString {
			msg = fmt.Sprint(v)
		}
		c.log.Warn("Device reported an error", zap.String("err", msg))
		if c.onError != nil {
			c.onError(msg)
		}
	}

	if v, ok := rec.Get(protocol.FieldVersion); ok {
		c.version = v
		if c.state == StateHandshake {
			c.state = StateSteady
			c.log.Info("Handshake complete", zap.Any("version", v))
			if c.onVersion != nil {
				c.onVersion(v)
			}
		}
	}

	if c.isPending {
		id := c.pending
		c.isPending = false
		if err := c.pages.SetPageDescription(id, rec.Raw); err != nil {
			c.log.Warn("Dropping page description",
				zap.Int("page_id", id),
				zap.Error(err),
			)
		}
	}

	if v, ok := rec.Get(protocol.FieldPage); ok {
		if id, isInt := protocol.AsInt(v); isInt {
			cmd = c.changePage(id)
		} else {
			c.log.Warn("Ignoring non-integer PAGE", zap.Any("page", v))
		}
	}

	if rec.Has(protocol.FieldVal) {
		if c.isPending {
			// the blob belongs to the page being fetched, not the active one
			c.dropValues()
		} else if refetch := c.applyValues(); refetch != nil && cmd == nil {
			cmd = refetch
		}
	}

	if cmd == nil {
		if ev, ok := c.pages.PopEvent(); ok {
			cmd = protocol.Set(ev.ElementID, ev.Value)
		}
	}

	if cmd == nil {
		cmd = protocol.Poll()
	}
	return cmd
}

// changePage activates id, or returns a GET for it on a cache miss.
func (c *Controller) changePage(id int) *protocol.Command {
	ok, err := c.pages.ChangePage(id)
	if err != nil {
		c.log.Error("Failed to load cached page", zap.Int("page_id", id), zap.Error(err))
	}
	if ok {
		return nil
	}
	c.log.Debug("Page not cached, requesting it", zap.Int("page_id", id))
	c.pending = id
	c.isPending = true
	return protocol.Get(id)
}

// applyValues feeds the blob following a VAL record to the active page.
// It returns a GET when the active page turned out to be stale.
func (c *Controller) applyValues() *protocol.Command {
	next, ok := c.link.Inbound().Peek()
	if !ok {
		if c.pages.ElementCount() > 0 {
			c.log.Warn("VAL record without value blob")
		}
		return nil
	}
	raw, isRaw := next.(protocol.RawBytes)
	if !isRaw {
		c.log.Warn("VAL record followed by another record")
		return nil
	}
	c.link.Inbound().TryPop()

	err := c.pages.Update(raw)
	if err == nil {
		if c.onValues != nil {
			c.onValues()
		}
		return nil
	}

	logging.LogRawBytes("Rejected value blob", raw)
	if !protocol.IsLayoutError(err) {
		c.log.Error("Value update failed", zap.Error(err))
		return nil
	}

	if c.isPending {
		return nil
	}

	id, invErr := c.pages.InvalidateActive()
	if invErr != nil {
		c.log.Warn("Value update failed", zap.Error(err), zap.NamedError("invalidate", invErr))
		return nil
	}
	c.log.Warn("Page layout does not match device values, fetching it again",
		zap.Int("page_id", id),
		zap.Error(err),
	)
	c.pending = id
	c.isPending = true
	return protocol.Get(id)
}

// dropValues discards the blob following a VAL record.
func (c *Controller) dropValues() {
	next, ok := c.link.Inbound().Peek()
	if !ok {
		return
	}
	if raw, isRaw := next.(protocol.RawBytes); isRaw {
		c.link.Inbound().TryPop()
		c.log.Debug("Dropping value blob while a page is fetched",
			zap.Int("page_id", c.pending),
			zap.Int("length", len(raw)),
		)
	}
}

// Run ticks every interval until ctx is done or the link terminates.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch c.Tick() {
			case StatusFailed:
				return fmt.Errorf("connection failed: %w", c.link.Err())
			case StatusClosed:
				return ErrClosed
			}
		}
	}
}
