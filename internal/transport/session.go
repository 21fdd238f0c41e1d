package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/queue"
	"github.com/muurk/ctrlpanel/internal/remote"
	"go.uber.org/zap"
)

const (
	// DefaultConnectTimeout bounds the TCP dial
	DefaultConnectTimeout = 10 * time.Second

	// DefaultIOTimeout bounds each read and write once connected
	DefaultIOTimeout = 5 * time.Second

	// DefaultSendPacing is the pause after every send
	DefaultSendPacing = 1 * time.Second
)

// Options configures a Session
type Options struct {
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
	// SendPacing of zero disables the pause after sends.
	SendPacing time.Duration
	// LengthPrefix frames outbound commands like inbound ones.
	// Deployed devices expect raw JSON, so it is off by default.
	LengthPrefix bool
	MaxFrameSize int
}

// DefaultOptions returns the timing used against real devices.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: DefaultConnectTimeout,
		IOTimeout:      DefaultIOTimeout,
		SendPacing:     DefaultSendPacing,
		MaxFrameSize:   protocol.DefaultMaxFrameSize,
	}
}

// Session is one connection attempt to one device.
// It is not reusable: reconnecting means creating a new Session.
type Session struct {
	addr remote.Address
	opts Options
	id   string
	log  *zap.Logger

	connected *Signal
	failed    *Signal
	closed    *Signal
	killed    *Signal

	termMu sync.Mutex
	err    error

	inbound  *queue.Queue[protocol.Message]
	outbound *queue.Queue[*protocol.Command]

	connMu sync.Mutex
	conn   net.Conn

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	done      chan struct{}
}

// New creates a session for addr. Nothing happens until Connect.
func New(addr remote.Address, opts Options) *Session {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = DefaultIOTimeout
	}
	if opts.SendPacing < 0 {
		opts.SendPacing = 0
	}
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		addr: addr,
		opts: opts,
		id:   id,
		log: logging.GetLogger().With(
			zap.String("session_id", id),
			zap.String("remote_addr", addr.String()),
		),
		connected: NewSignal(),
		failed:    NewSignal(),
		closed:    NewSignal(),
		killed:    NewSignal(),
		inbound:   queue.New[protocol.Message](),
		outbound:  queue.New[*protocol.Command](),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// ID returns the session id used in log fields.
func (s *Session) ID() string { return s.id }

// Addr returns the device address.
func (s *Session) Addr() remote.Address { return s.addr }

// Connected is raised once the dial succeeds.
func (s *Session) Connected() *Signal { return s.connected }

// ConnectionFailed is raised on any transport or decode failure.
func (s *Session) ConnectionFailed() *Signal { return s.failed }

// Closed is raised when the device closes the connection.
func (s *Session) Closed() *Signal { return s.closed }

// Killed is raised when the owner stops the session.
func (s *Session) Killed() *Signal { return s.killed }

// Inbound holds decoded device messages in arrival order.
func (s *Session) Inbound() *queue.Queue[protocol.Message] { return s.inbound }

// Outbound holds commands waiting to be sent. A nil command stops the session.
func (s *Session) Outbound() *queue.Queue[*protocol.Command] { return s.outbound }

// Err returns the cause of the terminal signal, or nil.
func (s *Session) Err() error {
	s.termMu.Lock()
	defer s.termMu.Unlock()
	return s.err
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Connect starts the session goroutine and returns immediately.
// Calls after the first, or after Close, do nothing.
func (s *Session) Connect() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Close stops the session and blocks until its goroutine has exited and the
// socket is closed. It is safe to call more than once and before Connect.
func (s *Session) Close() {
	s.killed.Set()
	s.cancel()

	s.connMu.Lock()
	if s.conn != nil {
		// unblock an in-flight read or write
		_ = s.conn.SetDeadline(time.Now())
	}
	s.connMu.Unlock()

	s.startOnce.Do(func() {
		close(s.done)
	})
	<-s.done
}

func (s *Session) stopping() bool {
	return s.killed.IsSet() || s.failed.IsSet() || s.closed.IsSet()
}

// terminate raises the terminal signal matching err unless one is already set.
func (s *Session) terminate(err error) {
	s.termMu.Lock()
	defer s.termMu.Unlock()

	if s.failed.IsSet() || s.closed.IsSet() {
		return
	}
	s.err = err

	if protocol.IsPeerClosed(err) {
		s.closed.Set()
		s.log.Info("Device closed the connection", zap.Error(err))
		return
	}
	s.failed.Set()
	s.log.Warn("Connection failed",
		zap.Bool("was_connected", s.connected.IsSet()),
		zap.Error(err),
	)
}

func (s *Session) run() {
	defer close(s.done)

	s.log.Info("Connecting", zap.Duration("timeout", s.opts.ConnectTimeout))

	dialer := net.Dialer{Timeout: s.opts.ConnectTimeout}
	conn, err := dialer.DialContext(s.ctx, "tcp", s.addr.String())
	if err != nil {
		if s.killed.IsSet() {
			return
		}
		s.terminate(protocol.NewTransportError("connect failed", err))
		return
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	defer func() {
		_ = conn.Close()
		logging.LogConnection(s.addr.String(), "disconnected", zap.String("session_id", s.id))
	}()

	s.connected.Set()
	logging.LogConnection(s.addr.String(), "connected", zap.String("session_id", s.id))

	for !s.stopping() {
		if err := s.cycle(conn); err != nil {
			// errors caused by Close nudging the deadline are not failures
			if s.killed.IsSet() {
				return
			}
			s.terminate(err)
		}
	}
}

// cycle runs one read, one send. A nil error with the kill signal set means
// the owner stopped the session.
func (s *Session) cycle(conn net.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(s.opts.IOTimeout)); err != nil {
		return protocol.NewTransportError("set read deadline", err)
	}
	if s.killed.IsSet() {
		return nil
	}

	payload, err := protocol.ReadFrame(conn, s.opts.MaxFrameSize)
	if err != nil {
		return err
	}
	logging.LogFrame(s.addr.String(), "received", payload, zap.String("session_id", s.id))

	msgs, err := protocol.Split(payload)
	if err != nil {
		return err
	}
	s.inbound.PushAll(msgs...)

	cmd, ok := s.outbound.Pop(s.killed.Done())
	if !ok || s.killed.IsSet() {
		return nil
	}
	if cmd == nil {
		s.log.Debug("Terminate command dequeued")
		s.killed.Set()
		return nil
	}

	data, err := cmd.Encode()
	if err != nil {
		return protocol.NewTransportError("encode command", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.IOTimeout)); err != nil {
		return protocol.NewTransportError("set write deadline", err)
	}
	if err := protocol.WriteFrame(conn, data, s.opts.LengthPrefix); err != nil {
		return err
	}
	logging.LogFrame(s.addr.String(), "sent", data, zap.String("session_id", s.id))

	if s.opts.SendPacing > 0 {
		select {
		case <-time.After(s.opts.SendPacing):
		case <-s.killed.Done():
		}
	}
	return nil
}
