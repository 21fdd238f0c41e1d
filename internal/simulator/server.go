package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"go.uber.org/zap"
)

// DefaultPort is the port the reference firmware listens on
const DefaultPort = 9874

// Config holds the simulator configuration
type Config struct {
	Host string
	Port int
	// LengthPrefix reads client commands as length-prefixed frames instead
	// of a stream of concatenated JSON objects.
	LengthPrefix bool
	// IdleTimeout closes connections that send nothing for this long.
	// Zero disables it.
	IdleTimeout  time.Duration
	MaxFrameSize int
}

// Server accepts client connections for one simulated device
type Server struct {
	config      *Config
	device      *Device
	listener    net.Listener
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a server for device
func New(config *Config, device *Device) *Server {
	return &Server{
		config:      config,
		device:      device,
		activeConns: make(map[string]net.Conn),
	}
}

// Device returns the simulated device
func (s *Server) Device() *Device { return s.device }

// Listen binds the listening socket.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Simulator listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.Int("pages", s.device.PageCount()),
		zap.Bool("length_prefix", s.config.LengthPrefix),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start listens and serves until SIGINT/SIGTERM.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping simulator...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("simulator is not listening")
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	if err := s.serveConn(conn, remoteAddr); err != nil {
		logging.Error("Connection error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// serveConn runs the greeting and the request/response loop.
func (s *Server) serveConn(conn net.Conn, remoteAddr string) error {
	c := s.device.NewConn(remoteAddr)
	if err := s.send(conn, remoteAddr, c.Greeting()); err != nil {
		return err
	}

	read := s.commandReader(conn)
	for {
		if s.config.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
				return err
			}
		}

		msg, err := read()
		if err != nil {
			if errors.Is(err, io.EOF) || protocol.IsPeerClosed(err) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				// the stream cannot be resynchronized after a syntax error
				_ = s.send(conn, remoteAddr, errorReply(ErrNotObject))
			}
			return err
		}
		logging.LogFrame(remoteAddr, "received", msg)

		if err := s.send(conn, remoteAddr, c.Handle(msg)); err != nil {
			return err
		}
	}
}

// commandReader returns a function reading one client command.
func (s *Server) commandReader(conn net.Conn) func() ([]byte, error) {
	if s.config.LengthPrefix {
		return func() ([]byte, error) {
			return protocol.ReadFrame(conn, s.config.MaxFrameSize)
		}
	}

	dec := json.NewDecoder(conn)
	return func() ([]byte, error) {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
}

func (s *Server) send(conn net.Conn, remoteAddr string, payload []byte) error {
	logging.LogFrame(remoteAddr, "sent", payload)
	return protocol.WriteFrame(conn, payload, true)
}

// Shutdown closes the listener and every active connection
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down simulator...")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
