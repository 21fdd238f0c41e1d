package simulator

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/muurk/ctrlpanel/internal/page"
	"github.com/muurk/ctrlpanel/internal/pagecache"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/remote"
	"github.com/muurk/ctrlpanel/internal/session"
	"github.com/muurk/ctrlpanel/internal/transport"
	"github.com/muurk/ctrlpanel/internal/widget"
)

const waitTimeout = 5 * time.Second

func startServer(t *testing.T, lengthPrefix bool) (*Server, remote.Address) {
	t.Helper()

	srv := New(&Config{Host: "127.0.0.1", Port: 0, LengthPrefix: lengthPrefix}, NewDemoDevice())
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	port := srv.Addr().(*net.TCPAddr).Port
	return srv, remote.New(127, 0, 0, 1, uint16(port))
}

type client struct {
	link  *transport.Session
	pages *page.Manager
	cache *pagecache.Cache
	ctrl  *session.Controller
}

func connect(t *testing.T, addr remote.Address, lengthPrefix bool) *client {
	t.Helper()

	cache, err := pagecache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	link := transport.New(addr, transport.Options{
		ConnectTimeout: 2 * time.Second,
		IOTimeout:      2 * time.Second,
		LengthPrefix:   lengthPrefix,
	})
	link.Connect()
	t.Cleanup(link.Close)

	pages := page.NewManager(cache, addr)
	return &client{link: link, pages: pages, cache: cache, ctrl: session.New(link, pages)}
}

// tickUntil drives the controller until cond holds.
func (c *client) tickUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if status := c.ctrl.Tick(); status.Terminal() {
			t.Fatalf("link terminated (%s: %v) waiting for %s", status, c.link.Err(), what)
		}
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// onPage reports whether id is active and its values have arrived.
func (c *client) onPage(id int) func() bool {
	return func() bool {
		active, ok := c.pages.ActivePage()
		if !ok || active != id {
			return false
		}
		w, ok := c.pages.Element(0)
		return ok && w.Enabled()
	}
}

func (c *client) press(t *testing.T, id int) {
	t.Helper()
	w, ok := c.pages.Element(id)
	if !ok {
		t.Fatalf("no element %d", id)
	}
	w.(*widget.Button).Press()
}

func TestSimulatorRoundTrip(t *testing.T) {
	for _, lengthPrefix := range []bool{false, true} {
		t.Run(fmt.Sprintf("length_prefix=%v", lengthPrefix), func(t *testing.T) {
			srv, addr := startServer(t, lengthPrefix)
			c := connect(t, addr, lengthPrefix)

			c.tickUntil(t, "page 0", c.onPage(0))
			if c.ctrl.Status() != session.StatusSteady {
				t.Errorf("Status() = %v, want steady", c.ctrl.Status())
			}
			if v, ok := c.ctrl.Version(); !ok || fmt.Sprint(v) != "1" {
				t.Errorf("Version() = %v, %v", v, ok)
			}

			c.press(t, 1)
			c.tickUntil(t, "Led 1", func() bool { return srv.Device().LEDs()[0] })

			c.press(t, 0)
			c.tickUntil(t, "page 1", c.onPage(1))

			if _, ok, err := c.cache.Load(addr, 1); !ok || err != nil {
				t.Errorf("page 1 not cached: ok=%v err=%v", ok, err)
			}
			sw, _ := c.pages.Element(2)
			if got := sw.Display(); got != "Led 1" {
				t.Errorf("LED switch = %q", got)
			}

			if err := sw.(*widget.Switch).Select(2); err != nil {
				t.Fatal(err)
			}
			c.tickUntil(t, "Led 2", func() bool { return srv.Device().LEDs() == [3]bool{false, true, false} })

			// back to page 0, served from the cache this time
			c.press(t, 0)
			c.tickUntil(t, "page 0 again", c.onPage(0))
		})
	}
}

func TestSimulatorLogin(t *testing.T) {
	_, addr := startServer(t, false)
	c := connect(t, addr, false)

	c.tickUntil(t, "page 0", c.onPage(0))
	c.press(t, 0)
	c.tickUntil(t, "page 1", c.onPage(1))
	c.press(t, 1)
	c.tickUntil(t, "page 2", c.onPage(2))

	// the password goes last: submitting it triggers the check
	for _, id := range []int{2, 3} {
		w, _ := c.pages.Element(id)
		e := w.(*widget.Entry)
		e.Focus()
		e.SetText("admin")
		if !e.Blur() {
			t.Fatalf("entry %d did not submit", id)
		}
	}

	c.tickUntil(t, "page 3", c.onPage(3))

	readout, _ := c.pages.Element(2)
	if got := readout.Display(); len(got) < 3 || got[len(got)-2:] != " V" {
		t.Errorf("ADC1 readout = %q", got)
	}
}

func TestShutdownClosesClients(t *testing.T) {
	srv, addr := startServer(t, false)
	c := connect(t, addr, false)
	c.tickUntil(t, "page 0", c.onPage(0))

	errCh := make(chan error, 1)
	go func() { errCh <- c.ctrl.Run(context.Background(), 5*time.Millisecond) }()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Run() returned nil after the device went away")
		}
	case <-time.After(waitTimeout):
		t.Fatal("Run() did not return after shutdown")
	}
	if srv.GetActiveConnections() != 0 {
		t.Errorf("GetActiveConnections() = %d", srv.GetActiveConnections())
	}
}

func TestStreamSyntaxError(t *testing.T) {
	_, addr := startServer(t, false)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(waitTimeout))

	greeting, err := protocol.ReadFrame(conn, 0)
	if err != nil || string(greeting) != `{"VERSION":1,"PAGE":0}` {
		t.Fatalf("greeting = %q, %v", greeting, err)
	}

	if _, err := conn.Write([]byte(`{"CMD":"POLL"}{"CMD":"GET","VAL":{"PAGE":9}}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := protocol.ReadFrame(conn, 0); err != nil {
		t.Fatalf("POLL reply: %v", err)
	}
	reply, err := protocol.ReadFrame(conn, 0)
	if err != nil || string(reply) != `{"ERR":"Page out of range."}` {
		t.Fatalf("GET reply = %q, %v", reply, err)
	}

	if _, err := conn.Write([]byte(`{CMD}`)); err != nil {
		t.Fatal(err)
	}
	reply, err = protocol.ReadFrame(conn, 0)
	if err != nil || string(reply) != `{"ERR":"Expected JSON object as message."}` {
		t.Fatalf("syntax error reply = %q, %v", reply, err)
	}
	if _, err := protocol.ReadFrame(conn, 0); !protocol.IsPeerClosed(err) {
		t.Errorf("expected the device to hang up, got %v", err)
	}
}
