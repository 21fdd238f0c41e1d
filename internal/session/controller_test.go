package session

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/page"
	"github.com/muurk/ctrlpanel/internal/pagecache"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/queue"
	"github.com/muurk/ctrlpanel/internal/remote"
	"github.com/muurk/ctrlpanel/internal/transport"
	"github.com/muurk/ctrlpanel/internal/widget"
)

const page0 = `{"size":[2,3],"widgets":[` +
	`{"type":"label", "text":"Page 0", "position":[0, 1]},` +
	`{"type":"button", "text":"next page"},` +
	`{"type":"button", "text":"Led 1"},` +
	`{"type":"button", "text":"Led 2"},` +
	`{"type":"button", "text":"Led 3"}` +
	`]}`

const page1 = `{"size":[2,3],"widgets":[` +
	`{"type":"button", "text":"previous page"},` +
	`{"type":"label", "text":"Page 1"},` +
	`{"type":"switch", "text":"Led 1,Led 2,Led 3", "show_zero": false}` +
	`]}`

var testAddr = remote.New(127, 0, 0, 1, 9874)

type fakeLink struct {
	inbound   *queue.Queue[protocol.Message]
	outbound  *queue.Queue[*protocol.Command]
	connected *transport.Signal
	failed    *transport.Signal
	closed    *transport.Signal
	err       error
}

func newFakeLink() *fakeLink {
	l := &fakeLink{
		inbound:   queue.New[protocol.Message](),
		outbound:  queue.New[*protocol.Command](),
		connected: transport.NewSignal(),
		failed:    transport.NewSignal(),
		closed:    transport.NewSignal(),
	}
	l.connected.Set()
	return l
}

func (l *fakeLink) Inbound() *queue.Queue[protocol.Message]   { return l.inbound }
func (l *fakeLink) Outbound() *queue.Queue[*protocol.Command] { return l.outbound }
func (l *fakeLink) Connected() *transport.Signal              { return l.connected }
func (l *fakeLink) ConnectionFailed() *transport.Signal       { return l.failed }
func (l *fakeLink) Closed() *transport.Signal                 { return l.closed }
func (l *fakeLink) Err() error                                { return l.err }

// frame queues one device frame the way the transport does.
func (l *fakeLink) frame(t *testing.T, payload []byte) {
	t.Helper()
	msgs, err := protocol.Split(payload)
	if err != nil {
		t.Fatalf("Split(%q): %v", payload, err)
	}
	l.inbound.PushAll(msgs...)
}

func (l *fakeLink) values(t *testing.T, n int, blob []byte) {
	t.Helper()
	l.frame(t, append([]byte(`{"VAL":`+strconv.Itoa(n)+`}`), blob...))
}

// sent pops the single command queued for the last frame.
func (l *fakeLink) sent(t *testing.T) string {
	t.Helper()
	cmd, ok := l.outbound.TryPop()
	if !ok {
		t.Fatal("no command queued")
	}
	if l.outbound.Len() != 0 {
		t.Fatalf("%d extra commands queued", l.outbound.Len())
	}
	return cmd.String()
}

func newController(t *testing.T) (*Controller, *fakeLink, *pagecache.Cache) {
	t.Helper()
	cache, err := pagecache.Open(filepath.Join(t.TempDir(), "saved_pages"))
	if err != nil {
		t.Fatal(err)
	}
	link := newFakeLink()
	return New(link, page.NewManager(cache, testAddr)), link, cache
}

func buttons(n int) []byte {
	var blob []byte
	for i := 0; i < n; i++ {
		blob = widget.AppendButton(blob, false, true)
	}
	return blob
}

// handshake drives greeting + page 0 fetch.
func handshake(t *testing.T, c *Controller, link *fakeLink) {
	t.Helper()
	link.frame(t, []byte(`{"VERSION":1,"PAGE":0}`))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"GET","VAL":{"PAGE":0}}` {
		t.Fatalf("after greeting sent %s", got)
	}
	link.frame(t, []byte(page0))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Fatalf("after description sent %s", got)
	}
}

func TestHandshakeFetchesPage(t *testing.T) {
	c, link, cache := newController(t)

	var version any
	c.OnVersion(func(v any) { version = v })

	if c.Status() != StatusHandshake {
		t.Errorf("status = %v", c.Status())
	}
	if st := c.Tick(); st != StatusHandshake {
		t.Errorf("idle tick status = %v", st)
	}
	if link.outbound.Len() != 0 {
		t.Error("idle tick queued a command")
	}

	link.frame(t, []byte(`{"VERSION":1,"PAGE":0}`))
	if st := c.Tick(); st != StatusSteady {
		t.Errorf("status after VERSION = %v", st)
	}
	if n, _ := protocol.AsInt(version); n != 1 {
		t.Errorf("OnVersion got %v", version)
	}
	if id, ok := c.PendingFetch(); !ok || id != 0 {
		t.Errorf("pending = %d,%v", id, ok)
	}
	if got := link.sent(t); got != `{"CMD":"GET","VAL":{"PAGE":0}}` {
		t.Errorf("sent %s", got)
	}

	link.frame(t, []byte(page0))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if _, ok := c.PendingFetch(); ok {
		t.Error("pending fetch not cleared")
	}
	if id, ok := c.Pages().ActivePage(); !ok || id != 0 {
		t.Errorf("active page = %d,%v", id, ok)
	}
	if _, ok, _ := cache.Load(testAddr, 0); !ok {
		t.Error("fetched description not cached")
	}
}

func TestCachedPageSkipsFetch(t *testing.T) {
	c, link, cache := newController(t)
	if err := cache.Store(testAddr, 0, []byte(page0)); err != nil {
		t.Fatal(err)
	}

	link.frame(t, []byte(`{"VERSION":1,"PAGE":0}`))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s, want POLL for cached page", got)
	}
	if id, ok := c.Pages().ActivePage(); !ok || id != 0 {
		t.Errorf("active page = %d,%v", id, ok)
	}
}

func TestValueUpdateAndEvents(t *testing.T) {
	c, link, _ := newController(t)
	handshake(t, c, link)

	applied := 0
	c.OnValues(func() { applied++ })
	defer func() {
		if applied != 4 {
			t.Errorf("OnValues called %d times, want 4", applied)
		}
	}()

	link.values(t, 4, buttons(4))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if link.inbound.Len() != 0 {
		t.Error("value blob left in the inbound queue")
	}

	w, ok := c.Pages().Element(1)
	if !ok {
		t.Fatal("element 1 missing")
	}
	if !w.(*widget.Button).Click() {
		t.Fatal("click rejected")
	}

	link.values(t, 4, buttons(4))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"SET","VAL":[1,1]}` {
		t.Errorf("sent %s", got)
	}
	link.values(t, 4, buttons(4))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"SET","VAL":[1,0]}` {
		t.Errorf("sent %s", got)
	}
	link.values(t, 4, buttons(4))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
}

func TestPageChangeRequestsUnknownPage(t *testing.T) {
	c, link, _ := newController(t)
	handshake(t, c, link)

	link.frame(t, []byte(`{"PAGE":1}`))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"GET","VAL":{"PAGE":1}}` {
		t.Errorf("sent %s", got)
	}

	link.frame(t, []byte(page1))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if id, _ := c.Pages().ActivePage(); id != 1 {
		t.Errorf("active page = %d", id)
	}

	var blob []byte
	blob = widget.AppendButton(blob, false, true)
	blob = widget.AppendSwitch(blob, 2, true)
	link.values(t, 2, blob)
	c.Tick()
	link.sent(t)

	sw, _ := c.Pages().Element(1)
	if sw.Display() != "Led 2" {
		t.Errorf("switch shows %q", sw.Display())
	}

	// back to a page already cached: no GET
	link.frame(t, []byte(`{"PAGE":0}`))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
}

func TestPageAndValuesForUncachedPage(t *testing.T) {
	c, link, cache := newController(t)
	handshake(t, c, link)

	// values of page 1 arrive with the switch to it; page 0 is still active
	var blob []byte
	blob = widget.AppendButton(blob, false, true)
	blob = widget.AppendSwitch(blob, 1, true)
	link.frame(t, append([]byte(`{"PAGE":1,"VAL":1}`), blob...))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"GET","VAL":{"PAGE":1}}` {
		t.Errorf("sent %s", got)
	}
	if id, ok := c.PendingFetch(); !ok || id != 1 {
		t.Errorf("pending = %d,%v, want 1", id, ok)
	}
	if n := link.inbound.Len(); n != 0 {
		t.Errorf("%d inbound messages left, blob should be dropped", n)
	}
	if raw, ok, _ := cache.Load(testAddr, 0); !ok || string(raw) != page0 {
		t.Errorf("page 0 cache entry changed: %q %v", raw, ok)
	}

	link.frame(t, []byte(page1))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if id, _ := c.Pages().ActivePage(); id != 1 {
		t.Errorf("active page = %d", id)
	}
	if raw, ok, _ := cache.Load(testAddr, 1); !ok || string(raw) != page1 {
		t.Errorf("page 1 cache entry = %q %v", raw, ok)
	}
	if raw, ok, _ := cache.Load(testAddr, 0); !ok || string(raw) != page0 {
		t.Errorf("page 0 cache entry = %q %v", raw, ok)
	}
}

func TestLabelOnlyPageValuesWithoutBlob(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logging.GetLogger()
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })

	c, link, cache := newController(t)
	if err := cache.Store(testAddr, 4, []byte(`{"widgets":[{"type":"label","text":"Info"}]}`)); err != nil {
		t.Fatal(err)
	}
	link.frame(t, []byte(`{"VERSION":1,"PAGE":4}`))
	c.Tick()
	link.sent(t)

	for i := 0; i < 3; i++ {
		link.frame(t, []byte(`{"VAL":4}`))
		c.Tick()
		if got := link.sent(t); got != `{"CMD":"POLL"}` {
			t.Errorf("sent %s", got)
		}
	}
	if n := logs.FilterMessage("VAL record without value blob").Len(); n != 0 {
		t.Errorf("warned %d times for a page without elements", n)
	}

	// a page with elements still warns
	if err := cache.Store(testAddr, 0, []byte(page0)); err != nil {
		t.Fatal(err)
	}
	link.frame(t, []byte(`{"PAGE":0,"VAL":0}`))
	c.Tick()
	link.sent(t)
	if n := logs.FilterMessage("VAL record without value blob").Len(); n != 1 {
		t.Errorf("warned %d times for page 0, want 1", n)
	}
}

func TestEventsDroppedOnPageChange(t *testing.T) {
	c, link, cache := newController(t)
	handshake(t, c, link)
	if err := cache.Store(testAddr, 1, []byte(page1)); err != nil {
		t.Fatal(err)
	}

	link.values(t, 4, buttons(4))
	c.Tick()
	link.sent(t)

	w, _ := c.Pages().Element(0)
	w.(*widget.Button).Click()

	link.frame(t, []byte(`{"PAGE":1}`))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s, events of the old page must not be sent", got)
	}
}

func TestLayoutMismatchRefetches(t *testing.T) {
	c, link, cache := newController(t)
	handshake(t, c, link)
	c.OnValues(func() { t.Error("OnValues called for a rejected blob") })

	link.values(t, 3, buttons(3))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"GET","VAL":{"PAGE":0}}` {
		t.Errorf("sent %s after stale layout", got)
	}
	if _, ok, _ := cache.Load(testAddr, 0); ok {
		t.Error("stale page still cached")
	}

	link.frame(t, []byte(page0))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if _, ok, _ := cache.Load(testAddr, 0); !ok {
		t.Error("page not cached again")
	}
}

func TestDeviceErrorReported(t *testing.T) {
	c, link, _ := newController(t)
	var reported []string
	c.OnError(func(msg string) { reported = append(reported, msg) })

	link.frame(t, []byte(`{ "ERR": "Unknown CMD." }`))
	c.Tick()

	if len(reported) != 1 || reported[0] != "Unknown CMD." {
		t.Errorf("reported %q", reported)
	}
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if c.State() != StateHandshake {
		t.Error("ERR must not end the handshake")
	}
}

func TestFetchAnsweredWithError(t *testing.T) {
	c, link, cache := newController(t)

	link.frame(t, []byte(`{"VERSION":1,"PAGE":7}`))
	c.Tick()
	link.sent(t)

	link.frame(t, []byte(`{"ERR":"Page out of range."}`))
	c.Tick()
	if got := link.sent(t); got != `{"CMD":"POLL"}` {
		t.Errorf("sent %s", got)
	}
	if _, ok := c.PendingFetch(); ok {
		t.Error("pending fetch survived")
	}
	if _, ok, _ := cache.Load(testAddr, 7); ok {
		t.Error("error record cached as page description")
	}
}

func TestStrayRawBytesDropped(t *testing.T) {
	c, link, _ := newController(t)
	link.inbound.Push(protocol.RawBytes{1, 2, 3})
	c.Tick()
	if link.outbound.Len() != 0 {
		t.Error("stray blob produced a command")
	}
	if link.inbound.Len() != 0 {
		t.Error("stray blob not consumed")
	}
}

func TestOneRecordPerTick(t *testing.T) {
	c, link, _ := newController(t)
	link.frame(t, []byte(`{"ERR":"a"}`))
	link.frame(t, []byte(`{"ERR":"b"}`))

	c.Tick()
	if link.outbound.Len() != 1 || link.inbound.Len() != 1 {
		t.Errorf("outbound=%d inbound=%d after one tick", link.outbound.Len(), link.inbound.Len())
	}
	c.Tick()
	if link.outbound.Len() != 2 || link.inbound.Len() != 0 {
		t.Errorf("outbound=%d inbound=%d after two ticks", link.outbound.Len(), link.inbound.Len())
	}
}

func TestStatusFromSignals(t *testing.T) {
	c, link, _ := newController(t)

	fresh := newFakeLink()
	fresh.connected = transport.NewSignal()
	if st := New(fresh, c.Pages()).Status(); st != StatusConnecting {
		t.Errorf("status = %v, want connecting", st)
	}

	link.closed.Set()
	if st := c.Tick(); st != StatusClosed || !st.Terminal() {
		t.Errorf("status = %v, want closed", st)
	}

	failed := newFakeLink()
	failed.failed.Set()
	if st := New(failed, c.Pages()).Status(); st != StatusFailed {
		t.Errorf("status = %v, want failed", st)
	}
}

func TestRunStopsOnTerminalSignal(t *testing.T) {
	c, link, _ := newController(t)
	link.err = errors.New("read timed out")
	link.failed.Set()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.Run(ctx, 5*time.Millisecond)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}
	if !errors.Is(err, link.err) {
		t.Errorf("Run error does not wrap cause: %v", err)
	}

	c2, link2, _ := newController(t)
	link2.closed.Set()
	if err := c2.Run(ctx, 5*time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("Run = %v, want ErrClosed", err)
	}
}

func TestRunStopsOnContext(t *testing.T) {
	c, _, _ := newController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v", err)
	}
}

func TestTerminatePushesSentinel(t *testing.T) {
	c, link, _ := newController(t)
	c.Terminate()
	cmd, ok := link.outbound.TryPop()
	if !ok || cmd != nil {
		t.Errorf("Terminate queued %v,%v", cmd, ok)
	}
}
