package notifier

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/heyu-project/heyud/internal/logging"
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/protocol"
	"github.com/heyu-project/heyud/internal/transport"
)

// stubHub accepts one connection at a time on a loopback listener and
// drives it through a caller-supplied script, standing in for a real
// hub so the notifier's state machine can be exercised end to end.
type stubHub struct {
	ln net.Listener
}

func newStubHub(t *testing.T) *stubHub {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return &stubHub{ln: ln}
}

func (h *stubHub) addr() string { return h.ln.Addr().String() }

// serveOnce accepts a single connection, expects a subscribe frame, and
// hands the wrapped Conn to script for the rest of the exchange.
func (h *stubHub) serveOnce(t *testing.T, script func(conn *transport.Conn)) {
	t.Helper()
	raw, err := h.ln.Accept()
	if err != nil {
		t.Errorf("Accept: %v", err)
		return
	}
	conn := transport.NewConn(999, raw)
	defer conn.Close()

	frame, err := conn.ReadFrame()
	if err != nil {
		t.Errorf("read subscribe: %v", err)
		return
	}
	msg, err := protocol.Decode(frame)
	if err != nil || msg.Type() != protocol.TypeSubscribe {
		t.Errorf("expected subscribe frame, got %v, err=%v", msg, err)
		return
	}

	script(conn)
}

func newTestNotifier(addr string) *Notifier {
	manager := transport.NewManager(nil, nil)
	return New("tcp", addr, manager, 300, 30, 5, nil, nil)
}

func TestNotifierSubscribeThenReceivesNotify(t *testing.T) {
	hub := newStubHub(t)
	n := newTestNotifier(hub.addr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.serveOnce(t, func(conn *transport.Conn) {
			writeFrame(t, conn, protocol.NewSubscribed())
			writeFrame(t, conn, protocol.NewNotify("[hub]chat", "hi", "there"))
			time.Sleep(50 * time.Millisecond)
		})
	}()

	n.Start(context.Background())

	evt1, ok := n.Next()
	if !ok || evt1.Type() != protocol.TypeNotify {
		t.Fatalf("expected synthetic connected-as-notify event, got %v ok=%v", evt1, ok)
	}
	args1, _ := evt1.Notify()
	if args1.Category == nil || *args1.Category != categoryConnected {
		t.Errorf("first event category = %v, want %s", args1.Category, categoryConnected)
	}

	evt2, ok := n.Next()
	if !ok || evt2.Type() != protocol.TypeNotify {
		t.Fatalf("expected real notify, got %v ok=%v", evt2, ok)
	}
	args2, _ := evt2.Notify()
	if args2.AppName != "[hub]chat" {
		t.Errorf("AppName = %q, want %q", args2.AppName, "[hub]chat")
	}

	<-done
	n.Stop()
	n.Wait()
}

func TestNotifierStopEndsIteratorWithoutReconnect(t *testing.T) {
	hub := newStubHub(t)
	n := newTestNotifier(hub.addr())

	serverGotGoodbye := make(chan struct{})
	go hub.serveOnce(t, func(conn *transport.Conn) {
		writeFrame(t, conn, protocol.NewSubscribed())
		frame, err := conn.ReadFrame()
		if err == nil {
			if msg, derr := protocol.Decode(frame); derr == nil && msg.Type() == protocol.TypeGoodbye {
				close(serverGotGoodbye)
			}
		}
	})

	n.Start(context.Background())

	connected, ok := n.Next()
	if !ok || connected.Type() != protocol.TypeNotify {
		t.Fatalf("expected connected event, got %v ok=%v", connected, ok)
	}

	n.Stop()

	select {
	case <-serverGotGoodbye:
	case <-time.After(2 * time.Second):
		t.Fatal("hub never received goodbye after Stop")
	}

	n.Wait()

	if _, ok := n.Next(); ok {
		t.Error("iterator produced another item after Stop drained the stream")
	}
}

func TestNotifierShutdownDropsUnconsumedQueue(t *testing.T) {
	hub := newStubHub(t)
	n := newTestNotifier(hub.addr())

	go hub.serveOnce(t, func(conn *transport.Conn) {
		writeFrame(t, conn, protocol.NewSubscribed())
		writeFrame(t, conn, protocol.NewNotify("app", "s1", "b1"))
		writeFrame(t, conn, protocol.NewNotify("app", "s2", "b2"))
		time.Sleep(200 * time.Millisecond)
	})

	n.Start(context.Background())

	if _, ok := n.Next(); !ok {
		t.Fatal("expected connected event")
	}

	time.Sleep(50 * time.Millisecond) // let both notifies queue up
	n.Shutdown()
	n.Wait()

	if _, ok := n.Next(); ok {
		t.Error("expected empty, closed queue after Shutdown")
	}
}

// newBackoffPrimedNotifier builds a Notifier bypassing New, the way
// newTestHub bypasses hub.New, so the backoff generator can be primed
// to produce a long sleep on the very first connection failure.
func newBackoffPrimedNotifier(addr string, primedSleep int) *Notifier {
	manager := transport.NewManager(nil, nil)
	backoff := NewBackoff(300, 30, 5)
	backoff.sleep = primedSleep
	n := &Notifier{
		logger:  logging.NewLogger("info"),
		metrics: &metrics.NoopCollector{},
		manager: manager,
		network: "tcp",
		addr:    addr,
		backoff: backoff,
		queue:   newEventQueue(),
		appID:   "test-app-id",
		wake:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	manager.SetHandler(n.handleConn)
	return n
}

func TestNotifierStopDuringBackoffSleepUnwindsImmediately(t *testing.T) {
	// Nothing listens on this port, so the notifier's first Dial fails
	// fast and the loop enters a backoff sleep primed to land at the
	// 300s cap (the scenario's maxSleep) on that very first failure.
	n := newBackoffPrimedNotifier("127.0.0.1:1", 250)

	n.Start(context.Background())
	time.Sleep(100 * time.Millisecond) // let the failed Dial land the loop in its sleep

	start := time.Now()
	n.Stop()
	n.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Stop took %v to unwind a notifier parked in a ~300s backoff sleep", elapsed)
	}

	if _, ok := n.Next(); ok {
		t.Error("expected the iterator to end without producing items")
	}
}

func TestNotifierShutdownDuringBackoffSleepUnwindsImmediately(t *testing.T) {
	n := newBackoffPrimedNotifier("127.0.0.1:1", 250)

	n.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	n.Shutdown()
	n.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Shutdown took %v to unwind a notifier parked in a ~300s backoff sleep", elapsed)
	}

	if _, ok := n.Next(); ok {
		t.Error("expected the iterator to end without producing items")
	}
}

func writeFrame(t *testing.T, conn *transport.Conn, msg *protocol.Message) {
	t.Helper()
	frame, err := msg.Encode(protocol.CurrentVersion)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := conn.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
}
