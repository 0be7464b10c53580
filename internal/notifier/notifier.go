// Package notifier implements the long-lived subscriber role: it holds
// a reconnecting connection to a hub under exponential backoff and
// exposes the decoded stream, plus its own synthetic status events, as
// an iterator for a sink driver to consume.
package notifier

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/heyu-project/heyud/internal/logging"
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/protocol"
	"github.com/heyu-project/heyud/internal/transport"
)

// Synthetic event categories from spec §4.4.
const (
	categoryConnected    = "network.connected"
	categoryDisconnected = "network.disconnected"
	categoryError        = "network.error"
)

// syntheticAppName identifies the notifier itself as the source of its
// own status events on the wire.
const syntheticAppName = "heyu-notifier"

// Notifier is the notifier role's core. Construct one with New, wire it
// to a signal watcher as a signals.Supervisor, then Start it and drain
// Next from a sink driver.
type Notifier struct {
	logger  *slog.Logger
	metrics metrics.Collector
	manager *transport.Manager
	network string
	addr    string
	backoff *Backoff
	queue   *eventQueue
	appID   string

	mu     sync.Mutex
	active *transport.Conn

	stopping     atomic.Bool
	shuttingDown atomic.Bool
	stopOnce     sync.Once
	shutdownOnce sync.Once
	wake         chan struct{}
	wakeOnce     sync.Once
	done         chan struct{}
}

// New constructs a Notifier that dials network/addr. maxSleep, threshold
// and recover are the backoff generator's scenario parameters (spec §8).
func New(network, addr string, manager *transport.Manager, maxSleep, threshold, recover int, logger *slog.Logger, collector metrics.Collector) *Notifier {
	if logger == nil {
		logger = logging.NewLogger("info")
	}
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	n := &Notifier{
		logger:  logger,
		metrics: collector,
		manager: manager,
		network: network,
		addr:    addr,
		backoff: NewBackoff(maxSleep, threshold, recover),
		queue:   newEventQueue(),
		appID:   uuid.NewString(),
		wake:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	manager.SetHandler(n.handleConn)
	return n
}

// Start begins the connect-retry loop in its own goroutine. It does not
// block; use Wait or Next to observe progress.
func (n *Notifier) Start(ctx context.Context) {
	go n.loop(ctx)
}

// Wait blocks until the connect-retry loop has exited, after a Stop or
// Shutdown.
func (n *Notifier) Wait() { <-n.done }

// Next blocks for the next queued item: a decoded notify, or one of the
// notifier's own synthetic network.* events. It returns ok=false once
// the stream has ended (after Stop or Shutdown), matching the iterator
// contract a sink driver consumes.
func (n *Notifier) Next() (*protocol.Message, bool) {
	return n.queue.next()
}

// Stop implements signals.Supervisor: a graceful disconnect. The current
// connection, if any, is sent a goodbye and closed; the connect-retry
// loop then exits without reconnecting, and the iterator ends.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		n.stopping.Store(true)
		n.logger.Info("notifier stopping")
		if conn := n.getActiveConn(); conn != nil {
			_ = conn.WriteFrame(mustEncodeNotifier(protocol.NewGoodbye()))
			conn.Close()
		}
		n.queue.close()
		n.signalWake()
	})
}

// Shutdown implements signals.Supervisor: an abrupt disconnect. The
// current connection, if any, is dropped without a goodbye, any
// unconsumed queued items are cleared, and the iterator ends. Shutdown
// always wins over a pending Stop.
func (n *Notifier) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.shuttingDown.Store(true)
		n.logger.Info("notifier shutting down")
		if conn := n.getActiveConn(); conn != nil {
			conn.Close()
		}
		n.queue.drop()
		n.queue.close()
		n.signalWake()
	})
}

// signalWake closes the wake channel exactly once, waking a loop
// blocked in the reconnect backoff sleep regardless of whether Stop or
// Shutdown triggered it.
func (n *Notifier) signalWake() {
	n.wakeOnce.Do(func() { close(n.wake) })
}

func (n *Notifier) loop(ctx context.Context) {
	defer close(n.done)

	for {
		if n.shuttingDown.Load() {
			n.queue.drop()
			n.queue.close()
			return
		}
		if n.stopping.Load() {
			n.queue.close()
			return
		}

		start := time.Now()
		if err := n.manager.Dial(ctx, n.network, n.addr); err != nil {
			n.logger.Warn("connect attempt failed", slog.String("error", err.Error()))
		}
		elapsed := time.Since(start)

		if n.shuttingDown.Load() {
			n.queue.drop()
			n.queue.close()
			return
		}
		if n.stopping.Load() {
			n.queue.close()
			return
		}

		sleep := n.backoff.Record(elapsed)
		n.metrics.ReconnectAttempted()
		n.metrics.BackoffSleep(sleep.Seconds())

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			n.queue.close()
			return
		case <-n.wake:
			timer.Stop()
			// Stop/Shutdown already closed (and, for Shutdown, dropped)
			// the queue; loop back to the top to pick up the right
			// return path for whichever one fired.
		}
	}
}

func (n *Notifier) getActiveConn() *transport.Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

func (n *Notifier) setActiveConn(c *transport.Conn) {
	n.mu.Lock()
	n.active = c
	n.mu.Unlock()
}

// handleConn drives one connection attempt through CONNECTING,
// AWAIT_SUBSCRIBED and SUBSCRIBED (spec §4.4).
func (n *Notifier) handleConn(ctx context.Context, conn *transport.Conn) {
	n.setActiveConn(conn)
	defer n.setActiveConn(nil)
	defer conn.Close()

	if err := conn.WriteFrame(mustEncodeNotifier(protocol.NewSubscribe())); err != nil {
		return
	}

	frame, err := conn.ReadFrame()
	if err != nil {
		return
	}
	msg, err := protocol.Decode(frame)
	if err != nil {
		n.enqueueEvent(categoryError, "malformed reply to subscribe: "+err.Error())
		return
	}
	if msg.Type() != protocol.TypeSubscribed {
		n.enqueueEvent(categoryError, "unexpected reply to subscribe: "+msg.RawType())
		return
	}

	n.enqueueEvent(categoryConnected, "")

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if !n.isStoppingOrShuttingDown() {
				n.enqueueEvent(categoryDisconnected, "")
			}
			return
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			n.enqueueEvent(categoryError, "malformed frame: "+err.Error())
			return
		}

		switch msg.Type() {
		case protocol.TypeNotify:
			n.queue.push(msg)
			n.metrics.NotificationQueued()
		case protocol.TypeGoodbye:
			n.enqueueEvent(categoryDisconnected, "")
			return
		case protocol.TypeError:
			reason, _ := msg.ErrorReason()
			n.enqueueEvent(categoryError, reason)
			return
		default:
			// Unknown msg_type: the channel is still valid (spec §7 kind
			// 3) — surface locally and keep reading.
			n.enqueueEvent(categoryError, "unexpected message type "+msg.RawType())
		}
	}
}

func (n *Notifier) isStoppingOrShuttingDown() bool {
	return n.stopping.Load() || n.shuttingDown.Load()
}

func (n *Notifier) enqueueEvent(category, body string) {
	summary := strings.TrimPrefix(category, "network.")
	n.queue.push(protocol.NewNotify(syntheticAppName, summary, body, protocol.WithCategory(category), protocol.WithID(n.appID)))
}

func mustEncodeNotifier(msg *protocol.Message) []byte {
	b, err := msg.Encode(protocol.CurrentVersion)
	if err != nil {
		panic("notifier: encoding a freshly constructed message failed: " + err.Error())
	}
	return b
}
