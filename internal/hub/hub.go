// Package hub implements the broker role: it accepts submitter and
// subscriber connections, classifies each on its first frame, and fans
// a submitted notify out to every current subscriber.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/heyu-project/heyud/internal/config"
	"github.com/heyu-project/heyud/internal/logging"
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/protocol"
	"github.com/heyu-project/heyud/internal/transport"
)

// versionedMessage is the subset of *protocol.Message the fan-out loop
// depends on, so that tests can supply an encoder with a different set
// of encodable versions than the production codec's single version.
type versionedMessage interface {
	EncodeForVersion(version int) ([]byte, error)
}

// subscriber is the hub-side subscriber record from spec §3: a
// connection handle and the protocol version it negotiated at
// subscribe time, keyed by the connection's process-local id rather
// than any wire-visible field or object identity.
type subscriber struct {
	conn    *transport.Conn
	version int
}

// Hub is the broker. Its zero value is not usable; construct one with
// New.
type Hub struct {
	logger   *slog.Logger
	metrics  metrics.Collector
	manager  *transport.Manager
	hostname string

	mu          sync.Mutex
	subscribers map[uint64]*subscriber
}

// New creates a Hub. hostname is the hub's own fully-qualified name,
// substituted into a notify's rewritten app_name when the submitting
// peer connects from loopback (spec §4.3).
func New(hostname string, manager *transport.Manager, logger *slog.Logger, collector metrics.Collector) *Hub {
	if logger == nil {
		logger = logging.NewLogger("info")
	}
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	h := &Hub{
		logger:      logger,
		metrics:     collector,
		manager:     manager,
		hostname:    hostname,
		subscribers: make(map[uint64]*subscriber),
	}
	manager.SetHandler(h.handle)
	return h
}

// Listen registers one listen endpoint with the underlying connection
// manager. Call once per endpoint before Start.
func (h *Hub) Listen(ep config.Endpoint) error {
	return h.manager.Listen(ep.Network(), ep.Addr())
}

// Start begins accepting connections on every registered endpoint. It
// does not block.
func (h *Hub) Start() error {
	h.logger.Info("hub starting")
	return h.manager.Start()
}

// Stop gracefully ceases accepting new connections; existing
// connections close at their own pace. Implements signals.Supervisor.
func (h *Hub) Stop() {
	h.logger.Info("hub stopping")
	if err := h.manager.Stop(); err != nil {
		h.logger.Error("hub stop", slog.String("error", err.Error()))
	}
}

// Shutdown abruptly drops every open connection. Implements
// signals.Supervisor.
func (h *Hub) Shutdown() {
	h.logger.Info("hub shutting down")
	if err := h.manager.Shutdown(); err != nil {
		h.logger.Error("hub shutdown", slog.String("error", err.Error()))
	}
}

// Wait blocks until every accept loop and connection handler has
// returned.
func (h *Hub) Wait() { h.manager.Wait() }

// connState is the per-connection classification from spec §4.3.
type connState int

const (
	stateUnclassified connState = iota
	statePersistent
)

func (h *Hub) handle(ctx context.Context, conn *transport.Conn) {
	h.metrics.ConnectionOpened()
	defer h.metrics.ConnectionClosed()

	state := stateUnclassified
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			h.disconnect(conn)
			return
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			h.replyError(conn, "invalid PDU")
			h.disconnect(conn)
			return
		}

		switch state {
		case stateUnclassified:
			switch msg.Type() {
			case protocol.TypeNotify:
				h.handleNotify(conn, msg)
				h.disconnect(conn)
				return
			case protocol.TypeSubscribe:
				h.subscribe(conn)
				state = statePersistent
			case protocol.TypeGoodbye:
				h.disconnect(conn)
				return
			default:
				h.replyError(conn, "unexpected message type "+msg.RawType())
				h.disconnect(conn)
				return
			}
		case statePersistent:
			switch msg.Type() {
			case protocol.TypeGoodbye:
				h.replyGoodbye(conn)
				h.disconnect(conn)
				return
			default:
				// PERSISTENT --any other→ no-op (ignored).
			}
		}
	}
}

func (h *Hub) subscribe(conn *transport.Conn) {
	h.mu.Lock()
	h.subscribers[conn.ID()] = &subscriber{conn: conn, version: protocol.CurrentVersion}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.SubscriberAdded()
	h.metrics.SubscriberCount(count)

	if err := conn.WriteFrame(mustEncode(protocol.NewSubscribed())); err != nil {
		h.logger.Warn("write subscribed reply failed", slog.Uint64("conn", conn.ID()), slog.String("error", err.Error()))
	}
}

// handleNotify implements spec §4.3's notify handling: assign an id,
// rewrite app_name, fan out, and reply to the submitter.
func (h *Hub) handleNotify(conn *transport.Conn, msg *protocol.Message) {
	h.metrics.NotifySubmitted()

	args, ok := msg.Notify()
	if !ok {
		h.replyError(conn, "expected notify arguments")
		return
	}

	id := args.ID
	if id == nil {
		fresh := uuid.NewString()
		id = &fresh
	}

	origin := h.resolveOrigin(conn.RemoteAddr())
	appName := "[" + origin + "]" + args.AppName

	opts := []protocol.NotifyOption{protocol.WithID(*id)}
	if args.Urgency != protocol.UrgencyLow {
		opts = append(opts, protocol.WithUrgency(args.Urgency))
	}
	if args.Category != nil {
		opts = append(opts, protocol.WithCategory(*args.Category))
	}
	rewritten := protocol.NewNotify(appName, args.Summary, args.Body, opts...)

	if err := h.fanout(rewritten); err != nil {
		h.replyError(conn, err.Error())
		return
	}

	if err := conn.WriteFrame(mustEncode(protocol.NewAccepted(*id))); err != nil {
		h.logger.Warn("write accepted reply failed", slog.Uint64("conn", conn.ID()), slog.String("error", err.Error()))
	}
}

// fanout delivers msg to every current subscriber. Per spec §4.3/§5, it
// holds the registry lock only long enough to take a snapshot, encodes
// msg once per distinct protocol version present among subscribers, and
// swallows per-subscriber write failures: a failed write does not
// unsubscribe the peer, and does not interrupt delivery to the rest.
// It returns a non-nil error only if msg itself could not be
// constructed for delivery at all, which does not occur for a
// freshly-rewritten hub-owned message under the baseline codec.
func (h *Hub) fanout(msg versionedMessage) error {
	h.mu.Lock()
	snapshot := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.mu.Unlock()

	frameCache := make(map[int][]byte, 1)
	for _, sub := range snapshot {
		frame, ok := frameCache[sub.version]
		if !ok {
			encoded, err := msg.EncodeForVersion(sub.version)
			if err != nil {
				// This subscriber's negotiated version cannot carry the
				// message; skip it without unsubscribing (spec §8
				// scenario 3).
				h.metrics.NotifyFanoutFailed()
				continue
			}
			frame = encoded
			frameCache[sub.version] = frame
		}
		if err := sub.conn.WriteFrame(frame); err != nil {
			// Per-subscriber write errors are swallowed; the transport's
			// closed callback (observed via the next ReadFrame error in
			// that connection's own handle loop) unsubscribes it.
			h.metrics.NotifyFanoutFailed()
		}
	}
	return nil
}

// disconnect removes conn's subscription, if any, attempts a
// best-effort goodbye, and closes the connection. Safe to call more
// than once for the same connection.
func (h *Hub) disconnect(conn *transport.Conn) {
	h.mu.Lock()
	_, had := h.subscribers[conn.ID()]
	delete(h.subscribers, conn.ID())
	count := len(h.subscribers)
	h.mu.Unlock()

	if had {
		h.metrics.SubscriberRemoved()
		h.metrics.SubscriberCount(count)
	}

	conn.Close()
}

func (h *Hub) replyError(conn *transport.Conn, reason string) {
	_ = conn.WriteFrame(mustEncode(protocol.NewError(reason)))
}

func (h *Hub) replyGoodbye(conn *transport.Conn) {
	_ = conn.WriteFrame(mustEncode(protocol.NewGoodbye()))
}

// resolveOrigin implements spec §4.3/§8's origin-host rewrite rule: the
// hub's own FQDN for a loopback peer, otherwise the reverse-resolved
// name of the peer, falling back to the literal address on lookup
// failure.
func (h *Hub) resolveOrigin(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}

	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return h.hostname
	}

	names, err := net.LookupAddr(host)
	if err != nil || len(names) == 0 {
		return host
	}
	return strings.TrimSuffix(names[0], ".")
}

// mustEncode encodes a freshly-constructed hub message at the current
// protocol version. It cannot fail: every New* constructor populates a
// message the codec can always encode at its own native version.
func mustEncode(msg *protocol.Message) []byte {
	b, err := msg.Encode(protocol.CurrentVersion)
	if err != nil {
		panic(errors.New("hub: encoding a freshly constructed message failed: " + err.Error()))
	}
	return b
}
