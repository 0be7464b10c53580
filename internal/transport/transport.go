// Package transport owns the TCP connection lifecycle shared by every
// role: listening and accepting for the hub, dialing for the notifier
// and submitter, and the COBS frame reader/writer attached to every
// connection before its first frame. It knows nothing about the
// protocol carried over a connection; callers supply a Handler that
// receives a live, framed Conn.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/heyu-project/heyud/internal/framing"
	"github.com/heyu-project/heyud/internal/metrics"
)

// Handler is invoked once per accepted or dialed connection and owns
// that connection's subsequent frame traffic until it returns or the
// connection is closed out from under it.
type Handler func(ctx context.Context, conn *Conn)

// Conn is a single framed, optionally TLS-wrapped TCP connection,
// tagged with a process-local id minted at accept/dial time.
//
// Subscriber identity is keyed on this id rather than on any
// language-level object identity, so it survives anything the
// connection's underlying representation might do.
type Conn struct {
	id     uint64
	raw    net.Conn
	reader *framing.Reader
	writer *framing.Writer

	closeOnce sync.Once
}

// NewConn wraps an already-established net.Conn as a framed, identified
// Conn. Most callers obtain a Conn through Manager.Listen/Start or
// Manager.Dial; NewConn exists for tests and for roles that manage
// their own socket acceptance.
func NewConn(id uint64, raw net.Conn) *Conn {
	return &Conn{
		id:     id,
		raw:    raw,
		reader: framing.NewReader(raw),
		writer: framing.NewWriter(raw),
	}
}

// ID returns the connection's process-local identity.
func (c *Conn) ID() uint64 { return c.id }

// RemoteAddr returns the address of the connected peer.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// ReadFrame blocks for the next COBS frame and returns its decoded
// payload.
func (c *Conn) ReadFrame() ([]byte, error) { return c.reader.ReadFrame() }

// WriteFrame encodes and writes one COBS frame.
func (c *Conn) WriteFrame(payload []byte) error { return c.writer.WriteFrame(payload) }

// Close closes the underlying socket. Safe to call more than once and
// from multiple goroutines.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.raw.Close() })
	return err
}

// Manager owns a set of listen endpoints (for the hub) and, via Dial,
// outbound connections (for the notifier and submitter). It exposes the
// three lifecycle verbs from spec §4.2: start, stop, shutdown.
type Manager struct {
	logger    *slog.Logger
	tlsConfig *tls.Config
	handler   Handler
	nextID    atomic.Uint64
	limiter   *connLimiter
	metrics   metrics.Collector

	mu        sync.Mutex
	listeners []net.Listener
	conns     map[uint64]*Conn
	wg        sync.WaitGroup
	stopping  atomic.Bool
}

// NewManager creates a Manager. tlsConfig may be nil, in which case
// every connection it produces is a bare TCP socket (insecure mode,
// local testing only per spec §4.2).
func NewManager(logger *slog.Logger, tlsConfig *tls.Config) *Manager {
	return &Manager{
		logger:    logger,
		tlsConfig: tlsConfig,
		conns:     make(map[uint64]*Conn),
	}
}

// SetHandler sets the per-connection handler. Must be called before
// Start.
func (m *Manager) SetHandler(h Handler) { m.handler = h }

// SetMetrics attaches a Collector so the Manager can report TLS
// handshakes alongside the role-level metrics the hub/notifier/
// submitter already record themselves. Optional: a Manager with no
// Collector simply skips this accounting.
func (m *Manager) SetMetrics(c metrics.Collector) { m.metrics = c }

// SetMaxConnections caps the number of concurrently accepted inbound
// connections. A connection accepted over the cap is closed immediately
// without reaching the handler. Outbound Dial connections are never
// capped. max <= 0 disables the cap.
func (m *Manager) SetMaxConnections(max int) {
	if max <= 0 {
		m.limiter = nil
		return
	}
	m.limiter = newConnLimiter(max)
}

// connLimiter enforces a maximum concurrent connection count via a
// lock-free compare-and-swap counter.
type connLimiter struct {
	max     int64
	current atomic.Int64
}

func newConnLimiter(max int) *connLimiter {
	return &connLimiter{max: int64(max)}
}

func (l *connLimiter) tryAcquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *connLimiter) release() {
	l.current.Add(-1)
}

// Listen binds network/addr (as produced by config.Endpoint) and
// records the listener for Start to accept on. Binding to 0.0.0.0 and
// to :: are separate Manager.Listen calls against separate address
// families, per spec §4.2.
func (m *Manager) Listen(network, addr string) error {
	var ln net.Listener
	var err error
	if m.tlsConfig != nil {
		ln, err = tls.Listen(network, addr, m.tlsConfig)
	} else {
		ln, err = net.Listen(network, addr)
	}
	if err != nil {
		return fmt.Errorf("transport: listen %s %s: %w", network, addr, err)
	}

	m.mu.Lock()
	m.listeners = append(m.listeners, ln)
	m.mu.Unlock()
	return nil
}

// Start launches one accept loop per registered listener. It does not
// block; each loop runs in its own goroutine until Stop or Shutdown
// closes its listener.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.handler == nil {
		m.mu.Unlock()
		return fmt.Errorf("transport: Start called with no handler set")
	}
	listeners := append([]net.Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, ln := range listeners {
		m.wg.Add(1)
		go func(ln net.Listener) {
			defer m.wg.Done()
			m.acceptLoop(ln)
		}(ln)
	}
	return nil
}

func (m *Manager) acceptLoop(ln net.Listener) {
	for {
		raw, err := ln.Accept()
		if err != nil {
			if m.stopping.Load() {
				return
			}
			if m.logger != nil {
				m.logger.Error("accept error", slog.String("addr", ln.Addr().String()), slog.String("error", err.Error()))
			}
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.serve(raw)
		}()
	}
}

func (m *Manager) serve(raw net.Conn) {
	if m.limiter != nil && !m.limiter.tryAcquire() {
		raw.Close()
		if m.logger != nil {
			m.logger.Warn("rejecting connection over max_connections", slog.String("addr", raw.RemoteAddr().String()))
		}
		return
	}

	id := m.nextID.Add(1)
	conn := NewConn(id, raw)
	if m.tlsConfig != nil && m.metrics != nil {
		m.metrics.TLSConnectionEstablished()
	}

	m.mu.Lock()
	m.conns[id] = conn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.conns, id)
		m.mu.Unlock()
		conn.Close()
		if m.limiter != nil {
			m.limiter.release()
		}
	}()

	m.handler(context.Background(), conn)
}

// Dial opens an outbound connection to network/addr, wraps it in TLS
// when the Manager was constructed with a client *tls.Config, assigns
// it a connection id, and hands it to the Manager's handler
// synchronously on the calling goroutine. Dial blocks for the
// connection's full lifetime — callers that need concurrency run it in
// their own goroutine.
func (m *Manager) Dial(ctx context.Context, network, addr string) error {
	if m.handler == nil {
		return fmt.Errorf("transport: Dial called with no handler set")
	}

	dialer := &net.Dialer{}
	var raw net.Conn
	var err error
	if m.tlsConfig != nil {
		raw, err = (&tls.Dialer{NetDialer: dialer, Config: m.tlsConfig}).DialContext(ctx, network, addr)
	} else {
		raw, err = dialer.DialContext(ctx, network, addr)
	}
	if err != nil {
		return fmt.Errorf("transport: dial %s %s: %w", network, addr, err)
	}

	id := m.nextID.Add(1)
	conn := NewConn(id, raw)
	if m.tlsConfig != nil && m.metrics != nil {
		m.metrics.TLSConnectionEstablished()
	}

	m.mu.Lock()
	m.conns[id] = conn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.conns, id)
		m.mu.Unlock()
		conn.Close()
	}()

	m.handler(ctx, conn)
	return nil
}

// Stop gracefully ceases accepting new connections on every listener
// but leaves existing connections to close at their own pace. Calling
// Stop more than once is a no-op after the first.
func (m *Manager) Stop() error {
	if !m.stopping.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	var firstErr error
	for _, ln := range listeners {
		if err := ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown stops accepting new connections (as Stop does, idempotently)
// and then abruptly drops every currently open connection without
// flushing. Shutdown after Stop, or Shutdown during a pending Stop,
// always wins — it is the stronger operation.
func (m *Manager) Shutdown() error {
	err := m.Stop()

	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return err
}

// Wait blocks until every accept loop and in-flight handler invocation
// started by Start has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
