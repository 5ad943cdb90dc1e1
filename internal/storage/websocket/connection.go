package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rcsfx/extension/pkg/streaming"
)

const (
	sendChSize   = 4096
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	dialTimeout  = 5 * time.Second
)

// connection owns one WebSocket. A single writeLoop serializes frames; a
// readLoop routes acks. Both restart after a reconnect.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}
	closed bool

	wsURL  string
	secret string

	// replayed after reconnect so the server can resume the session
	sessionMsg []byte

	dropped atomic.Uint64
	logger  *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.start(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	dialer := ws.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) start(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
}

func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := write(conn, data); err != nil {
				c.logger.Warn("WebSocket write failed", "error", err)
				go c.reconnect(conn)
				return
			}
		}
	}
}

func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("WebSocket read failed", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring server message", "raw", string(message))
			continue
		}

		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// nextBackoff doubles d up to maxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// reconnect replaces a failed conn. Both loops may report the same failure;
// only the first caller for a given conn proceeds.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt)
		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = nextBackoff(backoff)
			continue
		}

		c.mu.Lock()
		replay := c.sessionMsg
		c.mu.Unlock()

		if replay != nil {
			if err := write(conn, replay); err != nil {
				c.logger.Warn("Failed to replay start_session", "error", err)
				_ = conn.Close()
				backoff = nextBackoff(backoff)
				continue
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.start(conn)
		return
	}

	c.logger.Error("WebSocket reconnect gave up", "attempts", maxReconnect)
}

// send queues data for the write loop; it never blocks.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("WebSocket send queue full, dropping", "dropped", n)
		}
	}
}

// sendAndWait queues data and waits for an ack for the given type.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

func (c *connection) setSessionMsg(data []byte) {
	c.mu.Lock()
	c.sessionMsg = data
	c.mu.Unlock()
}

func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return conn.Close()
}
