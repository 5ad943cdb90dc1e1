// Package websocket streams session telemetry to a live server.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/pkg/core"
	"github.com/rcsfx/extension/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// ConfigFrom maps the websocket storage section, converting http(s) URLs.
func ConfigFrom(c config.WebSocketConfig) Config {
	return Config{URL: HTTPToWS(c.URL), Secret: c.Secret}
}

// HTTPToWS converts an HTTP(S) URL to a WebSocket URL.
func HTTPToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// Backend implements storage.Backend by streaming envelopes. Ticks and
// effect events are fire-and-forget; session boundaries wait for an ack.
type Backend struct {
	conn   *connection
	cfg    Config
	nextID atomic.Uint64
	ticks  atomic.Uint64
	active atomic.Uint64 // current session ID, 0 when none
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession assigns the session ID, sends start_session and waits for
// the ack. The message is kept for replay after a reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	s.ID = uint(b.nextID.Add(1))
	b.active.Store(uint64(s.ID))
	b.ticks.Store(0)

	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}
	b.conn.setSessionMsg(data)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, b.cfg.AckTimeout)
}

// EndSession sends end_session and waits for the ack.
func (b *Backend) EndSession() error {
	id := b.active.Swap(0)
	if id == 0 {
		return nil
	}
	b.conn.setSessionMsg(nil)

	data, err := marshalEnvelope(streaming.TypeEndSession, streaming.EndSessionPayload{
		SessionID: uint(id),
		Ticks:     uint(b.ticks.Load()),
	})
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, streaming.TypeEndSession, b.cfg.AckTimeout)
}

// RecordTick streams one tick record.
func (b *Backend) RecordTick(r *core.TickRecord) error {
	b.ticks.Add(1)
	rec := *r
	rec.SessionID = uint(b.active.Load())
	return b.sendEnvelope(streaming.TypeTick, &rec)
}

// RecordEffectEvent streams one effect event.
func (b *Backend) RecordEffectEvent(e *core.EffectEvent) error {
	ev := *e
	ev.SessionID = uint(b.active.Load())
	return b.sendEnvelope(streaming.TypeEffectEvent, &ev)
}
