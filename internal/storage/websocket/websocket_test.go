package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/storage"
	"github.com/rcsfx/extension/pkg/core"
	"github.com/rcsfx/extension/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// testServer upgrades to WebSocket, records envelopes and acks session
// boundaries unless ack is false.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession) {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) getSecret() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secret
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	s := &core.Session{Name: "dock", PartName: "RCSBlock"}
	require.NoError(t, b.StartSession(s))
	assert.Equal(t, uint(1), s.ID)

	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[1].Type)
	assert.Equal(t, "test", ml.getSecret())

	var start streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "dock", start.Session.Name)
}

func TestTicksAndEventsAreStreamed(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{Name: "s"}))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 1, PartID: "rcs1", Success: true}))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 2, PartID: "rcs1"}))
	require.NoError(t, b.RecordEffectEvent(&core.EffectEvent{Tick: 1, PartID: "rcs1", Kind: core.EffectEngage}))
	require.NoError(t, b.EndSession())

	// end_session is queued after the ticks on the same writer
	assert.Equal(t, 2, ml.count(streaming.TypeTick))
	assert.Equal(t, 1, ml.count(streaming.TypeEffectEvent))

	var end streaming.EndSessionPayload
	msgs := ml.all()
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &end))
	assert.Equal(t, uint(1), end.SessionID)
	assert.Equal(t, uint(2), end.Ticks)

	var tick core.TickRecord
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &tick))
	assert.Equal(t, uint(1), tick.SessionID)
}

func TestEndSessionWithoutStartIsNoop(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.EndSession())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ml.all())
}

func TestStartSessionTimesOutWithoutAck(t *testing.T) {
	srv, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), AckTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.StartSession(&core.Session{Name: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for ack")
}

func TestInitFailsWithoutServer(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/api"}, nil)
	assert.Error(t, b.Init())
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, _ := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestHTTPToWS(t *testing.T) {
	assert.Equal(t, "wss://example.com/api", HTTPToWS("https://example.com/api/"))
	assert.Equal(t, "ws://localhost:5000", HTTPToWS("http://localhost:5000"))
	assert.Equal(t, "ws://already", HTTPToWS("ws://already"))

	cfg := ConfigFrom(config.WebSocketConfig{URL: "http://host/stream", Secret: "k"})
	assert.Equal(t, "ws://host/stream", cfg.URL)
	assert.Equal(t, "k", cfg.Secret)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second))
}
