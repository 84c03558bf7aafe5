package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

// Transport moves envelopes. Read is called from one goroutine; Write may
// be called from several.
type Transport interface {
	Read() (Envelope, error)
	Write(env Envelope) error
	Close() error
}

// FrameTransport speaks length-prefixed envelopes over a stream, usually
// a unix socket.
type FrameTransport struct {
	rw io.ReadWriteCloser
	mu sync.Mutex
}

func NewFrameTransport(rw io.ReadWriteCloser) *FrameTransport {
	return &FrameTransport{rw: rw}
}

func (t *FrameTransport) Read() (Envelope, error) { return ReadEnvelope(t.rw) }

func (t *FrameTransport) Write(env Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return WriteEnvelope(t.rw, env)
}

func (t *FrameTransport) Close() error { return t.rw.Close() }

// WSTransport carries one envelope per websocket text message.
type WSTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSTransport(conn *websocket.Conn) *WSTransport {
	conn.SetReadLimit(MaxFrame)
	return &WSTransport{conn: conn}
}

// DialWS connects to a host serving websocket.
func DialWS(ctx context.Context, url string) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWSTransport(conn), nil
}

func (t *WSTransport) Read() (Envelope, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		return Envelope{}, fmt.Errorf("read message: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

func (t *WSTransport) Write(env Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close sends a normal closure before dropping the connection.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.mu.Unlock()
	return t.conn.Close()
}
