// Package realtime is the client for the hosted realtime speech model: it
// dials the session, encodes commands and decodes server events.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"ai-interview-relay-service/internal/config"
)

// ErrNotConnected is returned when sending on a closed client.
var ErrNotConnected = errors.New("realtime session not connected")

// Conn is the message-oriented connection the client runs on.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client owns one realtime session connection. Send is safe for concurrent
// use; Next must only be called from a single goroutine.
type Client struct {
	conn    Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient wraps an established connection.
func NewClient(conn Conn) *Client {
	return &Client{conn: conn}
}

// ConnectionURL returns the dial URL and headers for the configured provider.
// Azure endpoints are used verbatim with an api-key header; otherwise the
// model is appended as a query parameter and a bearer token is sent.
func ConnectionURL(cfg config.RealtimeConfig) (string, http.Header) {
	header := http.Header{}

	if cfg.IsAzure() {
		u := cfg.Endpoint
		if strings.HasPrefix(u, "https://") {
			u = "wss://" + strings.TrimPrefix(u, "https://")
		}
		header.Set("api-key", cfg.APIKey)
		return u, header
	}

	sep := "?"
	if strings.Contains(cfg.Endpoint, "?") {
		sep = "&"
	}
	u := cfg.Endpoint + sep + "model=" + url.QueryEscape(cfg.Model)
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")
	return u, header
}

// Dial opens a realtime session.
func Dial(ctx context.Context, cfg config.RealtimeConfig) (*Client, error) {
	u, header := ConnectionURL(cfg)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to realtime API: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to realtime API: %w", err)
	}
	return NewClient(conn), nil
}

// Send encodes cmd as JSON and writes it as one text message.
func (c *Client) Send(cmd any) error {
	if c.closed.Load() {
		return ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode realtime command: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ConfigureSession sends session.update.
func (c *Client) ConfigureSession(session SessionConfig) error {
	return c.Send(SessionUpdate{Type: TypeSessionUpdate, Session: session})
}

// CreateResponse sends response.create with the given modalities and instructions.
func (c *Client) CreateResponse(modalities []string, instructions string) error {
	return c.Send(ResponseCreate{
		Type: TypeResponseCreate,
		Response: ResponseParams{
			Modalities:   modalities,
			Instructions: instructions,
		},
	})
}

// AppendAudio forwards a base64 audio payload untouched.
func (c *Client) AppendAudio(payload string) error {
	return c.Send(InputAudioAppend{Type: TypeInputAudioAppend, Audio: payload})
}

// CommitAudio flushes the model's input buffer.
func (c *Client) CommitAudio() error {
	return c.Send(InputAudioCommit{Type: TypeInputAudioCommit})
}

// Next blocks for the next server event. Decode failures are returned
// wrapping ErrDecode and leave the connection usable.
func (c *Client) Next() (Event, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return Decode(data)
	}
}

// Close closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}
