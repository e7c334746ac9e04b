// Package ws provides the github.com/coder/websocket transport: the default
// relay dialer and the development server.
package ws

import (
	"context"
	"net/url"
	"unicode/utf8"

	"github.com/coder/websocket"

	"github.com/omochice/art-chat/internal/chat"
)

// Conn adapts coder/websocket to chat.Conn interface.
type Conn struct {
	conn       *websocket.Conn
	remoteAddr string
}

// NewConnWithAddr wraps a websocket.Conn with the specified remote address.
func NewConnWithAddr(conn *websocket.Conn, addr string) *Conn {
	return &Conn{conn: conn, remoteAddr: addr}
}

// Read implements chat.Conn.
// The library closes the connection when ctx is cancelled. A text message
// that is not valid UTF-8 closes the connection with 1007.
func (c *Conn) Read(ctx context.Context) (chat.Frame, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return chat.Frame{}, err
	}
	if typ == websocket.MessageBinary {
		return chat.Frame{Type: chat.FrameBinary, Data: data}, nil
	}
	if !utf8.Valid(data) {
		c.conn.Close(websocket.StatusInvalidFramePayloadData, "invalid UTF-8")
		return chat.Frame{}, chat.ErrInvalidUTF8
	}
	return chat.Frame{Type: chat.FrameText, Data: data}, nil
}

// WriteText implements chat.Conn.
func (c *Conn) WriteText(ctx context.Context, msg string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// Dialer dials servers with coder/websocket.
type Dialer struct {
	// ReadLimit is the largest inbound message in bytes. Negative disables
	// the limit; zero keeps the library's 32 KiB default.
	ReadLimit int64
}

// NewDialer creates a Dialer accepting messages up to chat.MaxMessageSize.
func NewDialer() *Dialer {
	return &Dialer{ReadLimit: chat.MaxMessageSize}
}

// Dial implements chat.Dialer.
func (d *Dialer) Dial(ctx context.Context, rawURL string) (chat.Conn, error) {
	conn, _, err := websocket.Dial(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if d.ReadLimit != 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return NewConnWithAddr(conn, hostOf(rawURL)), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
