// Package gorilla provides a relay dialer built on github.com/gorilla/websocket.
package gorilla

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/omochice/art-chat/internal/chat"
)

// Conn adapts *websocket.Conn to chat.Conn.
// gorilla allows one concurrent writer, so data writes are serialized by wmu.
type Conn struct {
	conn      *websocket.Conn
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps a websocket.Conn and caps inbound messages at
// chat.MaxMessageSize.
func NewConn(conn *websocket.Conn) *Conn {
	conn.SetReadLimit(chat.MaxMessageSize)
	return &Conn{conn: conn}
}

// Read implements chat.Conn.
// Pings are answered by the library's default handler inside ReadMessage.
func (c *Conn) Read(ctx context.Context) (chat.Frame, error) {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	typ, data, err := c.conn.ReadMessage()
	if err != nil {
		return chat.Frame{}, err
	}
	if typ == websocket.BinaryMessage {
		return chat.Frame{Type: chat.FrameBinary, Data: data}, nil
	}
	if !utf8.Valid(data) {
		c.closeWith(websocket.CloseInvalidFramePayloadData, "invalid UTF-8")
		return chat.Frame{}, chat.ErrInvalidUTF8
	}
	return chat.Frame{Type: chat.FrameText, Data: data}, nil
}

// WriteText implements chat.Conn.
func (c *Conn) WriteText(ctx context.Context, msg string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Close sends a close frame and closes the socket. Safe to call twice.
func (c *Conn) Close() error {
	return c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *Conn) closeWith(code int, text string) error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, text)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer dials servers with gorilla/websocket.
type Dialer struct {
	dialer *websocket.Dialer
}

// NewDialer creates a Dialer backed by websocket.DefaultDialer.
func NewDialer() *Dialer {
	return &Dialer{dialer: websocket.DefaultDialer}
}

// Dial implements chat.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (chat.Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(conn), nil
}
