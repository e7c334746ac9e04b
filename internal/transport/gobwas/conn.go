// Package gobwas provides a relay dialer built on github.com/gobwas/ws.
package gobwas

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/art-chat/internal/chat"
)

// Conn wraps the raw net.Conn returned by ws.Dial.
// Writes, including pong and close replies sent while reading, are
// serialized by wmu so frames never interleave on the wire.
type Conn struct {
	conn      net.Conn
	reader    io.Reader
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps conn. br is the buffered reader returned by ws.Dial and may
// be nil when the server sent nothing after the handshake.
func NewConn(conn net.Conn, br *bufio.Reader) *Conn {
	c := &Conn{conn: conn, reader: conn}
	if br != nil {
		c.reader = br
	}
	return c
}

// Read implements chat.Conn.
func (c *Conn) Read(ctx context.Context) (chat.Frame, error) {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	control := wsutil.ControlFrameHandler(c.conn, ws.StateClientSide)
	handle := func(hdr ws.Header, r io.Reader) error {
		c.wmu.Lock()
		defer c.wmu.Unlock()
		return control(hdr, r)
	}

	rd := &wsutil.Reader{
		Source:         c.reader,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		MaxFrameSize:   chat.MaxMessageSize,
		OnIntermediate: handle,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return chat.Frame{}, err
		}
		if hdr.OpCode.IsControl() {
			if err := handle(hdr, rd); err != nil {
				return chat.Frame{}, err
			}
			continue
		}

		data, err := io.ReadAll(rd)
		if errors.Is(err, wsutil.ErrInvalidUTF8) {
			c.closeWith(ws.StatusInvalidFramePayloadData, "invalid UTF-8")
			return chat.Frame{}, chat.ErrInvalidUTF8
		}
		if err != nil {
			return chat.Frame{}, err
		}
		if hdr.OpCode == ws.OpBinary {
			return chat.Frame{Type: chat.FrameBinary, Data: data}, nil
		}
		return chat.Frame{Type: chat.FrameText, Data: data}, nil
	}
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
	return wsutil.WriteClientText(c.conn, []byte(msg))
}

// Close sends a close frame and closes the socket. Safe to call twice.
func (c *Conn) Close() error {
	return c.closeWith(ws.StatusNormalClosure, "")
}

func (c *Conn) closeWith(code ws.StatusCode, reason string) error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(code, reason))
		c.wmu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer dials servers with gobwas/ws.
type Dialer struct {
	dialer ws.Dialer
}

// NewDialer creates a Dialer using ws.DefaultDialer settings.
func NewDialer() *Dialer {
	return &Dialer{dialer: ws.DefaultDialer}
}

// Dial implements chat.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (chat.Conn, error) {
	conn, br, _, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, br), nil
}
