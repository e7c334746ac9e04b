// Package client implements the relay: one outbound WebSocket connection
// whose inbound text frames become host events and whose writer serves
// outbound sends.
package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/art-chat/internal/chat"
)

// DefaultServerURL is the chat server the client connects to unless
// configured otherwise.
const DefaultServerURL = "ws://100.48.213.255:8080"

// Config controls the connection lifecycle. Zero durations mean no timeout.
type Config struct {
	URL            string
	DialTimeout    time.Duration
	SendTimeout    time.Duration
	Reconnect      bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client relays between one WebSocket connection and the host interface.
type Client struct {
	cfg     Config
	dialer  chat.Dialer
	emitter chat.Emitter
	writer  writer
	state   atomic.Int32
	logger  zerolog.Logger
}

// New creates a Client. A nil emitter discards events.
func New(cfg Config, dialer chat.Dialer, emitter chat.Emitter) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultServerURL
	}
	if emitter == nil {
		emitter = chat.EmitterFunc(func(chat.Event) {})
	}
	return &Client{
		cfg:     cfg,
		dialer:  dialer,
		emitter: emitter,
		logger:  log.With().Str("component", "relay").Str("url", cfg.URL).Logger(),
	}
}

// URL returns the server address.
func (c *Client) URL() string {
	return c.cfg.URL
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// IsConnected returns whether the read loop is running on a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

func (c *Client) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.logger.Debug().Stringer("from", old).Stringer("to", s).Msg("state change")
	}
}

// Run connects and then relays inbound text frames until the connection
// ends or ctx is cancelled. Without reconnect a failed handshake is final:
// the state stays Failed and the *ConnectError is returned. A connection
// that ends after a successful handshake returns nil.
func (c *Client) Run(ctx context.Context) error {
	b := newBackoff(c.cfg.InitialBackoff, c.cfg.MaxBackoff)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(Disconnected)
				return nil
			}
			c.setState(Failed)
			if !c.cfg.Reconnect {
				return err
			}
			if !c.wait(ctx, b.Next()) {
				c.setState(Disconnected)
				return nil
			}
			continue
		}
		b.Reset()

		c.pump(ctx, conn)

		if ctx.Err() != nil {
			c.setState(Closing)
			conn.Close()
			c.setState(Disconnected)
			c.logger.Info().Msg("relay stopped")
			return nil
		}

		conn.Close()
		c.setState(Disconnected)
		c.logger.Info().Msg("connection closed")
		if !c.cfg.Reconnect {
			return nil
		}
		if !c.wait(ctx, b.Next()) {
			return nil
		}
	}
}

// connect performs the handshake, installs the writer and announces the
// connection to the host.
func (c *Client) connect(ctx context.Context) (chat.Conn, error) {
	c.setState(Connecting)
	c.logger.Info().Msg("connecting to server")

	dialCtx := ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	conn, err := c.dialer.Dial(dialCtx, c.cfg.URL)
	if err != nil {
		err = &ConnectError{URL: c.cfg.URL, Err: err}
		c.logger.Error().Err(err).Msg("connection failed")
		return nil, err
	}

	// The writer is installed before the event so a host reacting to
	// "connected" can send immediately.
	if prev := c.writer.store(conn); prev != nil {
		prev.Close()
	}
	c.setState(Connected)
	c.logger.Info().Str("remote", conn.RemoteAddr()).Msg("connected to server")
	c.emitter.Emit(chat.ConnectedEvent())

	return conn, nil
}

// pump republishes text frames in receive order until Read fails.
func (c *Client) pump(ctx context.Context, conn chat.Conn) {
	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Debug().Err(err).Msg("read loop ended")
			}
			return
		}
		if !frame.Text() {
			c.logger.Debug().Stringer("type", frame.Type).Msg("ignoring non-text frame")
			continue
		}
		text := string(frame.Data)
		c.logger.Debug().Int("bytes", len(text)).Msg("message received")
		c.emitter.Emit(chat.MessageEvent(text))
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	c.logger.Info().Dur("backoff", d).Msg("reconnecting")
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// TrySend implements Sender.
func (c *Client) TrySend(ctx context.Context, msg string) error {
	return c.SendMessage(ctx, msg)
}

// SendMessage writes msg as one text frame. It returns ErrNotConnected
// before the first handshake and *SendError when the transport fails.
func (c *Client) SendMessage(ctx context.Context, msg string) error {
	if c.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SendTimeout)
		defer cancel()
	}

	if err := c.writer.TrySend(ctx, msg); err != nil {
		c.logger.Warn().Err(err).Msg("failed to send message")
		return err
	}
	c.logger.Debug().Str("msg", msg).Msg("message sent")
	return nil
}
