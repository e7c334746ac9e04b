// Package chat provides the transport-agnostic types shared by the relay
// client, the host layer and the development server.
package chat

import (
	"context"
	"errors"
)

// MaxMessageSize is the largest inbound message transports accept, 64 MiB.
const MaxMessageSize = 64 << 20

// ErrInvalidUTF8 is returned by Read for a text frame that is not UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 in text frame")

// FrameType identifies the kind of data frame read from a connection.
type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
)

// String returns the string representation of FrameType
func (ft FrameType) String() string {
	switch ft {
	case FrameText:
		return "TEXT"
	case FrameBinary:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// Frame is a single data frame. Control frames never surface here; each
// transport answers pings and closes internally.
type Frame struct {
	Type FrameType
	Data []byte
}

// Text reports whether the frame carries UTF-8 text.
func (f Frame) Text() bool {
	return f.Type == FrameText
}

// Conn abstracts one WebSocket connection regardless of the library behind it.
// Read and WriteText may be called concurrently from different goroutines.
type Conn interface {
	// Read blocks until the next data frame arrives.
	// Cancelling ctx closes the connection and unblocks the call.
	Read(ctx context.Context) (Frame, error)

	// WriteText sends msg as a single text frame.
	WriteText(ctx context.Context, msg string) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer performs the WebSocket handshake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}
