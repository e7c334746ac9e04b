package client

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by SendMessage when no connection has been
// established yet.
var ErrNotConnected = errors.New("not connected to server")

// SendError reports a transport failure while writing a frame.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return "send failed: " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ConnectError reports a failed handshake.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
