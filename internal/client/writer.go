package client

import (
	"context"
	"sync"

	"github.com/omochice/art-chat/internal/chat"
)

// Sender is the only way other components reach the connection.
type Sender interface {
	TrySend(ctx context.Context, msg string) error
}

// writer holds the writable half of the current connection.
// It starts empty and is filled after a handshake. The relay never clears
// it: after the connection dies the stale handle stays and sends fail at
// the transport.
type writer struct {
	mu   sync.Mutex
	conn chat.Conn
}

// store installs conn and returns the handle it replaced, if any.
func (w *writer) store(conn chat.Conn) chat.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.conn
	w.conn = conn
	return prev
}

// TrySend writes msg as one text frame while holding the lock.
func (w *writer) TrySend(ctx context.Context, msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return ErrNotConnected
	}
	if err := w.conn.WriteText(ctx, msg); err != nil {
		return &SendError{Err: err}
	}
	return nil
}
