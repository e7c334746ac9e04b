package chat_test

import (
	"context"
	"io"
	"sync"

	"github.com/omochice/art-chat/internal/chat"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan chat.Frame
	readErr    error
	writtenMu  sync.Mutex
	written    []string
	writeErr   error
	closed     bool
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan chat.Frame, 10),
		remoteAddr: addr,
	}
}

func (m *mockConn) Read(ctx context.Context) (chat.Frame, error) {
	if m.readErr != nil {
		return chat.Frame{}, m.readErr
	}
	select {
	case <-ctx.Done():
		return chat.Frame{}, ctx.Err()
	case f, ok := <-m.readCh:
		if !ok {
			return chat.Frame{}, io.EOF
		}
		return f, nil
	}
}

func (m *mockConn) WriteText(ctx context.Context, msg string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.written = append(m.written, msg)
	return nil
}

func (m *mockConn) Close() error {
	m.closed = true
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
