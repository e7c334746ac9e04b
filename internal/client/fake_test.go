package client_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/omochice/art-chat/internal/chat"
)

var errClosed = errors.New("use of closed connection")

// fakeConn is a scripted chat.Conn. Frames pushed to readCh are returned by
// Read; closing readCh ends the stream with io.EOF.
type fakeConn struct {
	readCh   chan chat.Frame
	mu       sync.Mutex
	written  []string
	writeErr error
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{readCh: make(chan chat.Frame, 16)}
}

func (f *fakeConn) Read(ctx context.Context) (chat.Frame, error) {
	select {
	case <-ctx.Done():
		return chat.Frame{}, ctx.Err()
	case fr, ok := <-f.readCh:
		if !ok {
			return chat.Frame{}, io.EOF
		}
		return fr, nil
	}
}

func (f *fakeConn) WriteText(ctx context.Context, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errClosed
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) RemoteAddr() string {
	return "fake:0"
}

func (f *fakeConn) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) text(s string) {
	f.readCh <- chat.Frame{Type: chat.FrameText, Data: []byte(s)}
}

// fakeDialer hands out scripted results in order.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	calls   int
}

type dialResult struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (chat.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.results) == 0 {
		return nil, errors.New("connection refused")
	}
	r := d.results[0]
	d.results = d.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// recorder collects emitted events.
type recorder struct {
	events chan chat.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan chat.Event, 64)}
}

func (r *recorder) Emit(ev chat.Event) {
	r.events <- ev
}

func (r *recorder) next(t *testing.T) chat.Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return chat.Event{}
}

func (r *recorder) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(wait):
	}
}
