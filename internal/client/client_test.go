package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/client"
)

func run(ctx context.Context, c *client.Client) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	return nil
}

func TestNew_DefaultURL(t *testing.T) {
	c := client.New(client.Config{}, &fakeDialer{}, nil)
	if c.URL() != client.DefaultServerURL {
		t.Errorf("URL() = %q, want %q", c.URL(), client.DefaultServerURL)
	}
	if c.State() != client.Disconnected {
		t.Errorf("initial State() = %v, want disconnected", c.State())
	}
}

func TestClient_SendMessage_NotConnected(t *testing.T) {
	dialer := &fakeDialer{}
	c := client.New(client.Config{URL: "ws://example.test"}, dialer, nil)

	err := c.SendMessage(context.Background(), "hello")
	if !errors.Is(err, client.ErrNotConnected) {
		t.Fatalf("SendMessage() error = %v, want ErrNotConnected", err)
	}
	if dialer.Calls() != 0 {
		t.Errorf("dialer called %d times, want 0", dialer.Calls())
	}
}

func TestClient_Run_RelaysTextFramesInOrder(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	c := client.New(client.Config{URL: "ws://example.test"}, &fakeDialer{results: []dialResult{{conn: conn}}}, rec)

	msgs := []string{"one", "two", "", "four ✓"}
	for _, m := range msgs {
		conn.text(m)
	}
	close(conn.readCh)

	done := run(context.Background(), c)

	if ev := rec.next(t); ev != chat.ConnectedEvent() {
		t.Fatalf("first event = %+v, want connected", ev)
	}
	for _, want := range msgs {
		ev := rec.next(t)
		if ev.Name != chat.EventChatMessage || ev.Payload != want {
			t.Errorf("event = %+v, want chat-message %q", ev, want)
		}
	}

	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	rec.none(t, 50*time.Millisecond)
}

func TestClient_Run_IgnoresBinaryFrames(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	c := client.New(client.Config{}, &fakeDialer{results: []dialResult{{conn: conn}}}, rec)

	conn.readCh <- chat.Frame{Type: chat.FrameBinary, Data: []byte{0x00, 0x01}}
	conn.text("after")
	conn.readCh <- chat.Frame{Type: chat.FrameBinary, Data: []byte("looks like text")}
	close(conn.readCh)

	done := run(context.Background(), c)

	rec.next(t)
	if ev := rec.next(t); ev.Payload != "after" {
		t.Errorf("event = %+v, want payload %q", ev, "after")
	}
	waitRun(t, done)
	rec.none(t, 50*time.Millisecond)
}

func TestClient_SendMessage_Connected(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	c := client.New(client.Config{}, &fakeDialer{results: []dialResult{{conn: conn}}}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := run(ctx, c)
	rec.next(t)

	if !c.IsConnected() {
		t.Error("expected IsConnected() to be true after connected event")
	}

	for _, msg := range []string{"hello", "héllo wörld", ""} {
		if err := c.SendMessage(context.Background(), msg); err != nil {
			t.Fatalf("SendMessage(%q) error = %v", msg, err)
		}
	}

	got := conn.Written()
	want := []string{"hello", "héllo wörld", ""}
	if len(got) != len(want) {
		t.Fatalf("written = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("written[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	cancel()
	waitRun(t, done)
}

func TestClient_SendMessage_TransportFailure(t *testing.T) {
	transportErr := errors.New("broken pipe")
	conn := newFakeConn()
	conn.writeErr = transportErr
	rec := newRecorder()
	c := client.New(client.Config{}, &fakeDialer{results: []dialResult{{conn: conn}}}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := run(ctx, c)
	rec.next(t)

	err := c.SendMessage(context.Background(), "hi")
	var sendErr *client.SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("SendMessage() error = %v, want *SendError", err)
	}
	if !errors.Is(err, transportErr) {
		t.Errorf("expected error to wrap transport error, got %v", err)
	}
	if err.Error() != "send failed: broken pipe" {
		t.Errorf("Error() = %q", err.Error())
	}

	// The writer stays in place: the next send reaches the transport again.
	conn.mu.Lock()
	conn.writeErr = nil
	conn.mu.Unlock()
	if err := c.SendMessage(context.Background(), "retry"); err != nil {
		t.Errorf("SendMessage() after failure error = %v", err)
	}

	cancel()
	waitRun(t, done)
}

func TestClient_Run_ConnectFailureIsTerminal(t *testing.T) {
	dialErr := errors.New("connection refused")
	dialer := &fakeDialer{results: []dialResult{{err: dialErr}}}
	rec := newRecorder()
	c := client.New(client.Config{URL: "ws://example.test"}, dialer, rec)

	err := waitRun(t, run(context.Background(), c))

	var connErr *client.ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("Run() error = %v, want *ConnectError", err)
	}
	if connErr.URL != "ws://example.test" {
		t.Errorf("ConnectError.URL = %q", connErr.URL)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("expected error to wrap dial error")
	}
	if dialer.Calls() != 1 {
		t.Errorf("dial attempts = %d, want 1", dialer.Calls())
	}
	if c.State() != client.Failed {
		t.Errorf("State() = %v, want error", c.State())
	}
	rec.none(t, 50*time.Millisecond)

	if err := c.SendMessage(context.Background(), "hi"); !errors.Is(err, client.ErrNotConnected) {
		t.Errorf("SendMessage() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_Run_StreamEndLeavesDeadWriter(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	c := client.New(client.Config{}, &fakeDialer{results: []dialResult{{conn: conn}}}, rec)

	conn.text("hello")
	close(conn.readCh)

	if err := waitRun(t, run(context.Background(), c)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.State() != client.Disconnected {
		t.Errorf("State() = %v, want disconnected", c.State())
	}

	err := c.SendMessage(context.Background(), "hi")
	var sendErr *client.SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("SendMessage() error = %v, want *SendError from the dead writer", err)
	}
	if !errors.Is(err, errClosed) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestClient_Run_Cancel(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	c := client.New(client.Config{}, &fakeDialer{results: []dialResult{{conn: conn}}}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, c)
	rec.next(t)

	cancel()

	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if !conn.IsClosed() {
		t.Error("expected connection to be closed on cancel")
	}
	if c.State() != client.Disconnected {
		t.Errorf("State() = %v, want disconnected", c.State())
	}
}

func TestClient_Run_CancelDuringDial(t *testing.T) {
	dialer := chat.DialerFunc(func(ctx context.Context, url string) (chat.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := client.New(client.Config{}, dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, c)
	time.Sleep(20 * time.Millisecond)
	if c.State() != client.Connecting {
		t.Errorf("State() = %v, want connecting", c.State())
	}
	cancel()

	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil on cancel", err)
	}
}

func TestClient_Run_DialTimeout(t *testing.T) {
	dialer := chat.DialerFunc(func(ctx context.Context, url string) (chat.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := client.New(client.Config{DialTimeout: 20 * time.Millisecond}, dialer, nil)

	err := waitRun(t, run(context.Background(), c))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}
}

func TestClient_Run_ReconnectAfterDialFailure(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{results: []dialResult{
		{err: errors.New("refused")},
		{err: errors.New("refused")},
		{conn: conn},
	}}
	rec := newRecorder()
	c := client.New(client.Config{
		Reconnect:      true,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	}, dialer, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, c)

	if ev := rec.next(t); ev != chat.ConnectedEvent() {
		t.Fatalf("event = %+v, want connected", ev)
	}
	if dialer.Calls() != 3 {
		t.Errorf("dial attempts = %d, want 3", dialer.Calls())
	}

	cancel()
	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestClient_Run_ReconnectReplacesWriter(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	close(first.readCh)
	rec := newRecorder()
	c := client.New(client.Config{
		Reconnect:      true,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, &fakeDialer{results: []dialResult{{conn: first}, {conn: second}}}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, c)

	rec.next(t)
	rec.next(t)

	if err := c.SendMessage(context.Background(), "z"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got := second.Written(); len(got) != 1 || got[0] != "z" {
		t.Errorf("second conn written = %q, want [z]", got)
	}
	if !first.IsClosed() {
		t.Error("expected first connection to be closed")
	}

	cancel()
	waitRun(t, done)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state client.State
		want  string
	}{
		{client.Disconnected, "disconnected"},
		{client.Connecting, "connecting"},
		{client.Connected, "connected"},
		{client.Closing, "closing"},
		{client.Failed, "error"},
		{client.State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
