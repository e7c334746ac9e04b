package chat

// Event names published to the host interface.
const (
	EventConnectionStatus = "connection-status"
	EventChatMessage      = "chat-message"
)

// StatusConnected is the payload of the connection-status event.
const StatusConnected = "connected"

// Event is a notification for the host interface.
type Event struct {
	Name    string
	Payload string
}

// ConnectedEvent returns the connection-status event emitted after a handshake.
func ConnectedEvent() Event {
	return Event{Name: EventConnectionStatus, Payload: StatusConnected}
}

// MessageEvent returns the chat-message event for an inbound text frame.
func MessageEvent(text string) Event {
	return Event{Name: EventChatMessage, Payload: text}
}

// Emitter receives events from the relay. Emit is called from the relay's
// read goroutine in receive order and must not block indefinitely.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ev Event) {
	f(ev)
}
