package client

// State is the lifecycle of the relay connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
	// Failed follows a handshake that did not succeed.
	Failed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}
