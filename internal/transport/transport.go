// Package transport selects the WebSocket library used by the relay.
package transport

import (
	"fmt"
	"strings"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/transport/gobwas"
	"github.com/omochice/art-chat/internal/transport/gorilla"
	"github.com/omochice/art-chat/internal/transport/ws"
)

// Transport names accepted by NewDialer.
const (
	Coder   = "coder"
	Gobwas  = "gobwas"
	Gorilla = "gorilla"
)

// Names lists the supported transports, default first.
func Names() []string {
	return []string{Coder, Gobwas, Gorilla}
}

// Valid reports whether name is a supported transport.
func Valid(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// NewDialer returns the dialer for name.
func NewDialer(name string) (chat.Dialer, error) {
	switch name {
	case Coder, "":
		return ws.NewDialer(), nil
	case Gobwas:
		return gobwas.NewDialer(), nil
	case Gorilla:
		return gorilla.NewDialer(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}
