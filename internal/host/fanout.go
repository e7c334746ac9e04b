// Package host connects the relay to the user: a terminal console, an HTTP
// bridge for an embedded web view and a local transcript recorder.
package host

import (
	"context"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/client"
	"github.com/omochice/art-chat/internal/store"
)

// History is the part of the store the host reads and writes.
type History interface {
	AppendMessage(ctx context.Context, dir store.Direction, text string) error
	RecentMessages(ctx context.Context, limit int) ([]store.Message, error)
}

// Profiles is the part of the store holding the local profile.
type Profiles interface {
	LoadProfile(ctx context.Context) (store.Profile, error)
	SetNickname(ctx context.Context, nick string) (store.Profile, error)
}

// StatusFunc reports the relay's connection state.
type StatusFunc func() client.State

// Fanout forwards every event to each emitter in order.
type Fanout []chat.Emitter

// Emit implements chat.Emitter.
func (f Fanout) Emit(ev chat.Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(ev)
		}
	}
}
