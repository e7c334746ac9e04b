package host

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/client"
	"github.com/omochice/art-chat/internal/store"
)

// Recorder writes the conversation to the transcript. As an emitter it
// records inbound messages; Wrap records successful outbound sends.
type Recorder struct {
	history History
}

// NewRecorder creates a Recorder writing to history.
func NewRecorder(history History) *Recorder {
	return &Recorder{history: history}
}

// Emit implements chat.Emitter.
func (r *Recorder) Emit(ev chat.Event) {
	if ev.Name != chat.EventChatMessage {
		return
	}
	if err := r.history.AppendMessage(context.Background(), store.Inbound, ev.Payload); err != nil {
		log.Warn().Err(err).Msg("failed to record inbound message")
	}
}

// Wrap returns a sender that records every message s accepts.
func (r *Recorder) Wrap(s client.Sender) client.Sender {
	return &recordingSender{next: s, history: r.history}
}

type recordingSender struct {
	next    client.Sender
	history History
}

func (s *recordingSender) TrySend(ctx context.Context, msg string) error {
	if err := s.next.TrySend(ctx, msg); err != nil {
		return err
	}
	if err := s.history.AppendMessage(ctx, store.Outbound, msg); err != nil {
		log.Warn().Err(err).Msg("failed to record outbound message")
	}
	return nil
}
