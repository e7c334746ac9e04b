package host

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/omochice/art-chat/internal/client"
)

// Bridge exposes the relay to a local web view over HTTP.
type Bridge struct {
	sender   client.Sender
	status   StatusFunc
	broker   *Broker
	history  History
	profiles Profiles
}

// BridgeOptions configures NewBridge. History and Profiles may be nil.
type BridgeOptions struct {
	Sender   client.Sender
	Status   StatusFunc
	Broker   *Broker
	History  History
	Profiles Profiles
}

// NewBridge creates a Bridge.
func NewBridge(opts BridgeOptions) *Bridge {
	if opts.Broker == nil {
		opts.Broker = NewBroker(0)
	}
	return &Bridge{
		sender:   opts.Sender,
		status:   opts.Status,
		broker:   opts.Broker,
		history:  opts.History,
		profiles: opts.Profiles,
	}
}

type sendRequest struct {
	Msg string `json:"msg"`
}

type statusResponse struct {
	State string `json:"state"`
}

// Handler returns the bridge routes.
func (b *Bridge) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/send_message", b.sendMessage)
		r.Get("/status", b.getStatus)
		r.Get("/history", b.listHistory)
		r.Get("/profile", b.getProfile)
		r.Get("/events", b.streamEvents)
	})
	return r
}

func (b *Bridge) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := b.sender.TrySend(r.Context(), req.Msg)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, client.ErrNotConnected):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusBadGateway, err.Error())
	}
}

func (b *Bridge) getStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{State: b.status().String()})
}

func (b *Bridge) listHistory(w http.ResponseWriter, r *http.Request) {
	if b.history == nil {
		respondError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := defaultHistory
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	messages, err := b.history.RecentMessages(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (b *Bridge) getProfile(w http.ResponseWriter, r *http.Request) {
	if b.profiles == nil {
		respondError(w, http.StatusNotFound, "profile is disabled")
		return
	}
	profile, err := b.profiles.LoadProfile(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (b *Bridge) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to accept event stream")
		return
	}
	defer conn.CloseNow()

	events, unsubscribe := b.broker.Subscribe()
	defer unsubscribe()

	// Subscribers only listen; CloseRead handles pings and the peer's close.
	ctx := conn.CloseRead(r.Context())
	log.Debug().Str("remote", r.RemoteAddr).Msg("event stream opened")

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, env); err != nil {
				log.Debug().Err(err).Msg("event stream closed")
				return
			}
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
