package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/omochice/art-chat/internal/chat"
)

// Server handles WebSocket connections and delegates to Hub.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a WebSocket server that uses the provided Hub.
func New(address string, hub *chat.Hub) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address: address,
		hub:     hub,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Listen binds the listening socket without serving.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	s.server = &http.Server{Handler: mux}
	return nil
}

// Serve accepts connections until Stop is called.
func (s *Server) Serve() error {
	log.Info().Str("addr", s.listener.Addr().String()).Msg("WebSocket server started")
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop stops the WebSocket server and closes every client connection.
func (s *Server) Stop() {
	s.cancel()
	if s.server != nil {
		s.server.Shutdown(context.Background())
	}
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to accept WebSocket connection")
		return
	}

	wsConn.SetReadLimit(chat.MaxMessageSize)

	client := chat.NewClient(NewConnWithAddr(wsConn, r.RemoteAddr))
	s.hub.Register(client)
	log.Info().Str("remote", r.RemoteAddr).Int("clients", s.hub.ClientCount()).Msg("client connected")

	s.wg.Add(2)
	go s.handleClient(client)
	go s.writeLoop(client)
}

func (s *Server) handleClient(client *chat.Client) {
	defer s.wg.Done()
	defer close(client.Outgoing)
	s.hub.HandleClient(s.ctx, client)
	log.Info().Str("remote", client.Conn.RemoteAddr()).Msg("client disconnected")
}

func (s *Server) writeLoop(client *chat.Client) {
	defer s.wg.Done()
	defer client.Conn.Close()
	for msg := range client.Outgoing {
		if err := client.Conn.WriteText(s.ctx, msg); err != nil {
			log.Warn().Err(err).Str("remote", client.Conn.RemoteAddr()).Msg("failed to write to WebSocket client")
			return
		}
	}
}
