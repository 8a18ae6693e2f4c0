// Package statesync broadcasts the avatar's per-frame animation state to
// renderer frontends over WebSocket, and routes utterance text pushed by
// clients back into the core.
package statesync

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FrameState is one frame's snapshot of everything the core drives.
type FrameState struct {
	VisemeWeights map[string]float32 `json:"viseme_weights"`
	Expression    ExpressionState    `json:"expression"`
	Bones         []BoneState        `json:"bones,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// ExpressionState mirrors the expression engine's applied state.
type ExpressionState struct {
	Type             string  `json:"type"`
	Intensity        float32 `json:"intensity"`
	EyelidClosedness float32 `json:"eyelid_closedness"`
	EyebrowHeight    float32 `json:"eyebrow_height"`
}

// BoneState is one bone's current rotation.
type BoneState struct {
	Name     string     `json:"name"`
	Rotation [3]float32 `json:"rotation"`
}

// utteranceMessage is what clients push to have text classified.
type utteranceMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Server accepts renderer connections and fans frame states out to them.
type Server struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	onUtterance func(text string)

	httpServer *http.Server
}

// NewServer creates a state sync server. onUtterance receives text pushed
// by clients; it may be nil.
func NewServer(logger zerolog.Logger, onUtterance func(text string)) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:      logger.With().Str("component", "statesync").Logger(),
		clients:     make(map[*websocket.Conn]struct{}),
		onUtterance: onUtterance,
	}
}

// Start listens on addr until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleWS)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("State sync listening")

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Info().Int("clients", count).Msg("Renderer connected")

	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
		s.logger.Info().Msg("Renderer disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg utteranceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "utterance" && s.onUtterance != nil {
			s.onUtterance(msg.Text)
		}
	}
}

// Broadcast sends the frame state to every connected renderer. Slow or
// broken connections are dropped rather than allowed to stall the frame
// loop.
func (s *Server) Broadcast(state FrameState) {
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Error().Err(err).Msg("Frame state marshal failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected renderers.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
