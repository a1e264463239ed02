package bridge

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dayuer/agentchat/internal/bus"
)

const (
	readTimeout       = 60 * time.Second
	heartbeatInterval = 10 * time.Second
	writeTimeout      = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn wraps a websocket.Conn with a write mutex for thread safety.
// gorilla/websocket does NOT support concurrent writes.
type wsConn struct {
	*websocket.Conn
	id string
	mu sync.Mutex
}

func newWSConn(raw *websocket.Conn) *wsConn {
	return &wsConn{Conn: raw, id: uuid.NewString()}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(env bus.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteJSON(env)
}

func (c *wsConn) WritePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *wsConn) WriteCloseSafe(code int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text))
}

func (c *wsConn) Close() error {
	c.WriteCloseSafe(websocket.CloseGoingAway, "")
	return c.Conn.Close()
}

// Server is the client-facing HTTP surface of a Bridge.
type Server struct {
	bridge    *Bridge
	hub       *Hub
	addr      string
	staticDir string

	mux *http.ServeMux
	srv *http.Server
}

// ServerConfig configures a bridge Server.
type ServerConfig struct {
	Addr      string
	StaticDir string // optional front-end served at /
}

// NewServer creates the HTTP server for br.
func NewServer(br *Bridge, cfg ServerConfig) *Server {
	s := &Server{
		bridge:    br,
		hub:       br.Hub,
		addr:      cfg.Addr,
		staticDir: cfg.StaticDir,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.handleWS)
	if s.staticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves HTTP and the heartbeat until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.mux}

	log.Printf("[Bridge] ✅ HTTP → http://%s", s.addr)
	log.Printf("[Bridge] ✅ WebSocket → ws://%s/ws", s.addr)

	go s.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		s.hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"channel":     s.bridge.Channel,
		"connections": s.hub.Len(),
	})
}

// handleWS is the client endpoint. Every text frame is a client message;
// frames that don't parse are dropped and the connection stays open.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] ⚠️ Upgrade failed: %v", err)
		return
	}

	conn := newWSConn(raw)
	peer := r.RemoteAddr
	s.hub.Add(conn)
	log.Printf("[WS] 🔗 Connected: %s (%s)", peer, conn.ID())

	defer func() {
		if s.hub.Remove(conn.ID()) {
			raw.Close()
		}
		log.Printf("[WS] 🔌 Disconnected: %s", peer)
	}()

	raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] ⚠️ Error: %v", err)
			}
			return
		}
		raw.SetReadDeadline(time.Now().Add(readTimeout))

		if err := s.bridge.Ingress(r.Context(), conn, message); err != nil {
			log.Printf("[WS] ⚠️ Dropping client message: %v", err)
		}
	}
}

// heartbeatLoop pings every client so dead peers are noticed.
func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pingAll()
		}
	}
}

func (s *Server) pingAll() {
	for _, c := range s.hub.Snapshot() {
		wc, ok := c.(*wsConn)
		if !ok {
			continue
		}
		if err := wc.WritePing(); err != nil {
			s.hub.Drop(wc)
		}
	}
}
