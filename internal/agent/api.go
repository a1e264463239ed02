package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dayuer/agentchat/internal/providers"
	"github.com/dayuer/agentchat/internal/topic"
	"github.com/dayuer/agentchat/internal/utils"
)

// CardVersion is reported in every agent card.
const CardVersion = "1.0.0"

// AgentCard is the discovery document served at /.well-known/agent.json.
type AgentCard struct {
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	Version            string         `json:"version"`
	DefaultInputModes  []string       `json:"defaultInputModes"`
	DefaultOutputModes []string       `json:"defaultOutputModes"`
	Capabilities       Capabilities   `json:"capabilities"`
	Authentication     Authentication `json:"authentication"`
}

// Capabilities advertises what the agent supports. Push notifications are
// the channel itself.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// Authentication lists accepted schemes; agents accept none.
type Authentication struct {
	Schemes []string `json:"schemes"`
}

// NewAgentCard builds the card for an agent. Long prompts are cut to 200
// characters.
func NewAgentCard(name, systemPrompt string) AgentCard {
	modes := []string{"application/json", "text/plain"}
	return AgentCard{
		Name:               name,
		Description:        utils.TruncateString(systemPrompt, 200),
		Version:            CardVersion,
		DefaultInputModes:  modes,
		DefaultOutputModes: modes,
		Capabilities:       Capabilities{Streaming: false, PushNotifications: true},
		Authentication:     Authentication{Schemes: []string{}},
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string `json:"response"`
	AgentName string `json:"agent_name"`
}

// Server is one agent's HTTP surface.
type Server struct {
	loop         *Loop
	systemPrompt string
	modelInfo    providers.ModelInfo
	addr         string

	mux *http.ServeMux
	srv *http.Server
}

// ServerConfig configures an agent Server.
type ServerConfig struct {
	Addr         string
	SystemPrompt string
	ModelInfo    providers.ModelInfo
}

// NewServer creates the HTTP surface for loop.
func NewServer(loop *Loop, cfg ServerConfig) *Server {
	s := &Server{
		loop:         loop,
		systemPrompt: cfg.SystemPrompt,
		modelInfo:    cfg.ModelInfo,
		addr:         cfg.Addr,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handleInfo)
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/.well-known/agent.json", s.handleCard)
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.mux}
	log.Printf("[Agent:%s] ✅ HTTP API → http://%s", s.loop.Name, s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	channel := s.loop.Channel
	writeJSON(w, map[string]any{
		"agent_card":    NewAgentCard(s.loop.Name, s.systemPrompt),
		"system_prompt": s.systemPrompt,
		"model_info":    s.modelInfo,
		"state":         s.loop.State().String(),
		"redis_config": map[string]string{
			"channel":     channel,
			"history_key": topic.HistoryKey(channel),
		},
		"endpoints": map[string]string{
			"chat":       "POST /chat - Direct agent interaction",
			"agent_card": "GET /.well-known/agent.json - Agent card",
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	text, err := s.loop.Ask(r.Context(), req.Message)
	if err != nil {
		text = fmt.Sprintf("Error: %v", err)
	}
	writeJSON(w, chatResponse{Response: text, AgentName: s.loop.Name})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, NewAgentCard(s.loop.Name, s.systemPrompt))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
