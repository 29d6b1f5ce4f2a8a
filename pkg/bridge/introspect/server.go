// Package introspect exposes a bridge's unified statistics snapshot and
// module-info surface over HTTP, plus a WebSocket push channel of live
// snapshots: a gorilla/mux router plus a gorilla/websocket
// upgrade-and-fan-out connection serving bridge statistics to any number
// of subscribed clients.
package introspect

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vortexlang/cbridge/pkg/bridge"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
	"github.com/vortexlang/cbridge/pkg/common/logging"
)

// Source is the subset of *bridge.Bridge the server needs. Kept as an
// interface purely so tests can fake a bridge without initializing the
// real singleton.
type Source interface {
	Stats() stats.Snapshot
	ModuleInfo() []bridge.ModuleRecord
}

// Server is the HTTP+WebSocket introspection endpoint (SPEC_FULL.md §6.1).
type Server struct {
	source Source
	log    *logging.Logger

	upgrader websocket.Upgrader

	wsMu      sync.RWMutex
	wsClients map[*websocket.Conn]chan interface{}

	httpServer *http.Server
}

// APIResponse is the envelope every JSON API route returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// New builds a Server over the given stats/module-info source.
func New(source Source, log *logging.Logger) *Server {
	if log == nil {
		log = logging.GetGlobalLogger()
	}
	return &Server{
		source: source,
		log:    log.WithComponent("bridge"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsClients: make(map[*websocket.Conn]chan interface{}),
	}
}

// Router builds the mux.Router exposing /api/stats, /api/modules, /api/ws.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/modules", s.handleModules).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleWebSocket)
	return router
}

// ListenAndServe starts the HTTP server on addr and blocks until Shutdown
// is called or the server errors.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Router()}
	s.log.Info("introspection server starting", map[string]interface{}{"addr": addr})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Serve runs the introspection server on an already-bound listener
// (useful for tests that want an ephemeral port).
func (s *Server) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.Router()}
	err := s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and closes all WebSocket
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMu.Lock()
	for conn, ch := range s.wsClients {
		close(ch)
		conn.Close()
	}
	s.wsClients = make(map[*websocket.Conn]chan interface{})
	s.wsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, APIResponse{Success: true, Data: s.source.Stats()})
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, APIResponse{Success: true, Data: s.source.ModuleInfo()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	clientChan := make(chan interface{}, 16)
	s.wsMu.Lock()
	s.wsClients[conn] = clientChan
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, conn)
		s.wsMu.Unlock()
	}()

	for msg := range clientChan {
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Warn("websocket write failed", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}

// Broadcast pushes a stats snapshot to every connected WebSocket client.
// StartPeriodicBroadcast calls it on each tick; no other bridge event
// triggers a push.
func (s *Server) Broadcast() {
	snap := s.source.Stats()
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	for _, ch := range s.wsClients {
		select {
		case ch <- snap:
		default:
			// client backpressured; drop rather than block the broadcaster
		}
	}
}

// StartPeriodicBroadcast runs Broadcast on a ticker until ctx is
// cancelled, the push-side of the statistics surface for clients that
// don't want to poll /api/stats.
func (s *Server) StartPeriodicBroadcast(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Broadcast()
			}
		}
	}()
}

func (s *Server) sendJSON(w http.ResponseWriter, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("json encoding failed", map[string]interface{}{"error": err.Error()})
	}
}
