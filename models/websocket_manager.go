package models

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocketManager handles WebSocket connections and broadcasts job updates
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
	log        zerolog.Logger
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager(log zerolog.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log.With().Str("component", "ws_manager").Logger(),
	}
}

// Start begins the WebSocket manager loop
func (wsm *WebSocketManager) Start() {
	go func() {
		for {
			select {
			case client := <-wsm.register:
				wsm.mu.Lock()
				wsm.clients[client] = true
				total := len(wsm.clients)
				wsm.mu.Unlock()
				wsm.log.Debug().Int("clients", total).Msg("websocket client connected")
			case client := <-wsm.unregister:
				wsm.mu.Lock()
				if _, ok := wsm.clients[client]; ok {
					delete(wsm.clients, client)
					client.Close()
				}
				remaining := len(wsm.clients)
				wsm.mu.Unlock()
				wsm.log.Debug().Int("clients", remaining).Msg("websocket client disconnected")
			case message := <-wsm.broadcast:
				wsm.mu.Lock()
				for client := range wsm.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						wsm.log.Warn().Err(err).Msg("dropping websocket client")
						client.Close()
						delete(wsm.clients, client)
					}
				}
				wsm.mu.Unlock()
			}
		}
	}()
}

// BroadcastJobUpdate sends a job update to all connected clients
func (wsm *WebSocketManager) BroadcastJobUpdate(job *Job) {
	update := map[string]interface{}{
		"type":      "job_update",
		"job_id":    job.ID,
		"status":    job.Status,
		"timestamp": job.UpdatedAt,
	}

	if job.Status == StatusFailed && job.ErrorMessage != "" {
		update["error"] = job.ErrorMessage
	}
	if job.Status == StatusFinished && job.Result != nil {
		update["result"] = job.Result
	}

	jsonData, err := json.Marshal(update)
	if err != nil {
		wsm.log.Error().Err(err).Msg("failed to marshal job update")
		return
	}

	wsm.broadcast <- jsonData
}

// RegisterClient registers a new WebSocket client
func (wsm *WebSocketManager) RegisterClient(conn *websocket.Conn) {
	wsm.register <- conn
}

// UnregisterClient unregisters a WebSocket client
func (wsm *WebSocketManager) UnregisterClient(conn *websocket.Conn) {
	wsm.unregister <- conn
}
