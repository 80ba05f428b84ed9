// Package websocket relays pipeline completion events to connected
// consumers, one stream per creator.
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans creator event channels out to websocket subscribers. A Redis
// pub/sub subscription per creator starts with the first connection and
// stops with the last.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	tokenSecret []byte
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, tokenSecret string) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		tokenSecret: []byte(tokenSecret),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// HandleWebSocket authenticates the caller with a service token passed
// as a query param and subscribes it to one creator's event stream.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.tokenSecret, nil
	})
	if err != nil || !token.Valid {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	creatorID, err := uuid.Parse(r.URL.Query().Get("creator_id"))
	if err != nil {
		http.Error(w, "creator_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(creatorID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(creatorID, conn)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(creatorID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[creatorID] = append(h.connections[creatorID], conn)

	// Start pub/sub subscription on the first connection for this creator
	if len(h.connections[creatorID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[creatorID] = cancel
		go h.subscribeToPubSub(ctx, creatorID)
	}

	log.Printf("WebSocket connected: creator %s (total: %d)", creatorID, len(h.connections[creatorID]))
}

func (h *Hub) unregisterConnection(creatorID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[creatorID]
	for i, c := range conns {
		if c == conn {
			h.connections[creatorID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[creatorID]) == 0 {
		delete(h.connections, creatorID)
		if cancel, ok := h.cancelFuncs[creatorID]; ok {
			cancel()
			delete(h.cancelFuncs, creatorID)
		}
	}

	log.Printf("WebSocket disconnected: creator %s", creatorID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, creatorID uuid.UUID) {
	channel := "creator_events:" + creatorID.String()
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(creatorID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(creatorID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[creatorID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// SendToCreator delivers a message to a creator's connections directly,
// bypassing pub/sub.
func (h *Hub) SendToCreator(creatorID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(creatorID, data)
}
