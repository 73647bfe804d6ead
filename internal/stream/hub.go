// Package stream fans trip lifecycle events out to connected clients. Events
// published on one instance reach clients on every instance through redis.
package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Hub struct {
	redis   *redis.Client
	log     *zap.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, log *zap.Logger) *Hub {
	h := &Hub{
		redis:   redisClient,
		log:     log,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	close(client.Send)
}

// Broadcast delivers payload to every client following userID. Slow clients
// drop messages instead of blocking the publisher. With redis configured,
// delivery goes through pub/sub so clients on other instances see the event
// too; local delivery then happens via the subscription.
func (h *Hub) Broadcast(userID string, payload []byte) {
	if h.redis == nil {
		h.deliver(userID, payload)
		return
	}

	err := h.redis.Publish(context.Background(), eventChannel(userID), payload).Err()
	if err != nil {
		h.log.Warn("redis publish failed", zap.Error(err), zap.String("user_id", userID))
		h.deliver(userID, payload)
	}
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[userID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "trips:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(userIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func eventChannel(userID string) string {
	return "trips:" + userID + ":events"
}

func userIDFromChannel(ch string) string {
	// trips:{user}:events
	if !strings.HasPrefix(ch, "trips:") || !strings.HasSuffix(ch, ":events") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(ch, "trips:"), ":events")
}
